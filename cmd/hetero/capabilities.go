package main

import (
	"errors"
	"fmt"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/capability"
	"github.com/born-ml/hetero/internal/manifest"
	"github.com/spf13/cobra"
)

// errMissingCapability signals that at least one queried option is absent.
var errMissingCapability = errors.New("backend lacks a queried capability")

func newCapabilitiesCmd(_ *rootOptions) *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "capabilities <backend> [name[=value]...]",
		Short: "List or query the capabilities of a backend",
		Long: `Without options, lists the capabilities a backend advertises. With options,
reports for each whether the backend has it: a bare name matches on name
alone, name=value requires the same value type and an equal value. Exits
with status 1 when any queried option is missing.

Builtin backends are always known; --manifest adds the declared ones.`,
		Example: `  hetero capabilities CpuAcc
  hetero capabilities CpuAcc NonConstWeights AsyncExecution=false
  hetero capabilities --manifest net.yaml NpuAcc MaxBatch=8`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := lookupBackend(backend.ID(args[0]), manifestPath)
			if err != nil {
				return err
			}
			set := b.Capabilities()
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				fmt.Fprintf(w, "%s (%s)\n", b.ID(), b.Device())
				for _, o := range set {
					fmt.Fprintf(w, "  %s\n", o)
				}
				return nil
			}

			missing := false
			for _, arg := range args[1:] {
				opt, err := capability.ParseOption(arg)
				if err != nil {
					return err
				}
				var ok bool
				if opt.Value.IsNone() {
					ok = capability.Has(opt.Name, set)
				} else {
					ok = capability.HasOption(opt, set)
				}
				answer := "yes"
				if !ok {
					answer = "no"
					missing = true
				}
				fmt.Fprintf(w, "%s: %s\n", opt, answer)
			}
			if missing {
				return errMissingCapability
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "manifest declaring additional backends")
	return cmd
}

func lookupBackend(id backend.ID, manifestPath string) (backend.Backend, error) {
	if manifestPath != "" {
		net, err := load(manifestPath)
		if err != nil {
			return nil, err
		}
		if b, ok := net.Backends[id]; ok {
			return b, nil
		}
	}
	if b, ok := manifest.Builtin(id); ok {
		return b, nil
	}
	return nil, fmt.Errorf("unknown backend %q (builtin: %v)", id, manifest.BuiltinIDs())
}

package main

import (
	"bytes"
	"fmt"

	"github.com/born-ml/hetero/internal/optimize"
	"github.com/born-ml/hetero/internal/parallel"
	"github.com/born-ml/hetero/internal/report"
	"github.com/spf13/cobra"
)

// validation is the outcome of validating one manifest.
type validation struct {
	output     bytes.Buffer
	unresolved bool
	err        error
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest>...",
		Short: "Report the strategy of every connection without inserting layers",
		Long: `Resolves each network and prints the chosen factories and edge strategies
without inserting compatibility layers. Manifests are validated in parallel
and reported in argument order. Exits with status 1 when a connection
cannot be resolved.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := parallel.Map(args, opts.validate, parallel.DefaultConfig())

			w := cmd.OutOrStdout()
			unresolved := false
			for i, v := range results {
				if v.err != nil {
					return fmt.Errorf("%s: %w", args[i], v.err)
				}
				if i > 0 {
					fmt.Fprintln(w)
				}
				if _, err := w.Write(v.output.Bytes()); err != nil {
					return err
				}
				unresolved = unresolved || v.unresolved
			}
			if unresolved {
				return errUnresolved
			}
			return nil
		},
	}
}

func (o *rootOptions) validate(path string) *validation {
	v := &validation{}
	net, err := load(path)
	if err != nil {
		v.err = err
		return v
	}
	res, err := optimize.Resolve(net.Graph, net.Backends, net.Registry, o.optimizeOptions())
	if err != nil {
		v.err = err
		return v
	}
	rep, err := report.New(net.Name, net.Graph, res, nil)
	if err != nil {
		v.err = err
		return v
	}
	v.err = o.render(&v.output, rep)
	v.unresolved = res.HasError
	return v
}

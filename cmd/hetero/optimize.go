package main

import (
	"errors"

	"github.com/born-ml/hetero/internal/compat"
	"github.com/born-ml/hetero/internal/optimize"
	"github.com/born-ml/hetero/internal/report"
	"github.com/spf13/cobra"
)

func newOptimizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize <manifest>",
		Short: "Resolve the network and insert MemCopy and MemImport layers",
		Long: `Resolves the network, inserts a compatibility layer on every connection
that exports or copies, and prints the resulting graph. Nothing is inserted
when a connection cannot be resolved; the report then lists the errors and
the command exits with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := load(args[0])
			if err != nil {
				return err
			}
			out, err := optimize.Optimize(net.Graph, net.Backends, net.Registry, opts.optimizeOptions())
			unresolved := errors.Is(err, optimize.ErrResolution)
			if err != nil && !unresolved {
				return err
			}

			var summary *compat.Summary
			if !unresolved {
				summary = &out.Summary
			}
			rep, err := report.New(net.Name, net.Graph, out.Result, summary)
			if err != nil {
				return err
			}
			if err := opts.render(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if unresolved {
				return errUnresolved
			}
			return nil
		},
	}
}

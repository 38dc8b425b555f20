package main

import (
	"errors"
	"fmt"

	"github.com/born-ml/hetero/internal/optimize"
	"github.com/born-ml/hetero/internal/report"
	"github.com/spf13/cobra"
)

func newGraphCmd(opts *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "graph <manifest>",
		Short: "Export the layer graph as a Mermaid diagram",
		Long: `Prints a Mermaid flowchart (graph LR) with one subgraph per backend and
connections labeled by strategy. The network is optimized first unless --raw
is given; unresolved connections are drawn dotted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := load(args[0])
			if err != nil {
				return err
			}
			if !raw {
				_, err := optimize.Optimize(net.Graph, net.Backends, net.Registry, opts.optimizeOptions())
				if err != nil && !errors.Is(err, optimize.ErrResolution) {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Mermaid(net.Graph))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "draw the graph as declared, without resolving it")
	return cmd
}

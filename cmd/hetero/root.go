package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/born-ml/hetero/internal/logging"
	"github.com/born-ml/hetero/internal/manifest"
	"github.com/born-ml/hetero/internal/optimize"
	"github.com/born-ml/hetero/internal/report"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// errUnresolved makes the process exit non-zero after the report is printed.
var errUnresolved = errors.New("some connections have no compatible strategy")

// rootOptions holds the persistent flags.
type rootOptions struct {
	export   bool
	format   string
	logLevel string
	style    string

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "hetero",
		Short: "Resolve tensor handoffs between compute backends",
		Long: `hetero reads a layer graph whose layers are assigned to compute backends,
chooses a tensor handle factory for every output and decides for every
connection whether data is passed directly, exported or copied.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			switch opts.format {
			case "text", "markdown", "json":
			default:
				return fmt.Errorf("unknown format %q (want text, markdown or json)", opts.format)
			}
			opts.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&opts.export, "export", true, "allow zero-copy export between backends")
	flags.StringVarP(&opts.format, "format", "f", "text", "report format: text, markdown or json")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.StringVar(&opts.style, "style", "", "glamour style for markdown output (auto when empty)")

	cmd.AddCommand(
		newValidateCmd(opts),
		newOptimizeCmd(opts),
		newGraphCmd(opts),
		newCapabilitiesCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) optimizeOptions() optimize.Options {
	return optimize.Options{ExportEnabled: o.export, Logger: o.logger}
}

// load reads a manifest file and builds its network.
func load(path string) (*manifest.Network, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return m.Build()
}

// render writes rep in the selected format.
func (o *rootOptions) render(w io.Writer, rep *report.Report) error {
	profile := termenv.NewOutput(w).EnvColorProfile()
	switch o.format {
	case "json":
		return rep.JSON(w)
	case "markdown":
		style := o.style
		if style == "" && profile == termenv.Ascii {
			style = "notty"
		}
		out, err := report.RenderMarkdown(rep.Markdown(), style)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return rep.Text(w, profile)
	}
}

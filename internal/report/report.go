// Package report renders the outcome of the resolution passes as colored
// text, Markdown, JSON or a Mermaid flowchart.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/hetero/internal/compat"
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/strategy"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Report is a flattened, serializable view of an annotated graph.
type Report struct {
	Name    string           `json:"name,omitempty"`
	Layers  int              `json:"layers"`
	Result  *strategy.Result `json:"result"`
	Summary *compat.Summary  `json:"summary,omitempty"`
	Ports   []Port           `json:"ports"`
}

// Port describes one output port and its connections.
type Port struct {
	Layer   string `json:"layer"`
	Kind    string `json:"kind"`
	Backend string `json:"backend"`
	Output  int    `json:"output"`
	Factory string `json:"factory"`
	Edges   []Edge `json:"edges,omitempty"`
}

// Edge describes one connection.
type Edge struct {
	Consumer string `json:"consumer"`
	Input    int    `json:"input"`
	Backend  string `json:"backend"`
	Strategy string `json:"strategy"`
}

// New builds a report with ports listed in topological order. summary may be
// nil when no layers were inserted.
func New(name string, g *graph.Graph, res *strategy.Result, summary *compat.Summary) (*Report, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	r := &Report{Name: name, Layers: g.Len(), Result: res, Summary: summary}
	for _, l := range order {
		for i, out := range l.Outputs {
			p := Port{
				Layer:   l.String(),
				Kind:    l.Kind.String(),
				Backend: string(l.Backend),
				Output:  i,
				Factory: string(out.Factory),
			}
			for _, c := range out.Connections {
				dst := g.Layer(c.Target.Layer)
				p.Edges = append(p.Edges, Edge{
					Consumer: dst.String(),
					Input:    c.Target.Index,
					Backend:  string(dst.Backend),
					Strategy: c.Strategy.String(),
				})
			}
			r.Ports = append(r.Ports, p)
		}
	}
	return r, nil
}

// JSON writes the report as indented JSON.
func (r *Report) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var strategyColors = map[string]string{
	graph.DirectCompatibility.String(): "#22c55e",
	graph.ExportToTarget.String():      "#06b6d4",
	graph.CopyToTarget.String():        "#eab308",
	graph.Undefined.String():           "#ef4444",
}

// Text writes a plain-text report colored for profile p. Use termenv.Ascii
// for uncolored output.
func (r *Report) Text(w io.Writer, p termenv.Profile) error {
	var sb strings.Builder
	title := r.Name
	if title == "" {
		title = "network"
	}
	fmt.Fprintf(&sb, "%s: %d layers\n", p.String(title).Bold(), r.Layers)
	if r.Result != nil {
		c := r.Result.Counts
		fmt.Fprintf(&sb, "  direct %d  export %d  copy %d  undefined %d\n", c.Direct, c.Export, c.Copy, c.Undefined)
	}
	if r.Summary != nil {
		fmt.Fprintf(&sb, "  inserted %d MemCopy, %d MemImport\n", r.Summary.Copies, r.Summary.Imports)
	}
	sb.WriteString("\n")

	for _, port := range r.Ports {
		factory := port.Factory
		if factory == "" {
			factory = "-"
		}
		fmt.Fprintf(&sb, "%s (%s) output %d [%s]\n", port.Layer, port.Backend, port.Output, factory)
		for _, e := range port.Edges {
			s := p.String(e.Strategy).Foreground(p.Color(strategyColors[e.Strategy]))
			fmt.Fprintf(&sb, "  -> %s:%d (%s)  %s\n", e.Consumer, e.Input, e.Backend, s)
		}
	}

	if r.Result != nil {
		writeList(&sb, "warnings", r.Result.Warnings, p.String().Foreground(p.Color("#eab308")))
		writeList(&sb, "errors", r.Result.Errors, p.String().Foreground(p.Color("#ef4444")))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeList(sb *strings.Builder, heading string, items []string, style termenv.Style) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", style.Styled(heading))
	for _, item := range items {
		fmt.Fprintf(sb, "  %s\n", item)
	}
}

// Markdown returns the report as a Markdown document.
func (r *Report) Markdown() string {
	var sb strings.Builder
	title := r.Name
	if title == "" {
		title = "network"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	if r.Result != nil {
		c := r.Result.Counts
		fmt.Fprintf(&sb, "**%d** direct, **%d** export, **%d** copy, **%d** undefined connections.\n\n",
			c.Direct, c.Export, c.Copy, c.Undefined)
	}
	if r.Summary != nil {
		fmt.Fprintf(&sb, "Inserted **%d** MemCopy and **%d** MemImport layers.\n\n", r.Summary.Copies, r.Summary.Imports)
	}

	sb.WriteString("| Producer | Backend | Output | Factory | Consumer | Input | Strategy |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, port := range r.Ports {
		for _, e := range port.Edges {
			fmt.Fprintf(&sb, "| %s | %s | %d | `%s` | %s | %d | %s |\n",
				escapeCell(port.Layer), port.Backend, port.Output, port.Factory,
				escapeCell(e.Consumer), e.Input, e.Strategy)
		}
	}

	if r.Result != nil {
		markdownList(&sb, "Warnings", r.Result.Warnings)
		markdownList(&sb, "Errors", r.Result.Errors)
	}
	return sb.String()
}

func markdownList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderMarkdown renders Markdown for a terminal. An empty style detects a
// light or dark background; "notty" renders without escape sequences.
func RenderMarkdown(md, style string) (string, error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(120))
	if err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	return r.Render(md)
}

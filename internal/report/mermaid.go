package report

import (
	"fmt"
	"strings"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/graph"
)

// Mermaid produces a Mermaid flowchart of g. Layers are grouped into one
// subgraph per backend and edges are labeled with their strategy:
// - Input/Output: ((Circle))
// - MemCopy: [[Subroutine]]
// - MemImport: [/Parallelogram/]
// - Compute: [Rectangle]
// Unresolved edges are drawn dotted.
func Mermaid(g *graph.Graph) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	groups := make(map[backend.ID][]*graph.Layer)
	var ids []backend.ID
	g.ForEachLayer(func(l *graph.Layer) {
		if _, ok := groups[l.Backend]; !ok {
			ids = append(ids, l.Backend)
		}
		groups[l.Backend] = append(groups[l.Backend], l)
	})

	for i, id := range ids {
		title := string(id)
		if title == "" {
			title = "unassigned"
		}
		fmt.Fprintf(&sb, "    subgraph B%d[\"%s\"]\n", i, sanitizeLabel(title))
		for _, l := range groups[id] {
			opener, closer := "[", "]"
			switch l.Kind {
			case graph.Input, graph.Output:
				opener, closer = "((", "))"
			case graph.MemCopy:
				opener, closer = "[[", "]]"
			case graph.MemImport:
				opener, closer = "[/", "/]"
			}
			fmt.Fprintf(&sb, "        %s%s\"%s\"%s\n", nodeID(l.ID), opener, sanitizeLabel(l.String()), closer)
		}
		sb.WriteString("    end\n")
	}

	g.ForEachLayer(func(l *graph.Layer) {
		for _, out := range l.Outputs {
			for _, c := range out.Connections {
				arrow := fmt.Sprintf("-- \"%s\" -->", c.Strategy)
				if c.Strategy == graph.Undefined {
					arrow = fmt.Sprintf("-. \"%s\" .->", c.Strategy)
				}
				fmt.Fprintf(&sb, "    %s %s %s\n", nodeID(l.ID), arrow, nodeID(c.Target.Layer))
			}
		}
	})
	return sb.String()
}

func nodeID(id graph.LayerID) string {
	return fmt.Sprintf("L%d", id)
}

func sanitizeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

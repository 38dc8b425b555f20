package graph

import (
	"fmt"
	"sort"
)

// TopologicalSort orders the layers so every producer precedes its consumers.
// Among layers that are ready at the same time the lower LayerID comes first,
// so the order is deterministic. Returns ErrCycle if the graph is not a DAG.
func (g *Graph) TopologicalSort() error {
	indegree := make([]int, len(g.layers))
	for _, l := range g.layers {
		for _, out := range l.Outputs {
			for _, c := range out.Connections {
				indegree[c.Target.Layer]++
			}
		}
	}

	var ready []LayerID
	for _, l := range g.layers {
		if indegree[l.ID] == 0 {
			ready = append(ready, l.ID)
		}
	}

	order := make([]LayerID, 0, len(g.layers))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, out := range g.layers[id].Outputs {
			for _, c := range out.Connections {
				next := c.Target.Layer
				indegree[next]--
				if indegree[next] == 0 {
					ready = insertSorted(ready, next)
				}
			}
		}
	}

	if len(order) != len(g.layers) {
		for _, l := range g.layers {
			if indegree[l.ID] > 0 {
				return fmt.Errorf("%w involving layer '%s'", ErrCycle, l)
			}
		}
		return ErrCycle
	}

	g.order = order
	g.sorted = true
	return nil
}

// TopologicalOrder returns the layers in topological order, sorting first if
// the graph changed since the last sort.
func (g *Graph) TopologicalOrder() ([]*Layer, error) {
	if !g.sorted {
		if err := g.TopologicalSort(); err != nil {
			return nil, err
		}
	}
	out := make([]*Layer, len(g.order))
	for i, id := range g.order {
		out[i] = g.layers[id]
	}
	return out, nil
}

func insertSorted(ids []LayerID, id LayerID) []LayerID {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

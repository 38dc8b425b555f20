// Package optimize runs the backend-compatibility passes over a layer graph.
//
// Validate reports what resolution would do without touching the caller's
// graph. Optimize resolves the graph in place and, when every connection has
// a strategy, bridges the non-direct ones.
package optimize

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/born-ml/hetero/internal/compat"
	"github.com/born-ml/hetero/internal/graph"
	"github.com/born-ml/hetero/internal/logging"
	"github.com/born-ml/hetero/internal/metrics"
	"github.com/born-ml/hetero/internal/strategy"
)

// ErrResolution is returned by Optimize when at least one connection has no
// compatible strategy.
var ErrResolution = errors.New("optimize: backend compatibility resolution failed")

// Options configures both passes.
type Options struct {
	ExportEnabled bool
	Logger        *slog.Logger
	Metrics       metrics.Recorder
}

// DefaultOptions returns options with export enabled and no logging.
func DefaultOptions() Options {
	return Options{ExportEnabled: true}
}

func (o Options) strategy() strategy.Options {
	return strategy.Options{ExportEnabled: o.ExportEnabled, Logger: o.Logger, Metrics: o.Metrics}
}

func (o Options) compat() compat.Options {
	return compat.Options{Logger: o.Logger, Metrics: o.Metrics}
}

// Outcome is the result of Optimize.
type Outcome struct {
	Result  *strategy.Result `json:"result"`
	Summary compat.Summary   `json:"summary"`
}

// Validate resolves a copy of g and returns the diagnostics. g itself is not
// annotated.
func Validate(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts Options) (*strategy.Result, error) {
	return Resolve(g.Clone(), backends, reg, opts)
}

// Resolve annotates g with factories and edge strategies but inserts no
// layers.
func Resolve(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts Options) (*strategy.Result, error) {
	res, err := strategy.Select(g, backends, reg, opts.strategy())
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	return res, nil
}

// Optimize resolves g in place and inserts compatibility layers.
//
// When resolution reports errors Optimize returns the Outcome together with
// an error wrapping ErrResolution and every message, and g keeps its
// annotations but gains no layers.
func Optimize(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts Options) (*Outcome, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}

	res, err := strategy.Select(g, backends, reg, opts.strategy())
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	out := &Outcome{Result: res}
	if res.HasError {
		log.Error("resolution failed", "errors", len(res.Errors))
		return out, fmt.Errorf("%w: %w", ErrResolution, res.Err())
	}
	for _, w := range res.Warnings {
		log.Warn(w)
	}

	sum, err := compat.AddCompatibilityLayers(g, backends, reg, opts.compat())
	if err != nil {
		return out, fmt.Errorf("optimize: %w", err)
	}
	out.Summary = sum
	return out, nil
}

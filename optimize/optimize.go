// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optimize resolves how tensors cross backend boundaries.
//
// # Overview
//
// Resolution runs in two passes over a layer graph whose layers are already
// assigned to backends:
//   - Select picks a tensor handle factory for every output port and an
//     edge strategy for every connection: direct, export or copy.
//   - AddCompatibilityLayers inserts a MemImport layer on every export edge
//     and a MemCopy layer on every copy edge.
//
// Optimize runs both and stops before inserting anything when a connection
// cannot be resolved.
//
// # Basic Usage
//
//	backends, _ := backend.NewMap(cpu.NewAccelerated(), webgpu.New())
//	reg := backend.NewRegistry()
//	_ = backends.RegisterAll(reg)
//
//	out, err := optimize.Optimize(g, backends, reg, optimize.DefaultOptions())
//	if errors.Is(err, optimize.ErrResolution) {
//	    for _, msg := range out.Result.Errors {
//	        fmt.Println(msg)
//	    }
//	}
package optimize

import (
	"github.com/born-ml/hetero/backend"
	"github.com/born-ml/hetero/graph"
	"github.com/born-ml/hetero/internal/compat"
	internalopt "github.com/born-ml/hetero/internal/optimize"
	"github.com/born-ml/hetero/internal/strategy"
)

// Types.
type (
	// Options configures both passes.
	Options = internalopt.Options
	// Outcome is the result of Optimize.
	Outcome = internalopt.Outcome
	// Result holds the diagnostics of strategy selection.
	Result = strategy.Result
	// Counts tallies connections per strategy.
	Counts = strategy.Counts
	// SelectOptions configures Select.
	SelectOptions = strategy.Options
	// Summary describes the layers inserted by AddCompatibilityLayers.
	Summary = compat.Summary
	// BridgeOptions configures AddCompatibilityLayers.
	BridgeOptions = compat.Options
)

// ErrResolution is returned by Optimize when a connection has no strategy.
var ErrResolution = internalopt.ErrResolution

// DefaultOptions enables export and disables logging and metrics.
func DefaultOptions() Options {
	return internalopt.DefaultOptions()
}

// Optimize resolves g in place and inserts compatibility layers.
func Optimize(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts Options) (*Outcome, error) {
	return internalopt.Optimize(g, backends, reg, opts)
}

// Validate resolves a copy of g and returns the diagnostics.
func Validate(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts Options) (*Result, error) {
	return internalopt.Validate(g, backends, reg, opts)
}

// Resolve annotates g in place without inserting layers.
func Resolve(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts Options) (*Result, error) {
	return internalopt.Resolve(g, backends, reg, opts)
}

// Select runs strategy selection alone.
func Select(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts SelectOptions) (*Result, error) {
	return strategy.Select(g, backends, reg, opts)
}

// AddCompatibilityLayers inserts MemCopy and MemImport layers on the non-direct
// connections of a graph annotated by Select. It panics if a connection is
// still Undefined.
func AddCompatibilityLayers(g *graph.Graph, backends backend.Map, reg *backend.Registry, opts BridgeOptions) (Summary, error) {
	return compat.AddCompatibilityLayers(g, backends, reg, opts)
}

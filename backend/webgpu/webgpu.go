// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend.
//
// The backend registers a device-local factory and an import factory that
// wraps host or dma-buf memory, so CPU producers can hand tensors to the GPU
// without a copy. Planning never touches the GPU; NewProbed additionally
// looks for an adapter.
//
// Example:
//
//	gpu := webgpu.New()
//	if webgpu.IsAvailable() {
//	    if probed, err := webgpu.NewProbed(); err == nil {
//	        gpu = probed
//	    }
//	}
//	backends, err := backend.NewMap(cpu.NewAccelerated(), gpu)
package webgpu

import (
	"github.com/born-ml/hetero/backend"
	internalwebgpu "github.com/born-ml/hetero/internal/backend/webgpu"
)

// Backend represents the WebGPU backend.
type Backend = internalwebgpu.Backend

// AdapterInfo summarizes the adapter found by probing.
type AdapterInfo = internalwebgpu.AdapterInfo

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Identifiers of the backend and its factories.
const (
	ID              = internalwebgpu.ID
	FactoryID       = internalwebgpu.FactoryID
	ImportFactoryID = internalwebgpu.ImportFactoryID
)

// New creates the WebGPU backend without probing the GPU.
func New() *Backend {
	return internalwebgpu.New()
}

// NewProbed creates the WebGPU backend and records the default adapter.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func NewProbed() (*Backend, error) {
	return internalwebgpu.NewProbed()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// This is useful for graceful fallback to the CPU backends when no GPU is
// present.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/hetero/backend"
	internalcpu "github.com/born-ml/hetero/internal/backend/cpu"
)

// Backend represents the CPU backends.
//
// Both variants allocate tensors in host memory through a single mappable
// factory, so they can exchange tensors with each other without copies.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Backend identifiers.
const (
	RefID = internalcpu.RefID
	AccID = internalcpu.AccID
)

// Features lists the SIMD extensions of the running machine.
type Features = internalcpu.Features

// New creates the portable reference CPU backend (CpuRef).
//
// Example:
//
//	backends, _ := backend.NewMap(cpu.New(), cpu.NewAccelerated())
func New() *Backend {
	return internalcpu.New()
}

// NewAccelerated creates the vector-extension CPU backend (CpuAcc). The
// detected SIMD extensions are advertised as capabilities.
func NewAccelerated() *Backend {
	return internalcpu.NewAccelerated()
}

// DetectFeatures probes the running CPU.
func DetectFeatures() Features {
	return internalcpu.DetectFeatures()
}

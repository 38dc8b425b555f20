// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package backend defines execution targets and the tensor handle factories
// they allocate tensors with.
//
// A Backend owns factories and lists, in order of preference, the factories
// it can produce and consume. Factories are registered once in a Registry;
// registration order breaks ties during strategy selection.
//
// Example:
//
//	backends, err := backend.NewMap(cpu.New(), webgpu.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg := backend.NewRegistry()
//	if err := backends.RegisterAll(reg); err != nil {
//	    log.Fatal(err)
//	}
package backend

import internalbackend "github.com/born-ml/hetero/internal/backend"

// Core types.
type (
	// ID identifies a backend, e.g. "CpuAcc".
	ID = internalbackend.ID
	// FactoryID identifies a tensor handle factory.
	FactoryID = internalbackend.FactoryID
	// Device is the hardware class of a backend.
	Device = internalbackend.Device
	// MemorySource is a bit set of memory kinds a factory exports or imports.
	MemorySource = internalbackend.MemorySource

	// Backend is an execution target.
	Backend = internalbackend.Backend
	// InputFactoryProvider narrows accepted factories per op input.
	InputFactoryProvider = internalbackend.InputFactoryProvider
	// Map associates identifiers with backends.
	Map = internalbackend.Map

	// Factory describes a tensor handle factory.
	Factory = internalbackend.Factory
	// Registry holds every registered factory.
	Registry = internalbackend.Registry

	// Static is a Backend described entirely by data.
	Static = internalbackend.Static
)

// Devices.
const (
	CPU    = internalbackend.CPU
	CUDA   = internalbackend.CUDA
	Vulkan = internalbackend.Vulkan
	Metal  = internalbackend.Metal
	WebGPU = internalbackend.WebGPU
)

// Memory sources.
const (
	Undefined       = internalbackend.Undefined
	Malloc          = internalbackend.Malloc
	DmaBuf          = internalbackend.DmaBuf
	DmaBufProtected = internalbackend.DmaBufProtected
	Gralloc         = internalbackend.Gralloc
)

// Well-known capability names.
const (
	CapNonConstWeights = internalbackend.CapNonConstWeights
	CapAsyncExecution  = internalbackend.CapAsyncExecution
	CapPaddingRequired = internalbackend.CapPaddingRequired
)

// ErrDuplicateFactory is returned when a factory id is registered twice.
var ErrDuplicateFactory = internalbackend.ErrDuplicateFactory

// NewMap builds a Map, rejecting duplicate identifiers.
func NewMap(backends ...Backend) (Map, error) {
	return internalbackend.NewMap(backends...)
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return internalbackend.NewRegistry()
}

// AcceptedFactories returns the factories b accepts on input index of a
// layer running op.
func AcceptedFactories(b Backend, op string, index int) []FactoryID {
	return internalbackend.AcceptedFactories(b, op, index)
}

// ParseDevice converts a device name such as "Vulkan" into a Device.
func ParseDevice(name string) (Device, error) {
	return internalbackend.ParseDevice(name)
}

// ParseMemorySources combines memory source names such as "malloc".
func ParseMemorySources(names ...string) (MemorySource, error) {
	return internalbackend.ParseMemorySources(names...)
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package manifest loads network descriptions from YAML or HCL files.
//
// A manifest declares data-described backends and their factories, the
// layers with their backend assignment, and the connections between them
// written as "from[:port] -> to[:port]". Layers may also name the builtin
// backends CpuRef, CpuAcc and GpuAcc without declaring them.
//
// Example:
//
//	m, err := manifest.Load("net.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	net, err := m.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := optimize.Optimize(net.Graph, net.Backends, net.Registry, optimize.DefaultOptions())
package manifest

import (
	"github.com/born-ml/hetero/backend"
	internalmanifest "github.com/born-ml/hetero/internal/manifest"
)

// Types.
type (
	Manifest        = internalmanifest.Manifest
	Backend         = internalmanifest.Backend
	Factory         = internalmanifest.Factory
	Layer           = internalmanifest.Layer
	InputPreference = internalmanifest.InputPreference
	Network         = internalmanifest.Network
)

// Load reads a .yaml, .yml or .hcl manifest.
func Load(path string) (*Manifest, error) {
	return internalmanifest.Load(path)
}

// ParseYAML decodes a YAML manifest.
func ParseYAML(data []byte) (*Manifest, error) {
	return internalmanifest.ParseYAML(data)
}

// ParseHCL decodes an HCL manifest. filename is used in diagnostics.
func ParseHCL(data []byte, filename string) (*Manifest, error) {
	return internalmanifest.ParseHCL(data, filename)
}

// Builtin returns a fresh instance of the builtin backend id.
func Builtin(id backend.ID) (backend.Backend, bool) {
	return internalmanifest.Builtin(id)
}

// BuiltinIDs lists the builtin backends.
func BuiltinIDs() []backend.ID {
	return internalmanifest.BuiltinIDs()
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host-memory backends.
//
// # Overview
//
// Two backends are available:
//   - CpuRef, the portable reference backend
//   - CpuAcc, the vector-extension backend, advertising AVX2, AVX-512,
//     NEON or SVE when the machine has them
//
// Both register one host-memory tensor handle factory that can export and
// import malloc'd buffers and supports map/unmap.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/hetero/backend"
//	    "github.com/born-ml/hetero/backend/cpu"
//	    "github.com/born-ml/hetero/capability"
//	)
//
//	func main() {
//	    acc := cpu.NewAccelerated()
//	    if capability.Has("AVX2", acc.Capabilities()) {
//	        // place vectorized layers on CpuAcc
//	    }
//	    backends, err := backend.NewMap(cpu.New(), acc)
//	}
package cpu

//go:build !windows

package webgpu

import "errors"

// probeAdapter reports WebGPU as unavailable; the native bindings are only
// wired on windows.
func probeAdapter() (*AdapterInfo, error) {
	return nil, errors.New("webgpu: not supported on this platform")
}

package cpu

import (
	"runtime"

	"github.com/born-ml/hetero/internal/capability"
	xcpu "golang.org/x/sys/cpu"
)

// Features lists the SIMD extensions available on the running machine.
type Features struct {
	Arch    string
	AVX2    bool
	AVX512F bool
	FMA     bool
	NEON    bool
	SVE     bool
}

// DetectFeatures probes the running CPU.
func DetectFeatures() Features {
	f := Features{Arch: runtime.GOARCH}
	switch runtime.GOARCH {
	case "amd64", "386":
		f.AVX2 = xcpu.X86.HasAVX2
		f.AVX512F = xcpu.X86.HasAVX512F
		f.FMA = xcpu.X86.HasFMA
	case "arm64":
		// ASIMD (NEON) is mandatory on arm64; the flag is still read so
		// emulated environments report what they expose.
		f.NEON = xcpu.ARM64.HasASIMD
		f.SVE = xcpu.ARM64.HasSVE
	}
	return f
}

// Widest returns the name of the widest vector extension, or "scalar".
func (f Features) Widest() string {
	switch {
	case f.AVX512F:
		return "avx512"
	case f.AVX2:
		return "avx2"
	case f.SVE:
		return "sve"
	case f.NEON:
		return "neon"
	default:
		return "scalar"
	}
}

// Capabilities converts the features into backend capabilities.
// Only extensions that are present are advertised.
func (f Features) Capabilities() capability.Set {
	caps := capability.Set{capability.NewString("VectorExtension", f.Widest())}
	for _, c := range []struct {
		name    string
		present bool
	}{
		{"AVX2", f.AVX2},
		{"AVX512F", f.AVX512F},
		{"FMA", f.FMA},
		{"NEON", f.NEON},
		{"SVE", f.SVE},
	} {
		if c.present {
			caps = append(caps, capability.Flag(c.name))
		}
	}
	return caps
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package capability describes the named options backends and tensor handle
// factories advertise, and answers queries against them.
//
// A capability is either a bare presence flag or carries a typed value. Has
// matches on the name alone; HasOption also requires the same value type and
// an equal value, so an Int 1 never matches a Bool true.
//
// Example:
//
//	caps := acc.Capabilities()
//	capability.Has("NonConstWeights", caps)                            // true
//	capability.HasOption(capability.NewBool("AsyncExecution", false), caps)
package capability

import internalcap "github.com/born-ml/hetero/internal/capability"

// Types.
type (
	// Kind identifies the payload type of a Value.
	Kind = internalcap.Kind
	// Value is a tagged capability payload.
	Value = internalcap.Value
	// Option is a named capability.
	Option = internalcap.Option
	// Set is an ordered collection of options.
	Set = internalcap.Set
)

// Value kinds.
const (
	None   = internalcap.None
	Bool   = internalcap.Bool
	Int    = internalcap.Int
	Float  = internalcap.Float
	String = internalcap.String
)

// Flag creates a presence-only option.
func Flag(name string) Option { return internalcap.Flag(name) }

// NewBool creates a boolean option.
func NewBool(name string, v bool) Option { return internalcap.NewBool(name, v) }

// NewInt creates an integer option.
func NewInt(name string, v int64) Option { return internalcap.NewInt(name, v) }

// NewFloat creates a floating-point option.
func NewFloat(name string, v float64) Option { return internalcap.NewFloat(name, v) }

// NewString creates a string option.
func NewString(name, v string) Option { return internalcap.NewString(name, v) }

// Has reports whether set advertises a capability named name.
func Has(name string, set Set) bool { return internalcap.Has(name, set) }

// HasOption reports whether set advertises option with an equal typed value.
func HasOption(option Option, set Set) bool { return internalcap.HasOption(option, set) }

// ParseOption parses "name" or "name=value".
func ParseOption(s string) (Option, error) { return internalcap.ParseOption(s) }

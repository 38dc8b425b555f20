package strategy

import (
	"errors"
	"fmt"

	"github.com/born-ml/hetero/internal/graph"
)

// Counts tallies connections by their resolved strategy.
type Counts struct {
	Direct    int `json:"direct"`
	Export    int `json:"export"`
	Copy      int `json:"copy"`
	Undefined int `json:"undefined"`
}

// Total returns the number of connections counted.
func (c Counts) Total() int {
	return c.Direct + c.Export + c.Copy + c.Undefined
}

func (c *Counts) add(s graph.EdgeStrategy) {
	switch s {
	case graph.DirectCompatibility:
		c.Direct++
	case graph.ExportToTarget:
		c.Export++
	case graph.CopyToTarget:
		c.Copy++
	default:
		c.Undefined++
	}
}

// Result collects the diagnostics of one selection pass. Errors and warnings
// keep the order in which connections were visited.
type Result struct {
	HasError   bool     `json:"has_error"`
	HasWarning bool     `json:"has_warning"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	Counts     Counts   `json:"counts"`
}

func (r *Result) errorf(format string, args ...any) {
	r.HasError = true
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.HasWarning = true
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err joins every error message into one error, or returns nil when the pass
// found none.
func (r *Result) Err() error {
	if !r.HasError {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, msg := range r.Errors {
		errs[i] = errors.New(msg)
	}
	return errors.Join(errs...)
}

// Package names issues process-unique identifiers for auto-created
// intermediate tensors (padded buffers, dilated weights, reduction axes).
//
// A Generator is safe for concurrent use: it is a lock-free atomic counter,
// so builders running on independent goroutines never collide. Callers that
// need reproducible names per graph should give each graph its own Generator
// rather than sharing the package default.
package names

import (
	"fmt"
	"sync/atomic"
)

// Generator issues unique names with a given prefix.
// The zero value is ready to use.
type Generator struct {
	next atomic.Int64
}

// NewGenerator returns a fresh Generator starting at zero.
func NewGenerator() *Generator {
	return &Generator{}
}

// Unique returns prefix with a counter suffix, e.g. "pad_temp_3".
// Each call returns a different name, concurrently safe.
func (g *Generator) Unique(prefix string) string {
	n := g.next.Add(1) - 1
	return fmt.Sprintf("%s_%d", prefix, n)
}

var defaultGenerator Generator

// Unique issues a name from the shared process-wide generator.
func Unique(prefix string) string {
	return defaultGenerator.Unique(prefix)
}

package webview

import "sync/atomic"

// IDGenerator hands out view identifiers starting at 1.
// Identifiers are never reused; the zero value is ready to use.
type IDGenerator struct {
	last atomic.Uint64
}

// Next returns the next identifier.
func (g *IDGenerator) Next() uint64 {
	return g.last.Add(1)
}

var processIDs IDGenerator

// NextID returns a process-wide unique view identifier.
func NextID() uint64 {
	return processIDs.Next()
}

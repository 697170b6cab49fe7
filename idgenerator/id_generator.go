// Package idgenerator provides a concurrency-safe allocator of monotonically
// increasing uint32 IDs, used to identify connection sessions.
package idgenerator

import "sync/atomic"

// IdGenerator generates monotonically increasing uint32 IDs in a
// concurrency-safe manner. The starting value is set at construction and the
// first Id() returns startValue+1.
type IdGenerator struct {
	id atomic.Uint32
}

// NewIdGenerator creates an IdGenerator whose first Id() returns
// startValue+1. The generator is safe for concurrent use.
func NewIdGenerator(startValue uint32) *IdGenerator {
	gen := &IdGenerator{}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next unique ID by atomically incrementing the counter.
func (l *IdGenerator) Id() uint32 {
	return l.id.Add(1)
}

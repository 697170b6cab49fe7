// Package dbpool implements the fixed-size pool of backend persistence
// sessions. The pool is built eagerly at construction and fails fast: the
// process must not start serving with a partially built pool. Acquire blocks
// until a session is free; a Lease returns its session exactly once, on any
// exit path. The pool never grows, shrinks, or replaces a broken session;
// backend failures surface as errors on the session's next use.
package dbpool

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Backend is one pooled persistence session.
type Backend interface {
	// Close releases the session's underlying resources.
	Close() error
}

// DialFunc establishes one backend session. It is called Size times during
// pool construction.
type DialFunc func(ctx context.Context) (Backend, error)

// Pool holds a fixed set of backend sessions behind a bounded blocking
// queue. At most Size leases are outstanding at any instant.
type Pool struct {
	available chan Backend
	size      int
	owner     io.Closer
}

// New eagerly dials size backend sessions and returns the pool. If any dial
// fails, the sessions already established are closed and an error is
// returned.
//
// Parameters:
//   - ctx: Context bounding the construction dials
//   - size: Fixed number of backend sessions; must be positive
//   - dial: Function establishing one session
//
// Returns:
//   - The constructed pool, or an error if size is invalid or any dial failed
func New(ctx context.Context, size int, dial DialFunc) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("dbpool: pool size must be positive, got %d", size)
	}

	p := &Pool{
		available: make(chan Backend, size),
		size:      size,
	}

	for i := 0; i < size; i++ {
		backend, err := dial(ctx)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("dbpool: dialing backend session %d of %d: %w", i+1, size, err)
		}
		p.available <- backend
	}

	return p, nil
}

// Size returns the fixed number of sessions the pool was built with.
func (p *Pool) Size() int {
	return p.size
}

// Acquire blocks until a backend session is available or ctx is done, then
// returns a lease holding it. Waiters are woken in no guaranteed order.
//
// Parameters:
//   - ctx: Context bounding the wait
//
// Returns:
//   - A lease on an exclusively held session, or ctx.Err() if the context
//     ended first
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case backend := <-p.available:
		return &Lease{backend: backend, pool: p}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes every session currently sitting in the pool and the owning
// backend handle, if any. Sessions out on a lease are not touched; they are
// closed by the backend handle going away.
func (p *Pool) Close() error {
	var first error
	for {
		select {
		case backend := <-p.available:
			if err := backend.Close(); err != nil && first == nil {
				first = err
			}
		default:
			if p.owner != nil {
				if err := p.owner.Close(); err != nil && first == nil {
					first = err
				}
			}
			return first
		}
	}
}

// Lease is a checked-out backend session, exclusively held until released.
type Lease struct {
	backend Backend
	pool    *Pool
	once    sync.Once
}

// Backend returns the held session.
func (l *Lease) Backend() Backend {
	return l.backend
}

// Release returns the session to the pool and wakes one waiter. The return
// happens exactly once; further calls are no-ops.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.pool.available <- l.backend
	})
}

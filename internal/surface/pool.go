package surface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/logger"
)

// ErrPoolExhausted is returned by Acquire when every pooled surface is
// checked out. The frame that needed the surface fails; the pool is
// not grown and the acquire is not retried internally.
var ErrPoolExhausted = errors.New("surface: pool exhausted")

// ErrPoolInactive is returned when the pool could not be activated.
var ErrPoolInactive = errors.New("surface: pool inactive")

// Pool owns a bounded set of surfaces allocated for one format. A
// surface checked out via Acquire is exclusively owned by the caller
// until every reference is released, at which point it returns to the
// idle list.
type Pool struct {
	mu        sync.Mutex
	alloc     Allocator
	desc      format.Descriptor
	capacity  int
	idle      []*Surface
	allocated int
	active    bool
	drained   bool
}

// NewPool creates an inactive pool for the given format. Surfaces are
// allocated lazily on activation.
func NewPool(alloc Allocator, desc format.Descriptor, capacity int) (*Pool, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("surface: pool format: %w", err)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("surface: pool capacity must be positive, got %d", capacity)
	}
	return &Pool{
		alloc:    alloc,
		desc:     desc,
		capacity: capacity,
	}, nil
}

// Descriptor returns the format this pool allocates for.
func (p *Pool) Descriptor() format.Descriptor {
	return p.desc
}

// Active reports whether the pool has been activated.
func (p *Pool) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Activate makes the pool usable. Idempotent.
func (p *Pool) Activate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drained {
		return ErrPoolInactive
	}
	p.active = true
	return nil
}

// Acquire checks one surface out of the pool with a single owning
// reference. Fails with ErrPoolInactive if the pool is not active and
// ErrPoolExhausted when capacity surfaces are already checked out.
func (p *Pool) Acquire() (*Surface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active || p.drained {
		return nil, ErrPoolInactive
	}

	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		s.refs.Store(1)
		return s, nil
	}

	if p.allocated >= p.capacity {
		return nil, ErrPoolExhausted
	}

	s, err := p.alloc.Alloc(p.desc)
	if err != nil {
		return nil, fmt.Errorf("surface: alloc: %w", err)
	}
	s.pool = p
	s.refs.Store(1)
	p.allocated++
	return s, nil
}

// put returns a fully released surface to the idle list, or frees it
// if the pool has been drained in the meantime.
func (p *Pool) put(s *Surface) {
	p.mu.Lock()
	if p.drained {
		p.allocated--
		p.mu.Unlock()
		p.alloc.Free(s)
		return
	}
	p.idle = append(p.idle, s)
	p.mu.Unlock()
}

// Drain deactivates the pool and frees every idle surface. Surfaces
// still checked out are freed as they come back.
func (p *Pool) Drain() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.allocated -= len(idle)
	p.active = false
	p.drained = true
	p.mu.Unlock()

	for _, s := range idle {
		p.alloc.Free(s)
	}
}

// Manager keeps exactly one active pool matching the negotiated output
// format, replacing it wholesale when the format changes.
type Manager struct {
	mu       sync.Mutex
	alloc    Allocator
	capacity int
	pool     *Pool
}

// NewManager creates a pool manager drawing from the given allocator.
func NewManager(alloc Allocator, capacity int) *Manager {
	return &Manager{alloc: alloc, capacity: capacity}
}

// Ensure installs a pool for desc. If the current pool already matches
// the format this is a no-op. Replacement is atomic: on failure the
// previous pool stays usable.
func (m *Manager) Ensure(desc format.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil && !m.pool.Descriptor().Changed(desc) {
		return nil
	}

	pool, err := NewPool(m.alloc, desc, m.capacity)
	if err != nil {
		return err
	}

	if m.pool != nil {
		m.pool.Drain()
	}
	m.pool = pool

	logger.WithComponent("surface-pool").Debug().
		Stringer("format", desc).
		Int("capacity", m.capacity).
		Msg("surface pool replaced")
	return nil
}

// Acquire activates the current pool if needed and checks out one
// surface.
func (m *Manager) Acquire() (*Surface, error) {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()

	if pool == nil {
		return nil, ErrPoolInactive
	}
	if !pool.Active() {
		if err := pool.Activate(); err != nil {
			return nil, err
		}
	}
	return pool.Acquire()
}

// Descriptor returns the current pool's format, or false when no pool
// is installed.
func (m *Manager) Descriptor() (format.Descriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool == nil {
		return format.Descriptor{}, false
	}
	return m.pool.Descriptor(), true
}

// Reset drops the current pool entirely.
func (m *Manager) Reset() {
	m.mu.Lock()
	pool := m.pool
	m.pool = nil
	m.mu.Unlock()

	if pool != nil {
		pool.Drain()
	}
}

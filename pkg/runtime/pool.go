package runtime

import (
	"log/slog"
	"os"
)

// DefaultPoolSize is the slot count of every slab in a pool chain.
const DefaultPoolSize = 64

// EnvironmentPool is a fixed-size slab of environment slots, chained to
// overflow slabs of the same size when it runs out. Slabs are never shrunk or
// relocated, so an *Environment handed out stays valid until the collector
// reclaims its slot.
type EnvironmentPool struct {
	size         int
	freeIndex    int
	allocated    []bool
	environments []Environment
	overflow     *EnvironmentPool

	// Shared across the chain; only the head's copies are consulted.
	roots       func(visit func(Object))
	logger      *slog.Logger
	collections int
	reclaimed   int
}

// PoolOption configures an EnvironmentPool.
type PoolOption func(*EnvironmentPool)

// WithPoolSize sets the slot count per slab.
func WithPoolSize(size int) PoolOption {
	return func(p *EnvironmentPool) {
		if size > 0 {
			p.size = size
		}
	}
}

// WithPoolLogger sets the logger used for collection and growth events.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *EnvironmentPool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewEnvironmentPool creates the head slab of a pool chain.
func NewEnvironmentPool(options ...PoolOption) *EnvironmentPool {
	p := &EnvironmentPool{size: DefaultPoolSize}
	for _, option := range options {
		option(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	p.initialize()
	return p
}

func (p *EnvironmentPool) initialize() {
	p.freeIndex = 0
	p.allocated = make([]bool, p.size)
	p.environments = make([]Environment, p.size)
}

// SetRoots registers an extra root source visited by every collection, in
// addition to the live environments. The visitor may be called with any
// object; only closures reachable from it keep environments alive.
func (p *EnvironmentPool) SetRoots(roots func(visit func(Object))) {
	p.roots = roots
}

// Size returns the slot count per slab.
func (p *EnvironmentPool) Size() int {
	return p.size
}

// Create allocates a fresh, live environment under parent.
func (p *EnvironmentPool) Create(parent *Environment) (*Environment, error) {
	env, err := p.allocate(parent)
	if err != nil {
		return nil, err
	}
	env.initialize(parent)
	return env, nil
}

func (p *EnvironmentPool) scan() *Environment {
	for current := p; current != nil; current = current.overflow {
		for ; current.freeIndex < current.size; current.freeIndex++ {
			if !current.allocated[current.freeIndex] {
				current.allocated[current.freeIndex] = true
				return &current.environments[current.freeIndex]
			}
		}
	}
	return nil
}

// allocate tries the chain, then collects and retries, then grows. parent is
// kept alive through the collection because the caller is about to link the
// new environment to it.
func (p *EnvironmentPool) allocate(parent *Environment) (*Environment, error) {
	if env := p.scan(); env != nil {
		return env, nil
	}
	p.collect(parent)
	if env := p.scan(); env != nil {
		return env, nil
	}

	last := p
	for last.overflow != nil {
		last = last.overflow
	}
	last.overflow = &EnvironmentPool{size: p.size}
	last.overflow.initialize()
	p.logger.Debug("environment pool grown", slog.Int("pools", p.poolCount()), slog.Int("capacity", p.poolCount()*p.size))

	if env := last.overflow.scan(); env != nil {
		return env, nil
	}
	return nil, NewFault(FaultPoolExhausted, "no environment slot available after growing to %d pools", p.poolCount())
}

// Collect runs a full mark/sweep over the chain and returns how many slots
// were reclaimed.
func (p *EnvironmentPool) Collect() int {
	return p.collect(nil)
}

func (p *EnvironmentPool) collect(extra *Environment) int {
	for current := p; current != nil; current = current.overflow {
		for i := range current.environments {
			current.environments[i].mark = false
		}
	}

	for current := p; current != nil; current = current.overflow {
		for i := range current.environments {
			if current.allocated[i] && current.environments[i].live {
				current.environments[i].Mark()
			}
		}
	}
	extra.Mark()
	if p.roots != nil {
		p.roots(markObject)
	}

	freed := 0
	for current := p; current != nil; current = current.overflow {
		// The cursor only moves down, onto the lowest free slot.
		for i := current.size - 1; i >= 0; i-- {
			if current.allocated[i] && !current.environments[i].mark {
				current.environments[i].deinitialize()
				current.allocated[i] = false
				if i < current.freeIndex {
					current.freeIndex = i
				}
				freed++
			}
		}
	}

	p.collections++
	p.reclaimed += freed
	p.logger.Debug("environment pool collected", slog.Int("reclaimed", freed), slog.Int("allocated", p.allocatedCount()))
	return freed
}

// Deinitialize releases the bindings of every allocated slot, live or not.
// Only used when the whole thread shuts down.
func (p *EnvironmentPool) Deinitialize() {
	for current := p; current != nil; current = current.overflow {
		for i := range current.environments {
			if current.allocated[i] {
				current.environments[i].deinitialize()
				current.allocated[i] = false
			}
		}
		current.freeIndex = 0
	}
	p.overflow = nil
}

func (p *EnvironmentPool) poolCount() int {
	n := 0
	for current := p; current != nil; current = current.overflow {
		n++
	}
	return n
}

func (p *EnvironmentPool) allocatedCount() int {
	n := 0
	for current := p; current != nil; current = current.overflow {
		for _, flag := range current.allocated {
			if flag {
				n++
			}
		}
	}
	return n
}

// PoolStats summarises a pool chain.
type PoolStats struct {
	Pools       int
	Capacity    int
	Allocated   int
	Collections int
	Reclaimed   int
}

// Stats reports the current shape of the chain.
func (p *EnvironmentPool) Stats() PoolStats {
	pools := p.poolCount()
	return PoolStats{
		Pools:       pools,
		Capacity:    pools * p.size,
		Allocated:   p.allocatedCount(),
		Collections: p.collections,
		Reclaimed:   p.reclaimed,
	}
}

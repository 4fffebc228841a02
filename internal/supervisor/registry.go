package supervisor

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateJob   = errors.New("duplicate job id")
	ErrRegistryFrozen = errors.New("registry is frozen")
	ErrNotFrozen      = errors.New("registry is not frozen")
	ErrUnknownJob     = errors.New("unknown job id")
	ErrAwaited        = errors.New("handle already awaited")
)

// registry maps job identities to handles in insertion order.
// Mutation is phase gated: Insert until Freeze, then only Take.
// It is owned by a single Supervisor run and is not safe for concurrent use.
type registry struct {
	order   []uint32
	handles map[uint32]*Handle
	frozen  bool
}

func newRegistry(size int) *registry {
	return &registry{
		order:   make([]uint32, 0, size),
		handles: make(map[uint32]*Handle, size),
	}
}

func (r *registry) Insert(h *Handle) error {
	if r.frozen {
		return fmt.Errorf("inserting job %d: %w", h.id, ErrRegistryFrozen)
	}
	if _, ok := r.handles[h.id]; ok {
		return fmt.Errorf("inserting job %d: %w", h.id, ErrDuplicateJob)
	}
	r.order = append(r.order, h.id)
	r.handles[h.id] = h
	return nil
}

func (r *registry) Freeze() { r.frozen = true }

func (r *registry) Len() int { return len(r.handles) }

// IDs returns the identities in insertion order, including already taken ones.
func (r *registry) IDs() []uint32 {
	return append([]uint32(nil), r.order...)
}

// Each calls fn for every tracked handle in insertion order.
func (r *registry) Each(fn func(*Handle)) {
	for _, id := range r.order {
		if h, ok := r.handles[id]; ok {
			fn(h)
		}
	}
}

// Take removes the handle from the registry. Each handle can be taken once.
func (r *registry) Take(id uint32) (*Handle, error) {
	if !r.frozen {
		return nil, fmt.Errorf("taking job %d: %w", id, ErrNotFrozen)
	}
	h, ok := r.handles[id]
	if !ok {
		return nil, fmt.Errorf("taking job %d: %w", id, ErrUnknownJob)
	}
	delete(r.handles, id)
	return h, nil
}

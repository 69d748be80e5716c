package status

import (
	"context"
	"sync"
)

// Name is the canonical name of a transaction status
type Name string

const (
	Pending  Name = "PENDING"
	Approved Name = "APPROVED"
	Declined Name = "DECLINED"
	Voided   Name = "VOIDED"
	Error    Name = "ERROR"
)

// Names lists every status in seed order.
var Names = []Name{Pending, Approved, Declined, Voided, Error}

// Status is immutable reference data
type Status struct {
	ID   int
	Name Name
}

func (n Name) IsTerminal() bool {
	switch n {
	case Approved, Declined, Voided, Error:
		return true
	default:
		return false
	}
}

func (n Name) Valid() bool {
	for _, known := range Names {
		if n == known {
			return true
		}
	}
	return false
}

// Registry resolves a status name to its stored record.
type Registry interface {
	// FindByName returns ErrStatusNotFound for unknown names.
	FindByName(ctx context.Context, name Name) (Status, error)
}

// CachedRegistry memoizes lookups. Statuses never change at runtime.
type CachedRegistry struct {
	next Registry

	mu    sync.RWMutex
	cache map[Name]Status
}

func NewCachedRegistry(next Registry) *CachedRegistry {
	return &CachedRegistry{next: next, cache: make(map[Name]Status)}
}

func (r *CachedRegistry) FindByName(ctx context.Context, name Name) (Status, error) {
	r.mu.RLock()
	s, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := r.next.FindByName(ctx, name)
	if err != nil {
		return Status{}, err
	}

	r.mu.Lock()
	r.cache[name] = s
	r.mu.Unlock()
	return s, nil
}

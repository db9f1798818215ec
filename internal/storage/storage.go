package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"bag-reindex/internal/bag"
)

var ErrUnknownStorage = errors.New("unknown storage identifier")

// Storage is a single segment opened for reading.
type Storage interface {
	Metadata(ctx context.Context) (bag.Metadata, error)
	Close() error
}

// Factory opens segments for a storage identifier.
type Factory interface {
	OpenReadOnly(ctx context.Context, path, storageID string) (Storage, error)
}

type OpenFunc func(ctx context.Context, path string) (Storage, error)

type Backend struct {
	ID        string
	Extension string
	Open      OpenFunc
}

// Registry maps storage identifiers to backends. It implements Factory.
type Registry struct {
	backends map[string]Backend
}

func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Default returns a registry with every built-in backend.
func Default() *Registry {
	return NewRegistry(SQLiteBackend())
}

func (r *Registry) Register(b Backend) {
	r.backends[b.ID] = b
}

func (r *Registry) Backend(storageID string) (Backend, error) {
	b, ok := r.backends[storageID]
	if !ok {
		return Backend{}, fmt.Errorf("%w: reindex for storage type %s not implemented", ErrUnknownStorage, storageID)
	}
	return b, nil
}

func (r *Registry) Extension(storageID string) (string, error) {
	b, err := r.Backend(storageID)
	if err != nil {
		return "", err
	}
	return b.Extension, nil
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.backends))
	for id := range r.backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) OpenReadOnly(ctx context.Context, path, storageID string) (Storage, error) {
	b, err := r.Backend(storageID)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, path)
}

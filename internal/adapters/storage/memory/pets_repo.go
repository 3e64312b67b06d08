package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"person-registry/internal/domain/pets"
)

type petRepo struct {
	mu   sync.RWMutex
	byID map[string]pets.Pet
}

func NewPetRepo() pets.Repository {
	return &petRepo{
		byID: make(map[string]pets.Pet),
	}
}

// InTx toma una copia del estado y la restaura si fn falla. No aísla de
// escritores concurrentes; alcanza para el adapter de desarrollo y tests.
func (r *petRepo) InTx(ctx context.Context, fn func(pets.Repository) error) error {
	r.mu.Lock()
	snapshot := make(map[string]pets.Pet, len(r.byID))
	for id, p := range r.byID {
		snapshot[id] = p
	}
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.byID = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *petRepo) Create(ctx context.Context, p pets.Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("pet id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("pet already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *petRepo) Update(ctx context.Context, p pets.Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; !exists {
		return pets.ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *petRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return pets.Pet{}, pets.ErrNotFound
	}
	return p, nil
}

func (r *petRepo) ListByPerson(ctx context.Context, personID string) ([]pets.Pet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]pets.Pet, 0)
	for _, p := range r.byID {
		if p.PersonID == personID {
			out = append(out, p)
		}
	}

	// el inline formset mapea formularios iniciales por índice, así que
	// el orden tiene que ser estable entre render y envío
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *petRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return pets.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *petRepo) DeleteByPerson(ctx context.Context, personID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.byID {
		if p.PersonID == personID {
			delete(r.byID, id)
		}
	}
	return nil
}

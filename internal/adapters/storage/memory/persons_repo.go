package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"person-registry/internal/domain/persons"
)

type personRepo struct {
	mu   sync.RWMutex
	byID map[string]persons.Person
}

func NewPersonRepo() persons.Repository {
	return &personRepo{
		byID: make(map[string]persons.Person),
	}
}

// InTx toma una copia del estado y la restaura si fn falla. No aísla de
// escritores concurrentes; alcanza para el adapter de desarrollo y tests.
func (r *personRepo) InTx(ctx context.Context, fn func(persons.Repository) error) error {
	r.mu.Lock()
	snapshot := make(map[string]persons.Person, len(r.byID))
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

func (r *personRepo) Create(ctx context.Context, p persons.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("person id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("person already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *personRepo) Update(ctx context.Context, p persons.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; !exists {
		return persons.ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *personRepo) GetByID(ctx context.Context, id string) (persons.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return persons.Person{}, persons.ErrNotFound
	}
	return p, nil
}

func (r *personRepo) GetByEmail(ctx context.Context, email string) (persons.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, p := range r.byID {
		if strings.ToLower(p.Email) == email {
			return p, nil
		}
	}
	return persons.Person{}, persons.ErrNotFound
}

func (r *personRepo) List(ctx context.Context) ([]persons.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]persons.Person, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}

	// orden estable por created_at asc (consistencia en dev y tests)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *personRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return persons.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

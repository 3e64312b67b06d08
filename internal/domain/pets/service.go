package pets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("pet not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrPersonNotFound = errors.New("person not found")
)

// PersonDirectory verifica que la persona referenciada exista antes de
// asociarle una mascota. Lo implementa el service de persons.
type PersonDirectory interface {
	Exists(ctx context.Context, personID string) (bool, error)
}

type Service struct {
	repo    Repository
	persons PersonDirectory
	now     func() time.Time
}

func NewService(repo Repository, persons PersonDirectory) *Service {
	return &Service{
		repo:    repo,
		persons: persons,
		now:     time.Now,
	}
}

// Save persiste la instancia que produjo un formulario válido, verificando
// primero la integridad referencial hacia la persona.
func (s *Service) Save(ctx context.Context, p *Pet) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(p.PersonID) == "" {
		return ErrPersonNotFound
	}
	if s.persons != nil {
		ok, err := s.persons.Exists(ctx, p.PersonID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPersonNotFound
		}
	}

	now := s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = now
		p.UpdatedAt = now
		return s.repo.Create(ctx, *p)
	}
	p.UpdatedAt = now
	return s.repo.Update(ctx, *p)
}

// InTx ejecuta fn con un service ligado a una transacción del repositorio:
// si fn falla, nada de lo guardado adentro queda aplicado. Lo usa el envío
// del inline formset para no aplicar submissions a medias.
func (s *Service) InTx(ctx context.Context, fn func(*Service) error) error {
	return s.repo.InTx(ctx, func(repo Repository) error {
		return fn(&Service{repo: repo, persons: s.persons, now: s.now})
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPerson(ctx context.Context, personID string) ([]Pet, error) {
	return s.repo.ListByPerson(ctx, personID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// DeleteByPerson satisface el purger de dependientes que usa persons al
// borrar una persona.
func (s *Service) DeleteByPerson(ctx context.Context, personID string) error {
	return s.repo.DeleteByPerson(ctx, personID)
}

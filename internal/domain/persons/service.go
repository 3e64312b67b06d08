package persons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("person not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmailTaken   = errors.New("email already registered")
)

// DependentPurger elimina los registros dependientes de una persona al
// borrarla. Lo implementa el service de pets; se conecta en el router.
type DependentPurger interface {
	DeleteByPerson(ctx context.Context, personID string) error
}

type Service struct {
	repo   Repository
	purger DependentPurger
	now    func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// SetDependentPurger conecta el borrado en cascada de dependientes.
// Separado del constructor porque pets y persons se referencian mutuamente
// a nivel de services.
func (s *Service) SetDependentPurger(p DependentPurger) {
	s.purger = p
}

// Save persiste la instancia que produjo un formulario válido: crea cuando
// no tiene ID y actualiza cuando sí. La unicidad de email se verifica acá,
// no en el formulario, y se reporta como ErrEmailTaken.
func (s *Service) Save(ctx context.Context, p *Person) error {
	if p == nil {
		return ErrInvalidInput
	}
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return ErrInvalidInput
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" {
		return ErrInvalidInput
	}

	taken, err := s.EmailTaken(ctx, p.Email, p.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
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

// EmailTaken informa si el email ya pertenece a una persona distinta de
// excludeID. Lo usa Save y la validación previa del alta por lotes.
func (s *Service) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	existing, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ID != excludeID, nil
}

// InTx ejecuta fn con un service ligado a una transacción del repositorio:
// si fn falla, nada de lo guardado adentro queda aplicado. Lo usa el alta
// por lotes para que el envío sea una sola unidad.
func (s *Service) InTx(ctx context.Context, fn func(*Service) error) error {
	return s.repo.InTx(ctx, func(repo Repository) error {
		return fn(&Service{repo: repo, purger: s.purger, now: s.now})
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (Person, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Person, error) {
	return s.repo.List(ctx)
}

// Exists satisface la verificación de integridad referencial que exige el
// service de pets antes de asociar una mascota.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete borra la persona y sus dependientes.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if s.purger != nil {
		if err := s.purger.DeleteByPerson(ctx, id); err != nil {
			return err
		}
	}
	return s.repo.Delete(ctx, id)
}

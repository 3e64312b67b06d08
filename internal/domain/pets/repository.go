package pets

import "context"

type Repository interface {
	Create(ctx context.Context, p Pet) error
	Update(ctx context.Context, p Pet) error
	GetByID(ctx context.Context, id string) (Pet, error)
	ListByPerson(ctx context.Context, personID string) ([]Pet, error)
	Delete(ctx context.Context, id string) error
	DeleteByPerson(ctx context.Context, personID string) error

	// InTx ejecuta fn contra un repositorio transaccional: si fn devuelve
	// error, ninguna de sus escrituras queda aplicada.
	InTx(ctx context.Context, fn func(Repository) error) error
}

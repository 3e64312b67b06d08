package persons

import "context"

type Repository interface {
	Create(ctx context.Context, p Person) error
	Update(ctx context.Context, p Person) error
	GetByID(ctx context.Context, id string) (Person, error)
	GetByEmail(ctx context.Context, email string) (Person, error)
	List(ctx context.Context) ([]Person, error)
	Delete(ctx context.Context, id string) error

	// InTx ejecuta fn contra un repositorio transaccional: si fn devuelve
	// error, ninguna de sus escrituras queda aplicada.
	InTx(ctx context.Context, fn func(Repository) error) error
}

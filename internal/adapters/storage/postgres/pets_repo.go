package postgres

import (
	"context"
	"database/sql"
	"strings"

	"person-registry/internal/domain/pets"
)

type PetsRepo struct {
	db *sql.DB // nil dentro de una transacción
	q  querier
}

func NewPetsRepo(db *sql.DB) *PetsRepo {
	return &PetsRepo{db: db, q: db}
}

// InTx corre fn sobre un repositorio ligado a una transacción. Anidado se
// ejecuta sobre la transacción ya abierta.
func (r *PetsRepo) InTx(ctx context.Context, fn func(pets.Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&PetsRepo{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *PetsRepo) Create(ctx context.Context, p pets.Pet) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO pets (
			id, person_id, name, race, created_date,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		p.ID,
		p.PersonID,
		p.Name,
		string(p.Race),
		p.CreatedDate,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PetsRepo) Update(ctx context.Context, p pets.Pet) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE pets
		SET
			person_id = $2,
			name = $3,
			race = $4,
			created_date = $5,
			updated_at = $6
		WHERE id = $1
	`,
		p.ID,
		p.PersonID,
		p.Name,
		string(p.Race),
		p.CreatedDate,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return pets.ErrNotFound
	}
	return nil
}

const petColumns = `
	id, person_id, name, race, created_date, created_at, updated_at
`

func (r *PetsRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return pets.Pet{}, pets.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx,
		`SELECT `+petColumns+` FROM pets WHERE id = $1`, id)
	return scanPet(row)
}

func (r *PetsRepo) ListByPerson(ctx context.Context, personID string) ([]pets.Pet, error) {
	personID = strings.TrimSpace(personID)
	if personID == "" {
		return nil, nil
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+petColumns+`
		FROM pets
		WHERE person_id = $1
		ORDER BY created_at ASC, id ASC
	`, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]pets.Pet, 0)
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PetsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return pets.ErrNotFound
	}
	return nil
}

func (r *PetsRepo) DeleteByPerson(ctx context.Context, personID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM pets WHERE person_id = $1`, personID)
	return err
}

func scanPet(row rowScanner) (pets.Pet, error) {
	var p pets.Pet
	var race string
	if err := row.Scan(
		&p.ID,
		&p.PersonID,
		&p.Name,
		&race,
		&p.CreatedDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return pets.Pet{}, pets.ErrNotFound
		}
		return pets.Pet{}, err
	}
	p.Race = pets.Race(race)
	return p, nil
}

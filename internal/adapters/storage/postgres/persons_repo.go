package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"person-registry/internal/domain/persons"
)

type PersonsRepo struct {
	db *sql.DB // nil dentro de una transacción
	q  querier
}

func NewPersonsRepo(db *sql.DB) *PersonsRepo {
	return &PersonsRepo{db: db, q: db}
}

// InTx corre fn sobre un repositorio ligado a una transacción. Anidado se
// ejecuta sobre la transacción ya abierta.
func (r *PersonsRepo) InTx(ctx context.Context, fn func(persons.Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&PersonsRepo{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *PersonsRepo) Create(ctx context.Context, p persons.Person) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO persons (
			id, first_name, last_name, email, phone,
			birth_date, notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		p.ID,
		p.FirstName,
		p.LastName,
		p.Email,
		p.Phone,
		toNullDate(p.BirthDate),
		p.Notes,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PersonsRepo) Update(ctx context.Context, p persons.Person) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE persons
		SET
			first_name = $2,
			last_name = $3,
			email = $4,
			phone = $5,
			birth_date = $6,
			notes = $7,
			updated_at = $8
		WHERE id = $1
	`,
		p.ID,
		p.FirstName,
		p.LastName,
		p.Email,
		p.Phone,
		toNullDate(p.BirthDate),
		p.Notes,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return persons.ErrNotFound
	}
	return nil
}

const personColumns = `
	id, first_name, last_name, email, phone,
	birth_date, notes, created_at, updated_at
`

func (r *PersonsRepo) GetByID(ctx context.Context, id string) (persons.Person, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return persons.Person{}, persons.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1`, id)
	return scanPerson(row)
}

func (r *PersonsRepo) GetByEmail(ctx context.Context, email string) (persons.Person, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return persons.Person{}, persons.ErrNotFound
	}
	row := r.q.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE lower(email) = $1`, email)
	return scanPerson(row)
}

func (r *PersonsRepo) List(ctx context.Context) ([]persons.Person, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+personColumns+` FROM persons ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]persons.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PersonsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return persons.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (persons.Person, error) {
	var p persons.Person
	var bd sql.NullTime
	if err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&bd,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return persons.Person{}, persons.ErrNotFound
		}
		return persons.Person{}, err
	}
	if bd.Valid {
		t := bd.Time
		p.BirthDate = &t
	}
	return p, nil
}

// birth_date es DATE; NullTime simplifica el ida y vuelta
func toNullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

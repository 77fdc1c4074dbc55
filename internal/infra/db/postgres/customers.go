package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"naturezabrindes/quote_backend/internal/domain/customer"
)

type Customers struct {
	db *DB
}

func NewCustomers(db *DB) *Customers { return &Customers{db: db} }

const customerColumns = `id, email, name, phone, company, tax_id, created_at`

func scanCustomer(row pgx.Row) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.Company, &c.TaxID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return customer.Customer{}, customer.ErrNotFound
	}
	return c, err
}

func (r *Customers) FindByEmail(ctx context.Context, email string) (customer.Customer, error) {
	return scanCustomer(r.db.Pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = $1`, email))
}

func (r *Customers) Get(ctx context.Context, id string) (customer.Customer, error) {
	return scanCustomer(r.db.Pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

// InsertIfAbsent relies on the unique email index: a losing concurrent insert
// returns no row and the winner is read back.
func (r *Customers) InsertIfAbsent(ctx context.Context, c customer.Customer) (customer.Customer, bool, error) {
	stored, err := scanCustomer(r.db.Pool.QueryRow(ctx, `
		INSERT INTO customers (id, email, name, phone, company, tax_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
		RETURNING `+customerColumns,
		c.ID, c.Email, c.Name, c.Phone, c.Company, c.TaxID, c.CreatedAt))
	switch {
	case err == nil:
		return stored, true, nil
	case errors.Is(err, customer.ErrNotFound):
		stored, err = r.FindByEmail(ctx, c.Email)
		return stored, false, err
	default:
		return customer.Customer{}, false, err
	}
}

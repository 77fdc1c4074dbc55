package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"naturezabrindes/quote_backend/internal/domain/customer"
)

type Customers struct {
	d *DB
}

func NewCustomers(d *DB) *Customers { return &Customers{d: d} }

const customerColumns = `id, email, name, phone, company, tax_id, created_at`

func scanCustomer(row *sql.Row) (customer.Customer, error) {
	var (
		c       customer.Customer
		created string
	)
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Phone, &c.Company, &c.TaxID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return customer.Customer{}, customer.ErrNotFound
	}
	if err != nil {
		return customer.Customer{}, err
	}
	c.CreatedAt, err = parseTime(created)
	return c, err
}

func (r *Customers) FindByEmail(ctx context.Context, email string) (customer.Customer, error) {
	return scanCustomer(r.d.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE email = ?`, email))
}

func (r *Customers) Get(ctx context.Context, id string) (customer.Customer, error) {
	return scanCustomer(r.d.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id))
}

func (r *Customers) InsertIfAbsent(ctx context.Context, c customer.Customer) (customer.Customer, bool, error) {
	res, err := r.d.db.ExecContext(ctx, `
		INSERT INTO customers (id, email, name, phone, company, tax_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING`,
		c.ID, c.Email, c.Name, c.Phone, c.Company, c.TaxID, formatTime(c.CreatedAt))
	if err != nil {
		return customer.Customer{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return customer.Customer{}, false, err
	}
	stored, err := r.FindByEmail(ctx, c.Email)
	return stored, n == 1, err
}

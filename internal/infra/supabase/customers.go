package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"naturezabrindes/quote_backend/internal/domain/customer"
)

const customersTable = "usuarios_clientes"

type clienteRow struct {
	ID        string     `json:"id"`
	Nome      string     `json:"nome"`
	Email     string     `json:"email"`
	Telefone  string     `json:"telefone"`
	Empresa   string     `json:"empresa"`
	CNPJ      string     `json:"cnpj"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (r clienteRow) customer() customer.Customer {
	c := customer.Customer{
		ID:      r.ID,
		Email:   r.Email,
		Name:    r.Nome,
		Phone:   r.Telefone,
		Company: r.Empresa,
		TaxID:   r.CNPJ,
	}
	if r.CreatedAt != nil {
		c.CreatedAt = r.CreatedAt.UTC()
	}
	return c
}

type Customers struct {
	c *Client
}

func NewCustomers(c *Client) *Customers { return &Customers{c: c} }

func (r *Customers) findOne(ctx context.Context, field, value string) (customer.Customer, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set(field, "eq."+value)
	q.Set("limit", "1")

	var rows []clienteRow
	if _, err := r.c.do(ctx, request{method: http.MethodGet, table: customersTable, query: q}, &rows); err != nil {
		return customer.Customer{}, err
	}
	if len(rows) == 0 {
		return customer.Customer{}, customer.ErrNotFound
	}
	return rows[0].customer(), nil
}

func (r *Customers) FindByEmail(ctx context.Context, email string) (customer.Customer, error) {
	return r.findOne(ctx, "email", email)
}

func (r *Customers) Get(ctx context.Context, id string) (customer.Customer, error) {
	return r.findOne(ctx, "id", id)
}

// InsertIfAbsent ignores duplicates on the email key; an empty representation
// means another writer owns the email.
func (r *Customers) InsertIfAbsent(ctx context.Context, c customer.Customer) (customer.Customer, bool, error) {
	created := c.CreatedAt.UTC()
	row := clienteRow{
		ID:        c.ID,
		Nome:      c.Name,
		Email:     c.Email,
		Telefone:  c.Phone,
		Empresa:   c.Company,
		CNPJ:      c.TaxID,
		CreatedAt: &created,
	}
	q := url.Values{}
	q.Set("on_conflict", "email")

	var rows []clienteRow
	_, err := r.c.do(ctx, request{
		method: http.MethodPost,
		table:  customersTable,
		query:  q,
		body:   []clienteRow{row},
		prefer: []string{"resolution=ignore-duplicates", "return=representation"},
	}, &rows)
	if err != nil {
		return customer.Customer{}, false, err
	}
	if len(rows) == 1 {
		return rows[0].customer(), true, nil
	}
	stored, err := r.FindByEmail(ctx, c.Email)
	return stored, false, err
}

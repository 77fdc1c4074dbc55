package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"naturezabrindes/quote_backend/internal/domain/customer"
	"naturezabrindes/quote_backend/internal/domain/quote"
)

type Quotes struct {
	db *DB
}

func NewQuotes(db *DB) *Quotes { return &Quotes{db: db} }

const quoteSelect = `
	SELECT q.id, q.reference, q.customer_id, q.notes, q.status, q.created_at, q.updated_at,
	       c.id, c.email, c.name, c.phone, c.company, c.tax_id, c.created_at
	FROM quotes q
	JOIN customers c ON c.id = q.customer_id`

const itemColumns = `id, quote_id, position, product_code, product_name, quantity1, quantity2, quantity3,
	color, customizations, image_url, notes, free`

func scanQuote(row pgx.Row) (quote.Quote, error) {
	var (
		q quote.Quote
		c customer.Customer
	)
	err := row.Scan(&q.ID, &q.Reference, &q.CustomerID, &q.Notes, &q.Status, &q.CreatedAt, &q.UpdatedAt,
		&c.ID, &c.Email, &c.Name, &c.Phone, &c.Company, &c.TaxID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return quote.Quote{}, quote.ErrNotFound
	}
	if err != nil {
		return quote.Quote{}, err
	}
	q.Customer = &c
	return q, nil
}

func (r *Quotes) Create(ctx context.Context, q quote.Quote) (quote.Quote, error) {
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO quotes (id, reference, customer_id, notes, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			q.ID, q.Reference, q.CustomerID, q.Notes, q.Status, q.CreatedAt, q.UpdatedAt); err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}
		for i := range q.Items {
			it := &q.Items[i]
			it.QuoteID = q.ID
			var customizations []byte
			if len(it.Customizations) > 0 {
				customizations = it.Customizations
			}
			if err := tx.QueryRow(ctx, `
				INSERT INTO quote_items (quote_id, position, product_code, product_name, quantity1, quantity2, quantity3,
					color, customizations, image_url, notes, free)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				RETURNING id`,
				it.QuoteID, it.Position, it.ProductCode, it.ProductName, it.Quantity1, it.Quantity2, it.Quantity3,
				it.Color, customizations, it.ImageURL, it.Notes, it.Free).Scan(&it.ID); err != nil {
				return fmt.Errorf("insert item %d: %w", it.Position, err)
			}
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	return q, nil
}

func (r *Quotes) Get(ctx context.Context, id string) (quote.Quote, error) {
	q, err := scanQuote(r.db.Pool.QueryRow(ctx, quoteSelect+` WHERE q.id = $1`, id))
	if err != nil {
		return quote.Quote{}, err
	}
	items, err := r.items(ctx, []string{q.ID})
	if err != nil {
		return quote.Quote{}, err
	}
	q.Items = items[q.ID]
	return q, nil
}

func (r *Quotes) List(ctx context.Context, p quote.ListParams) (quote.Page, error) {
	var page quote.Page
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM quotes WHERE ($1 = '' OR status = $1)`, string(p.Status)).Scan(&page.Total); err != nil {
		return quote.Page{}, fmt.Errorf("count quotes: %w", err)
	}

	dir := "DESC"
	if p.Ascending {
		dir = "ASC"
	}
	// p.SortBy is one of the whitelisted columns from quote.ParseListParams
	rows, err := r.db.Pool.Query(ctx, fmt.Sprintf(`%s
		WHERE ($1 = '' OR q.status = $1)
		ORDER BY q.%s %s, q.id
		LIMIT $2 OFFSET $3`, quoteSelect, p.SortBy, dir),
		string(p.Status), p.Limit, p.Offset())
	if err != nil {
		return quote.Page{}, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return quote.Page{}, err
		}
		page.Quotes = append(page.Quotes, q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return quote.Page{}, err
	}

	items, err := r.items(ctx, ids)
	if err != nil {
		return quote.Page{}, err
	}
	for i := range page.Quotes {
		page.Quotes[i].Items = items[page.Quotes[i].ID]
	}
	return page, nil
}

func (r *Quotes) items(ctx context.Context, ids []string) (map[string][]quote.LineItem, error) {
	out := make(map[string][]quote.LineItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+itemColumns+` FROM quote_items WHERE quote_id = ANY($1) ORDER BY quote_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it             quote.LineItem
			customizations []byte
		)
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.Position, &it.ProductCode, &it.ProductName,
			&it.Quantity1, &it.Quantity2, &it.Quantity3, &it.Color, &customizations, &it.ImageURL, &it.Notes, &it.Free); err != nil {
			return nil, err
		}
		it.Customizations = customizations
		out[it.QuoteID] = append(out[it.QuoteID], it)
	}
	return out, rows.Err()
}

func (r *Quotes) UpdateStatus(ctx context.Context, id string, status quote.Status, at time.Time) (quote.Quote, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE quotes SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return quote.Quote{}, quote.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Quotes) Delete(ctx context.Context, id string) (quote.Quote, error) {
	q, err := r.Get(ctx, id)
	if err != nil {
		return quote.Quote{}, err
	}
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, id); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete quote: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return quote.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	return q, nil
}

func (r *Quotes) Stats(ctx context.Context) (quote.Stats, error) {
	var st quote.Stats
	rows, err := r.db.Pool.Query(ctx, `SELECT status, count(*) FROM quotes GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("stats: %w", err)
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return st, err
		}
		st.Add(quote.Status(status), n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	rows, err = r.db.Pool.Query(ctx, `
		SELECT q.id, q.reference, c.name, c.company, q.status, q.created_at
		FROM quotes q JOIN customers c ON c.id = q.customer_id
		ORDER BY q.created_at DESC LIMIT $1`, quote.RecentLimit)
	if err != nil {
		return st, fmt.Errorf("recent quotes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s quote.Summary
		if err := rows.Scan(&s.ID, &s.Reference, &s.CustomerName, &s.Company, &s.Status, &s.CreatedAt); err != nil {
			return st, err
		}
		st.Recent = append(st.Recent, s)
	}
	return st, rows.Err()
}

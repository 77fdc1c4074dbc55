package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"naturezabrindes/quote_backend/internal/domain/customer"
	"naturezabrindes/quote_backend/internal/domain/quote"
)

type Quotes struct {
	d *DB
}

func NewQuotes(d *DB) *Quotes { return &Quotes{d: d} }

type scanner interface {
	Scan(dest ...any) error
}

const quoteSelect = `
	SELECT q.id, q.reference, q.customer_id, q.notes, q.status, q.created_at, q.updated_at,
	       c.id, c.email, c.name, c.phone, c.company, c.tax_id, c.created_at
	FROM quotes q
	JOIN customers c ON c.id = q.customer_id`

const itemColumns = `id, quote_id, position, product_code, product_name, quantity1, quantity2, quantity3,
	color, customizations, image_url, notes, free`

func scanQuote(row scanner) (quote.Quote, error) {
	var (
		q      quote.Quote
		c      customer.Customer
		custAt string
	)
	var created, updated string
	err := row.Scan(&q.ID, &q.Reference, &q.CustomerID, &q.Notes, &q.Status, &created, &updated,
		&c.ID, &c.Email, &c.Name, &c.Phone, &c.Company, &c.TaxID, &custAt)
	if errors.Is(err, sql.ErrNoRows) {
		return quote.Quote{}, quote.ErrNotFound
	}
	if err != nil {
		return quote.Quote{}, err
	}
	if q.CreatedAt, err = parseTime(created); err != nil {
		return quote.Quote{}, err
	}
	if q.UpdatedAt, err = parseTime(updated); err != nil {
		return quote.Quote{}, err
	}
	if c.CreatedAt, err = parseTime(custAt); err != nil {
		return quote.Quote{}, err
	}
	q.Customer = &c
	return q, nil
}

func (r *Quotes) Create(ctx context.Context, q quote.Quote) (quote.Quote, error) {
	err := r.d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quotes (id, reference, customer_id, notes, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.Reference, q.CustomerID, q.Notes, string(q.Status), formatTime(q.CreatedAt), formatTime(q.UpdatedAt)); err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO quote_items (quote_id, position, product_code, product_name, quantity1, quantity2, quantity3,
				color, customizations, image_url, notes, free)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range q.Items {
			it := &q.Items[i]
			it.QuoteID = q.ID
			var customizations any
			if len(it.Customizations) > 0 {
				customizations = string(it.Customizations)
			}
			res, err := stmt.ExecContext(ctx, it.QuoteID, it.Position, it.ProductCode, it.ProductName,
				it.Quantity1, it.Quantity2, it.Quantity3, it.Color, customizations, it.ImageURL, it.Notes, it.Free)
			if err != nil {
				return fmt.Errorf("insert item %d: %w", it.Position, err)
			}
			if it.ID, err = res.LastInsertId(); err != nil {
				return err
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
	q, err := scanQuote(r.d.db.QueryRowContext(ctx, quoteSelect+` WHERE q.id = ?`, id))
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
	status := string(p.Status)
	if err := r.d.db.QueryRowContext(ctx,
		`SELECT count(*) FROM quotes WHERE (? = '' OR status = ?)`, status, status).Scan(&page.Total); err != nil {
		return quote.Page{}, fmt.Errorf("count quotes: %w", err)
	}

	dir := "DESC"
	if p.Ascending {
		dir = "ASC"
	}
	// p.SortBy is one of the whitelisted columns from quote.ParseListParams
	rows, err := r.d.db.QueryContext(ctx, fmt.Sprintf(`%s
		WHERE (? = '' OR q.status = ?)
		ORDER BY q.%s %s, q.id
		LIMIT ? OFFSET ?`, quoteSelect, p.SortBy, dir),
		status, status, p.Limit, p.Offset())
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
	rows.Close()

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
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := r.d.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM quote_items WHERE quote_id IN (`+placeholders+`) ORDER BY quote_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it             quote.LineItem
			code           sql.NullString
			customizations sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.Position, &code, &it.ProductName,
			&it.Quantity1, &it.Quantity2, &it.Quantity3, &it.Color, &customizations, &it.ImageURL, &it.Notes, &it.Free); err != nil {
			return nil, err
		}
		if code.Valid {
			it.ProductCode = &code.String
		}
		if customizations.Valid {
			it.Customizations = []byte(customizations.String)
		}
		out[it.QuoteID] = append(out[it.QuoteID], it)
	}
	return out, rows.Err()
}

func (r *Quotes) UpdateStatus(ctx context.Context, id string, status quote.Status, at time.Time) (quote.Quote, error) {
	res, err := r.d.db.ExecContext(ctx,
		`UPDATE quotes SET status = ?, updated_at = ? WHERE id = ?`, string(status), formatTime(at), id)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quote.Quote{}, quote.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Quotes) Delete(ctx context.Context, id string) (quote.Quote, error) {
	q, err := r.Get(ctx, id)
	if err != nil {
		return quote.Quote{}, err
	}
	err = r.d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM quote_items WHERE quote_id = ?`, id); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete quote: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
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
	rows, err := r.d.db.QueryContext(ctx, `SELECT status, count(*) FROM quotes GROUP BY status`)
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

	rows, err = r.d.db.QueryContext(ctx, `
		SELECT q.id, q.reference, c.name, c.company, q.status, q.created_at
		FROM quotes q JOIN customers c ON c.id = q.customer_id
		ORDER BY q.created_at DESC LIMIT ?`, quote.RecentLimit)
	if err != nil {
		return st, fmt.Errorf("recent quotes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			s       quote.Summary
			created string
		)
		if err := rows.Scan(&s.ID, &s.Reference, &s.CustomerName, &s.Company, &s.Status, &created); err != nil {
			return st, err
		}
		if s.CreatedAt, err = parseTime(created); err != nil {
			return st, err
		}
		st.Recent = append(st.Recent, s)
	}
	return st, rows.Err()
}

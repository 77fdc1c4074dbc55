package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"naturezabrindes/quote_backend/internal/domain/notify"
)

type Outbox struct {
	d *DB
}

func NewOutbox(d *DB) *Outbox { return &Outbox{d: d} }

const outboxColumns = `id, recipient, subject, template, payload, status, provider_response, error, created_at, updated_at`

func (r *Outbox) Insert(ctx context.Context, e notify.Entry) (int64, error) {
	payload := string(e.Payload)
	if payload == "" {
		payload = "null"
	}
	res, err := r.d.db.ExecContext(ctx, `
		INSERT INTO email_outbox (recipient, subject, template, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Recipient, e.Subject, e.Template, payload, string(e.Status), formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert outbox: %w", err)
	}
	return res.LastInsertId()
}

func (r *Outbox) MarkSent(ctx context.Context, id int64, resp notify.ProviderResponse, at time.Time) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return r.finalize(ctx, id, `
		UPDATE email_outbox SET status = 'sent', provider_response = ?, updated_at = ?
		WHERE id = ? AND status = 'queued'`, string(raw), at)
}

func (r *Outbox) MarkError(ctx context.Context, id int64, d notify.Diagnostic, at time.Time) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.finalize(ctx, id, `
		UPDATE email_outbox SET status = 'error', error = ?, updated_at = ?
		WHERE id = ? AND status = 'queued'`, string(raw), at)
}

func (r *Outbox) finalize(ctx context.Context, id int64, query, raw string, at time.Time) error {
	res, err := r.d.db.ExecContext(ctx, query, raw, formatTime(at), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var exists bool
	if err := r.d.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM email_outbox WHERE id = ?)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return notify.ErrNotFound
	}
	return notify.ErrNotQueued
}

func (r *Outbox) Get(ctx context.Context, id int64) (notify.Entry, error) {
	e, err := scanEntry(r.d.db.QueryRowContext(ctx, `SELECT `+outboxColumns+` FROM email_outbox WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return notify.Entry{}, notify.ErrNotFound
	}
	return e, err
}

func (r *Outbox) List(ctx context.Context, status notify.Status, limit int) ([]notify.Entry, error) {
	rows, err := r.d.db.QueryContext(ctx, `
		SELECT `+outboxColumns+` FROM email_outbox
		WHERE (? = '' OR status = ?)
		ORDER BY id DESC LIMIT ?`, string(status), string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	defer rows.Close()

	var out []notify.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row scanner) (notify.Entry, error) {
	var (
		e                notify.Entry
		payload          string
		resp, diagnostic sql.NullString
		created, updated string
	)
	if err := row.Scan(&e.ID, &e.Recipient, &e.Subject, &e.Template, &payload, &e.Status, &resp, &diagnostic, &created, &updated); err != nil {
		return notify.Entry{}, err
	}
	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return notify.Entry{}, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return notify.Entry{}, err
	}
	e.Payload = json.RawMessage(payload)
	if resp.Valid {
		e.ProviderResponse = &notify.ProviderResponse{}
		if err := json.Unmarshal([]byte(resp.String), e.ProviderResponse); err != nil {
			return notify.Entry{}, fmt.Errorf("decode provider response: %w", err)
		}
	}
	if diagnostic.Valid {
		e.Error = &notify.Diagnostic{}
		if err := json.Unmarshal([]byte(diagnostic.String), e.Error); err != nil {
			return notify.Entry{}, fmt.Errorf("decode diagnostic: %w", err)
		}
	}
	return e, nil
}

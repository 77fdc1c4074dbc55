package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"naturezabrindes/quote_backend/internal/domain/notify"
)

type Outbox struct {
	db *DB
}

func NewOutbox(db *DB) *Outbox { return &Outbox{db: db} }

const outboxColumns = `id, recipient, subject, template, payload, status, provider_response, error, created_at, updated_at`

func (r *Outbox) Insert(ctx context.Context, e notify.Entry) (int64, error) {
	payload := []byte(e.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	var id int64
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO email_outbox (recipient, subject, template, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		e.Recipient, e.Subject, e.Template, payload, e.Status, e.CreatedAt, e.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert outbox: %w", err)
	}
	return id, nil
}

func (r *Outbox) MarkSent(ctx context.Context, id int64, resp notify.ProviderResponse, at time.Time) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return r.finalize(ctx, id, `
		UPDATE email_outbox SET status = 'sent', provider_response = $2, updated_at = $3
		WHERE id = $1 AND status = 'queued'`, raw, at)
}

func (r *Outbox) MarkError(ctx context.Context, id int64, d notify.Diagnostic, at time.Time) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.finalize(ctx, id, `
		UPDATE email_outbox SET status = 'error', error = $2, updated_at = $3
		WHERE id = $1 AND status = 'queued'`, raw, at)
}

// finalize runs a conditional update and tells a finalized entry apart from a
// missing one when nothing changed.
func (r *Outbox) finalize(ctx context.Context, id int64, sql string, raw []byte, at time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, sql, id, raw, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM email_outbox WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return notify.ErrNotFound
	}
	return notify.ErrNotQueued
}

func (r *Outbox) Get(ctx context.Context, id int64) (notify.Entry, error) {
	e, err := scanEntry(r.db.Pool.QueryRow(ctx, `SELECT `+outboxColumns+` FROM email_outbox WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return notify.Entry{}, notify.ErrNotFound
	}
	return e, err
}

func (r *Outbox) List(ctx context.Context, status notify.Status, limit int) ([]notify.Entry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+outboxColumns+` FROM email_outbox
		WHERE ($1 = '' OR status = $1)
		ORDER BY id DESC LIMIT $2`, string(status), limit)
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

func scanEntry(row pgx.Row) (notify.Entry, error) {
	var (
		e              notify.Entry
		payload        []byte
		resp, diagnose []byte
	)
	if err := row.Scan(&e.ID, &e.Recipient, &e.Subject, &e.Template, &payload, &e.Status, &resp, &diagnose, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return notify.Entry{}, err
	}
	return decodeEntry(e, payload, resp, diagnose)
}

func decodeEntry(e notify.Entry, payload, resp, diagnose []byte) (notify.Entry, error) {
	e.Payload = payload
	if len(resp) > 0 && string(resp) != "null" {
		e.ProviderResponse = &notify.ProviderResponse{}
		if err := json.Unmarshal(resp, e.ProviderResponse); err != nil {
			return notify.Entry{}, fmt.Errorf("decode provider response: %w", err)
		}
	}
	if len(diagnose) > 0 && string(diagnose) != "null" {
		e.Error = &notify.Diagnostic{}
		if err := json.Unmarshal(diagnose, e.Error); err != nil {
			return notify.Entry{}, fmt.Errorf("decode diagnostic: %w", err)
		}
	}
	return e, nil
}

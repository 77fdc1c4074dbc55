package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"naturezabrindes/quote_backend/internal/domain/notify"
)

const outboxTable = "email_outbox"

type outboxRow struct {
	ID               int64           `json:"id,omitempty"`
	Recipient        string          `json:"recipient"`
	Subject          string          `json:"subject"`
	Template         string          `json:"template"`
	Payload          json.RawMessage `json:"payload"`
	Status           string          `json:"status"`
	ProviderResponse json.RawMessage `json:"provider_response,omitempty"`
	Error            json.RawMessage `json:"error,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (r outboxRow) entry() (notify.Entry, error) {
	e := notify.Entry{
		ID:        r.ID,
		Recipient: r.Recipient,
		Subject:   r.Subject,
		Template:  r.Template,
		Payload:   r.Payload,
		Status:    notify.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if present(r.ProviderResponse) {
		e.ProviderResponse = &notify.ProviderResponse{}
		if err := json.Unmarshal(r.ProviderResponse, e.ProviderResponse); err != nil {
			return notify.Entry{}, fmt.Errorf("decode provider response: %w", err)
		}
	}
	if present(r.Error) {
		e.Error = &notify.Diagnostic{}
		if err := json.Unmarshal(r.Error, e.Error); err != nil {
			return notify.Entry{}, fmt.Errorf("decode diagnostic: %w", err)
		}
	}
	return e, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

type Outbox struct {
	c *Client
}

func NewOutbox(c *Client) *Outbox { return &Outbox{c: c} }

func (r *Outbox) Insert(ctx context.Context, e notify.Entry) (int64, error) {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	var rows []outboxRow
	_, err := r.c.do(ctx, request{
		method: http.MethodPost,
		table:  outboxTable,
		body: []outboxRow{{
			Recipient: e.Recipient,
			Subject:   e.Subject,
			Template:  e.Template,
			Payload:   payload,
			Status:    string(e.Status),
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		}},
		prefer: []string{"return=representation"},
	}, &rows)
	if err != nil {
		return 0, fmt.Errorf("insert outbox: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("insert outbox: empty representation")
	}
	return rows[0].ID, nil
}

func (r *Outbox) MarkSent(ctx context.Context, id int64, resp notify.ProviderResponse, at time.Time) error {
	return r.finalize(ctx, id, map[string]any{
		"status":            notify.StatusSent,
		"provider_response": resp,
		"updated_at":        at.UTC(),
	})
}

func (r *Outbox) MarkError(ctx context.Context, id int64, d notify.Diagnostic, at time.Time) error {
	return r.finalize(ctx, id, map[string]any{
		"status":     notify.StatusError,
		"error":      d,
		"updated_at": at.UTC(),
	})
}

// finalize patches only rows still queued. An empty result is then told apart
// as a missing or an already finalized entry.
func (r *Outbox) finalize(ctx context.Context, id int64, patch map[string]any) error {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	q.Set("status", "eq."+string(notify.StatusQueued))

	var rows []outboxRow
	_, err := r.c.do(ctx, request{
		method: http.MethodPatch,
		table:  outboxTable,
		query:  q,
		body:   patch,
		prefer: []string{"return=representation"},
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return notify.ErrNotQueued
}

func (r *Outbox) Get(ctx context.Context, id int64) (notify.Entry, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	q.Set("limit", "1")

	var rows []outboxRow
	if _, err := r.c.do(ctx, request{method: http.MethodGet, table: outboxTable, query: q}, &rows); err != nil {
		return notify.Entry{}, err
	}
	if len(rows) == 0 {
		return notify.Entry{}, notify.ErrNotFound
	}
	return rows[0].entry()
}

func (r *Outbox) List(ctx context.Context, status notify.Status, limit int) ([]notify.Entry, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "id.desc")
	q.Set("limit", strconv.Itoa(limit))
	if status != "" {
		q.Set("status", "eq."+string(status))
	}

	var rows []outboxRow
	if _, err := r.c.do(ctx, request{method: http.MethodGet, table: outboxTable, query: q}, &rows); err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	out := make([]notify.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := row.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

var (
	ErrNotFound  = errors.New("outbox entry not found")
	ErrNotQueued = errors.New("outbox entry already finalized")
)

type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusError  Status = "error"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusQueued, StatusSent, StatusError:
		return Status(s), true
	}
	return "", false
}

// Entry is one notification intent. It carries its payload by value so the
// audit trail survives deletion of whatever produced it.
type Entry struct {
	ID               int64             `json:"id"`
	Recipient        string            `json:"recipient"`
	Subject          string            `json:"subject"`
	Template         string            `json:"template"`
	Payload          json.RawMessage   `json:"payload"`
	Status           Status            `json:"status"`
	ProviderResponse *ProviderResponse `json:"provider_response,omitempty"`
	Error            *Diagnostic       `json:"error,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Store persists outbox entries. MarkSent and MarkError only touch queued
// entries: they return ErrNotQueued for finalized ones and ErrNotFound for
// unknown ids.
type Store interface {
	Insert(ctx context.Context, e Entry) (int64, error)
	MarkSent(ctx context.Context, id int64, resp ProviderResponse, at time.Time) error
	MarkError(ctx context.Context, id int64, d Diagnostic, at time.Time) error
	Get(ctx context.Context, id int64) (Entry, error)
	// List returns the newest entries first; an empty status means any.
	List(ctx context.Context, status Status, limit int) ([]Entry, error)
}

type Outbox struct {
	store Store
	now   func() time.Time
}

func NewOutbox(store Store) *Outbox {
	return &Outbox{store: store, now: time.Now}
}

// Enqueue records a queued intent. It never fails the caller: problems are
// logged and reported through ok=false.
func (o *Outbox) Enqueue(ctx context.Context, recipient, subject, template string, payload any) (id int64, ok bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("outbox: payload encode failed recipient=%s template=%s err=%v", recipient, template, err)
		return 0, false
	}
	now := o.now().UTC()
	id, err = o.store.Insert(ctx, Entry{
		Recipient: recipient,
		Subject:   subject,
		Template:  template,
		Payload:   raw,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		log.Printf("outbox: enqueue failed recipient=%s template=%s err=%v", recipient, template, err)
		return 0, false
	}
	return id, true
}

func (o *Outbox) MarkSent(ctx context.Context, id int64, resp ProviderResponse) error {
	if err := o.store.MarkSent(ctx, id, resp, o.now().UTC()); err != nil {
		return fmt.Errorf("outbox mark sent %d: %w", id, err)
	}
	return nil
}

func (o *Outbox) MarkError(ctx context.Context, id int64, d Diagnostic) error {
	if err := o.store.MarkError(ctx, id, d, o.now().UTC()); err != nil {
		return fmt.Errorf("outbox mark error %d: %w", id, err)
	}
	return nil
}

func (o *Outbox) Get(ctx context.Context, id int64) (Entry, error) {
	return o.store.Get(ctx, id)
}

func (o *Outbox) List(ctx context.Context, status Status, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return o.store.List(ctx, status, limit)
}

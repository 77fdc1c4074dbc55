package quote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Writer struct {
	store Store
	now   func() time.Time
}

func NewWriter(store Store) *Writer {
	return &Writer{store: store, now: time.Now}
}

// Create stores a pending quote with its items. The store either writes all of
// it or nothing; a stored quote with fewer items than requested is reported as
// a *PartialWriteError.
func (w *Writer) Create(ctx context.Context, customerID string, items []LineItem, notes string) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, ErrNoItems
	}

	now := w.now().UTC()
	q := Quote{
		ID:         uuid.NewString(),
		Reference:  NewReference(now),
		CustomerID: customerID,
		Notes:      strings.TrimSpace(notes),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		Items:      make([]LineItem, len(items)),
	}
	for i, it := range items {
		it.Position = i
		q.Items[i] = it
	}

	stored, err := w.store.Create(ctx, q)
	if err != nil {
		var pw *PartialWriteError
		if errors.As(err, &pw) {
			log.Printf("quote: partial write quote_id=%s err=%v", pw.QuoteID, err)
		}
		return Quote{}, fmt.Errorf("quote create: %w", err)
	}
	if len(stored.Items) != len(items) {
		log.Printf("quote: item count mismatch quote_id=%s stored=%d want=%d", stored.ID, len(stored.Items), len(items))
		return Quote{}, &PartialWriteError{
			QuoteID: stored.ID,
			Err:     fmt.Errorf("stored %d of %d items", len(stored.Items), len(items)),
		}
	}

	log.Printf("quote: created quote_id=%s reference=%s items=%d", stored.ID, stored.Reference, len(stored.Items))
	return stored, nil
}

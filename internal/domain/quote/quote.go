package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"naturezabrindes/quote_backend/internal/domain/customer"
)

var (
	ErrNotFound = errors.New("quote not found")
	ErrNoItems  = errors.New("quote has no items")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusCompleted}

func ParseStatus(s string) (Status, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type Quote struct {
	ID         string             `json:"id"`
	Reference  string             `json:"numero_solicitacao"`
	CustomerID string             `json:"customer_id"`
	Customer   *customer.Customer `json:"customer,omitempty"`
	Notes      string             `json:"notes"`
	Status     Status             `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Items      []LineItem         `json:"items"`
}

// Incomplete marks a stored quote whose items were never written.
func (q Quote) Incomplete() bool { return len(q.Items) == 0 }

type LineItem struct {
	ID             int64           `json:"id,omitempty"`
	QuoteID        string          `json:"quote_id,omitempty"`
	Position       int             `json:"position"`
	ProductCode    *string         `json:"product_code"`
	ProductName    string          `json:"product_name"`
	Quantity1      int             `json:"quantity1"`
	Quantity2      int             `json:"quantity2"`
	Quantity3      int             `json:"quantity3"`
	Color          string          `json:"color,omitempty"`
	Customizations json.RawMessage `json:"customizations,omitempty"`
	ImageURL       string          `json:"image_url,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Free           bool            `json:"free,omitempty"`
}

// Quantities returns the positive quantity tiers in order.
func (it LineItem) Quantities() []int {
	out := make([]int, 0, 3)
	for _, q := range []int{it.Quantity1, it.Quantity2, it.Quantity3} {
		if q > 0 {
			out = append(out, q)
		}
	}
	return out
}

// PartialWriteError reports a quote header that could be left without its
// items because both the item insert and the cleanup failed.
type PartialWriteError struct {
	QuoteID string
	Err     error
	Cleanup error
}

func (e *PartialWriteError) Error() string {
	if e.Cleanup != nil {
		return fmt.Sprintf("quote %s partially written: %v (cleanup failed: %v)", e.QuoteID, e.Err, e.Cleanup)
	}
	return fmt.Sprintf("quote %s partially written: %v", e.QuoteID, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

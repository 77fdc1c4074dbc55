package customer

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("customer not found")

type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	TaxID     string    `json:"cnpj"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile holds the optional fields used only when a customer is created.
type Profile struct {
	Name    string
	Phone   string
	Company string
	TaxID   string
}

// Store is implemented by every persistence backend.
type Store interface {
	// FindByEmail returns ErrNotFound when no customer owns the normalized email.
	FindByEmail(ctx context.Context, email string) (Customer, error)
	// InsertIfAbsent stores c unless a customer with the same email exists, and
	// returns whichever row ends up owning the email.
	InsertIfAbsent(ctx context.Context, c Customer) (stored Customer, created bool, err error)
	Get(ctx context.Context, id string) (Customer, error)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package customer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Resolver struct {
	store Store
	now   func() time.Time
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// Resolve maps email to a customer id, creating the customer on first sight.
// Profile data of an existing customer is never overwritten.
func (r *Resolver) Resolve(ctx context.Context, email string, p Profile) (string, error) {
	key := NormalizeEmail(email)
	if key == "" {
		return "", errors.New("customer: empty email")
	}

	existing, err := r.store.FindByEmail(ctx, key)
	if err == nil {
		log.Printf("customer: existing id=%s", existing.ID)
		return existing.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("customer lookup: %w", err)
	}

	stored, created, err := r.store.InsertIfAbsent(ctx, Customer{
		ID:        uuid.NewString(),
		Email:     key,
		Name:      strings.TrimSpace(p.Name),
		Phone:     strings.TrimSpace(p.Phone),
		Company:   strings.TrimSpace(p.Company),
		TaxID:     strings.TrimSpace(p.TaxID),
		CreatedAt: r.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("customer create: %w", err)
	}
	if created {
		log.Printf("customer: created id=%s", stored.ID)
	} else {
		log.Printf("customer: concurrent create resolved id=%s", stored.ID)
	}
	return stored.ID, nil
}

package quote

import (
	"context"
	"time"
)

// Store persists quotes. Create must write the header and all items as one
// unit: either everything is stored or nothing is (a *PartialWriteError is
// returned when a backend cannot guarantee that).
type Store interface {
	Create(ctx context.Context, q Quote) (Quote, error)
	Get(ctx context.Context, id string) (Quote, error)
	List(ctx context.Context, p ListParams) (Page, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Quote, error)
	// Delete removes the items first, then the header, and returns the deleted quote.
	Delete(ctx context.Context, id string) (Quote, error)
	Stats(ctx context.Context) (Stats, error)
}

type Page struct {
	Quotes []Quote
	Total  int
}

type Stats struct {
	Total     int       `json:"totalQuotes"`
	Pending   int       `json:"pendingQuotes"`
	Approved  int       `json:"approvedQuotes"`
	Rejected  int       `json:"rejectedQuotes"`
	Completed int       `json:"completedQuotes"`
	Recent    []Summary `json:"-"`
}

// Add counts one quote with the given status.
func (s *Stats) Add(status Status, n int) {
	s.Total += n
	switch status {
	case StatusPending:
		s.Pending += n
	case StatusApproved:
		s.Approved += n
	case StatusRejected:
		s.Rejected += n
	case StatusCompleted:
		s.Completed += n
	}
}

type Summary struct {
	ID           string    `json:"id"`
	Reference    string    `json:"numero_solicitacao"`
	CustomerName string    `json:"customerName"`
	Company      string    `json:"company"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

const RecentLimit = 5

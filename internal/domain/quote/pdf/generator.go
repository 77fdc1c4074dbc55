package pdf

import "naturezabrindes/quote_backend/internal/domain/quote"

// Generator renders a stored quote as a printable summary.
type Generator interface {
	Generate(q quote.Quote) ([]byte, error)
}

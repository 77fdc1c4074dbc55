package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"naturezabrindes/quote_backend/internal/domain/intake"
	"naturezabrindes/quote_backend/internal/domain/notify"
	"naturezabrindes/quote_backend/internal/domain/quote"
)

// envelope is the API's response wrapper.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func call[T any](ctx context.Context, c *Client, method, endpoint string, body any) (T, error) {
	var env envelope[T]
	if err := c.Do(ctx, method, endpoint, body, &env); err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

type CreatedQuote struct {
	ID        string       `json:"id"`
	Reference string       `json:"numero_solicitacao"`
	Status    quote.Status `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

type StoredQuote struct {
	quote.Quote
	Incomplete bool `json:"incomplete,omitempty"`
}

type QuotePage struct {
	Quotes     []StoredQuote    `json:"quotes"`
	Pagination quote.Pagination `json:"pagination"`
}

type Dashboard struct {
	Summary      quote.Stats     `json:"summary"`
	RecentQuotes []quote.Summary `json:"recentQuotes"`
}

type ListOptions struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Status    string
}

func (o ListOptions) query() string {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.SortBy != "" {
		v.Set("sortBy", o.SortBy)
	}
	if o.SortOrder != "" {
		v.Set("sortOrder", o.SortOrder)
	}
	if o.Status != "" {
		v.Set("status", o.Status)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

type TestEmail struct {
	To          string `json:"to"`
	Name        string `json:"name,omitempty"`
	Subject     string `json:"subject,omitempty"`
	HTMLContent string `json:"htmlContent,omitempty"`
}

func (c *Client) CreateQuote(ctx context.Context, req intake.Request) (CreatedQuote, error) {
	return call[CreatedQuote](ctx, c, http.MethodPost, "/quotes", req)
}

func (c *Client) ListQuotes(ctx context.Context, opts ListOptions) (QuotePage, error) {
	return call[QuotePage](ctx, c, http.MethodGet, "/quotes"+opts.query(), nil)
}

func (c *Client) GetQuote(ctx context.Context, id string) (StoredQuote, error) {
	return call[StoredQuote](ctx, c, http.MethodGet, quotePath(id), nil)
}

func (c *Client) UpdateQuoteStatus(ctx context.Context, id string, status quote.Status) (StoredQuote, error) {
	return call[StoredQuote](ctx, c, http.MethodPut, quotePath(id)+"/status", map[string]quote.Status{"status": status})
}

func (c *Client) DeleteQuote(ctx context.Context, id string) (StoredQuote, error) {
	return call[StoredQuote](ctx, c, http.MethodDelete, quotePath(id), nil)
}

func (c *Client) DashboardStats(ctx context.Context) (Dashboard, error) {
	return call[Dashboard](ctx, c, http.MethodGet, "/quotes/stats/dashboard", nil)
}

func (c *Client) SendTestEmail(ctx context.Context, req TestEmail) (notify.Result, error) {
	return call[notify.Result](ctx, c, http.MethodPost, "/email/test", req)
}

func quotePath(id string) string {
	return fmt.Sprintf("/quotes/%s", url.PathEscape(id))
}

package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"naturezabrindes/quote_backend/internal/domain/customer"
	"naturezabrindes/quote_backend/internal/domain/quote"
)

const (
	quotesTable = "solicitacao_orcamentos"
	itemsTable  = "products_solicitacao"
)

// The hosted tables keep the storefront's Portuguese status names.
var legacyStatuses = map[quote.Status]string{
	quote.StatusPending:   "pendente",
	quote.StatusApproved:  "aprovado",
	quote.StatusRejected:  "rejeitado",
	quote.StatusCompleted: "concluido",
}

func toLegacy(s quote.Status) string {
	if v, ok := legacyStatuses[s]; ok {
		return v
	}
	return string(s)
}

func fromLegacy(s string) quote.Status {
	for st, legacy := range legacyStatuses {
		if s == legacy {
			return st
		}
	}
	if st, ok := quote.ParseStatus(s); ok {
		return st
	}
	return quote.StatusPending
}

var legacySortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"reference":  "numero_solicitacao",
	"status":     "status",
}

type solicitacaoRow struct {
	ID         string    `json:"solicitacao_id"`
	UserID     string    `json:"user_id"`
	Numero     string    `json:"numero_solicitacao"`
	Observacao string    `json:"solicitacao_observacao"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r solicitacaoRow) quote() quote.Quote {
	return quote.Quote{
		ID:         r.ID,
		Reference:  r.Numero,
		CustomerID: r.UserID,
		Notes:      r.Observacao,
		Status:     fromLegacy(r.Status),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type itemRow struct {
	ID             int64   `json:"id,omitempty"`
	SolicitacaoID  string  `json:"solicitacao_id"`
	ProductsID     *string `json:"products_id"`
	Quantidade1    int     `json:"products_quantidade_01"`
	Quantidade2    int     `json:"products_quantidade_02"`
	Quantidade3    int     `json:"products_quantidade_03"`
	Color          *string `json:"color"`
	Customizations *string `json:"customizations"`
	ImgRefURL      *string `json:"img_ref_url"`
}

func toItemRow(quoteID string, it quote.LineItem) itemRow {
	row := itemRow{
		SolicitacaoID: quoteID,
		ProductsID:    it.ProductCode,
		Quantidade1:   it.Quantity1,
		Quantidade2:   it.Quantity2,
		Quantidade3:   it.Quantity3,
		Color:         optional(it.Color),
		ImgRefURL:     optional(it.ImageURL),
	}
	if raw := withName(it.Customizations, it.ProductName); raw != "" {
		row.Customizations = &raw
	}
	return row
}

func (r itemRow) lineItem(position int) quote.LineItem {
	it := quote.LineItem{
		ID:          r.ID,
		QuoteID:     r.SolicitacaoID,
		Position:    position,
		ProductCode: r.ProductsID,
		Quantity1:   r.Quantidade1,
		Quantity2:   r.Quantidade2,
		Quantity3:   r.Quantidade3,
	}
	if r.Color != nil {
		it.Color = *r.Color
	}
	if r.ImgRefURL != nil {
		it.ImageURL = *r.ImgRefURL
	}
	if r.Customizations != nil && *r.Customizations != "" {
		it.Customizations = json.RawMessage(*r.Customizations)
		var named struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(it.Customizations, &named) == nil {
			it.ProductName = named.Name
		}
	}
	return it
}

// withName keeps the product name inside the customizations object, the only
// place the hosted item table has for it.
func withName(raw json.RawMessage, name string) string {
	if len(raw) == 0 {
		if name == "" {
			return ""
		}
		b, _ := json.Marshal(map[string]string{"name": name})
		return string(b)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return string(raw)
	}
	if _, ok := obj["name"]; !ok && name != "" {
		obj["name"] = name
		b, err := json.Marshal(obj)
		if err == nil {
			return string(b)
		}
	}
	return string(raw)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type Quotes struct {
	c *Client
}

func NewQuotes(c *Client) *Quotes { return &Quotes{c: c} }

// Create writes the header, then the items in one batch. PostgREST gives no
// transaction across the two requests, so a failed item insert deletes the
// header again; when that also fails the caller gets a *quote.PartialWriteError.
func (r *Quotes) Create(ctx context.Context, q quote.Quote) (quote.Quote, error) {
	header := solicitacaoRow{
		ID:         q.ID,
		UserID:     q.CustomerID,
		Numero:     q.Reference,
		Observacao: q.Notes,
		Status:     toLegacy(q.Status),
		CreatedAt:  q.CreatedAt,
		UpdatedAt:  q.UpdatedAt,
	}
	if _, err := r.c.do(ctx, request{
		method: http.MethodPost,
		table:  quotesTable,
		body:   []solicitacaoRow{header},
		prefer: []string{"return=minimal"},
	}, nil); err != nil {
		return quote.Quote{}, fmt.Errorf("insert quote: %w", err)
	}

	rows := make([]itemRow, len(q.Items))
	for i, it := range q.Items {
		rows[i] = toItemRow(q.ID, it)
	}
	var stored []itemRow
	_, err := r.c.do(ctx, request{
		method: http.MethodPost,
		table:  itemsTable,
		body:   rows,
		prefer: []string{"return=representation"},
	}, &stored)
	if err != nil {
		if cleanupErr := r.deleteHeader(context.WithoutCancel(ctx), q.ID); cleanupErr != nil {
			return quote.Quote{}, &quote.PartialWriteError{QuoteID: q.ID, Err: err, Cleanup: cleanupErr}
		}
		log.Printf("supabase: item insert failed, header removed quote_id=%s err=%v", q.ID, err)
		return quote.Quote{}, fmt.Errorf("insert items: %w", err)
	}

	out := q
	out.Items = make([]quote.LineItem, 0, len(stored))
	for i, row := range stored {
		it := row.lineItem(i)
		if i < len(q.Items) {
			it.ProductName = q.Items[i].ProductName
			it.Notes = q.Items[i].Notes
			it.Free = q.Items[i].Free
		}
		out.Items = append(out.Items, it)
	}
	return out, nil
}

func (r *Quotes) deleteHeader(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("solicitacao_id", "eq."+id)
	_, err := r.c.do(ctx, request{method: http.MethodDelete, table: quotesTable, query: q}, nil)
	return err
}

func (r *Quotes) Get(ctx context.Context, id string) (quote.Quote, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("solicitacao_id", "eq."+id)
	q.Set("limit", "1")

	var rows []solicitacaoRow
	if _, err := r.c.do(ctx, request{method: http.MethodGet, table: quotesTable, query: q}, &rows); err != nil {
		return quote.Quote{}, err
	}
	if len(rows) == 0 {
		return quote.Quote{}, quote.ErrNotFound
	}
	quotes, err := r.hydrate(ctx, rows)
	if err != nil {
		return quote.Quote{}, err
	}
	return quotes[0], nil
}

func (r *Quotes) List(ctx context.Context, p quote.ListParams) (quote.Page, error) {
	col, ok := legacySortColumns[p.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "desc"
	if p.Ascending {
		dir = "asc"
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", col+"."+dir)
	q.Set("offset", strconv.Itoa(p.Offset()))
	q.Set("limit", strconv.Itoa(p.Limit))
	if p.Status != "" {
		q.Set("status", "eq."+toLegacy(p.Status))
	}

	var rows []solicitacaoRow
	h, err := r.c.do(ctx, request{method: http.MethodGet, table: quotesTable, query: q, prefer: []string{"count=exact"}}, &rows)
	if err != nil {
		return quote.Page{}, err
	}
	quotes, err := r.hydrate(ctx, rows)
	if err != nil {
		return quote.Page{}, err
	}
	return quote.Page{Quotes: quotes, Total: totalCount(h)}, nil
}

// hydrate attaches customers and items to headers with one request each.
func (r *Quotes) hydrate(ctx context.Context, rows []solicitacaoRow) ([]quote.Quote, error) {
	out := make([]quote.Quote, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	quoteIDs := make([]string, len(rows))
	var userIDs []string
	seen := map[string]bool{}
	for i, row := range rows {
		out[i] = row.quote()
		quoteIDs[i] = row.ID
		if row.UserID != "" && !seen[row.UserID] {
			seen[row.UserID] = true
			userIDs = append(userIDs, row.UserID)
		}
	}

	customers := map[string]customer.Customer{}
	if len(userIDs) > 0 {
		q := url.Values{}
		q.Set("select", "*")
		q.Set("id", inList(userIDs))
		var cs []clienteRow
		if _, err := r.c.do(ctx, request{method: http.MethodGet, table: customersTable, query: q}, &cs); err != nil {
			return nil, fmt.Errorf("load customers: %w", err)
		}
		for _, c := range cs {
			customers[c.ID] = c.customer()
		}
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("solicitacao_id", inList(quoteIDs))
	q.Set("order", "id.asc")
	var items []itemRow
	if _, err := r.c.do(ctx, request{method: http.MethodGet, table: itemsTable, query: q}, &items); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	byQuote := map[string][]quote.LineItem{}
	for _, it := range items {
		byQuote[it.SolicitacaoID] = append(byQuote[it.SolicitacaoID], it.lineItem(len(byQuote[it.SolicitacaoID])))
	}

	for i := range out {
		if c, ok := customers[out[i].CustomerID]; ok {
			out[i].Customer = &c
		}
		out[i].Items = byQuote[out[i].ID]
	}
	return out, nil
}

func (r *Quotes) UpdateStatus(ctx context.Context, id string, status quote.Status, at time.Time) (quote.Quote, error) {
	q := url.Values{}
	q.Set("solicitacao_id", "eq."+id)
	var rows []solicitacaoRow
	_, err := r.c.do(ctx, request{
		method: http.MethodPatch,
		table:  quotesTable,
		query:  q,
		body:   map[string]any{"status": toLegacy(status), "updated_at": at.UTC()},
		prefer: []string{"return=representation"},
	}, &rows)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("update status: %w", err)
	}
	if len(rows) == 0 {
		return quote.Quote{}, quote.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Quotes) Delete(ctx context.Context, id string) (quote.Quote, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return quote.Quote{}, err
	}
	q := url.Values{}
	q.Set("solicitacao_id", "eq."+id)
	if _, err := r.c.do(ctx, request{method: http.MethodDelete, table: itemsTable, query: q}, nil); err != nil {
		return quote.Quote{}, fmt.Errorf("delete items: %w", err)
	}
	if err := r.deleteHeader(ctx, id); err != nil {
		return quote.Quote{}, fmt.Errorf("delete quote: %w", err)
	}
	return existing, nil
}

func (r *Quotes) count(ctx context.Context, status string) (int, error) {
	q := url.Values{}
	q.Set("select", "solicitacao_id")
	q.Set("limit", "1")
	if status != "" {
		q.Set("status", "eq."+status)
	}
	var rows []json.RawMessage
	h, err := r.c.do(ctx, request{method: http.MethodGet, table: quotesTable, query: q, prefer: []string{"count=exact"}}, &rows)
	if err != nil {
		return 0, err
	}
	return totalCount(h), nil
}

func (r *Quotes) Stats(ctx context.Context) (quote.Stats, error) {
	var st quote.Stats
	for _, s := range quote.Statuses {
		n, err := r.count(ctx, toLegacy(s))
		if err != nil {
			return quote.Stats{}, fmt.Errorf("stats %s: %w", s, err)
		}
		st.Add(s, n)
	}
	total, err := r.count(ctx, "")
	if err != nil {
		return quote.Stats{}, fmt.Errorf("stats total: %w", err)
	}
	st.Total = total

	page, err := r.List(ctx, quote.ListParams{Page: 1, Limit: quote.RecentLimit, SortBy: "created_at"})
	if err != nil {
		return quote.Stats{}, fmt.Errorf("recent quotes: %w", err)
	}
	for _, q := range page.Quotes {
		s := quote.Summary{ID: q.ID, Reference: q.Reference, Status: q.Status, CreatedAt: q.CreatedAt}
		if q.Customer != nil {
			s.CustomerName = q.Customer.Name
			s.Company = q.Customer.Company
		}
		st.Recent = append(st.Recent, s)
	}
	return st, nil
}

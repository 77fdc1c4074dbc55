// Package storetest holds the behaviour every persistence backend must share.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naturezabrindes/quote_backend/internal/domain/customer"
	"naturezabrindes/quote_backend/internal/domain/notify"
	"naturezabrindes/quote_backend/internal/domain/quote"
)

type Stores struct {
	Customers customer.Store
	Quotes    quote.Store
	Outbox    notify.Store
}

// Run executes the suite. newStores must return empty stores on every call.
func Run(t *testing.T, newStores func(t *testing.T) Stores) {
	t.Run("CustomerInsertIfAbsent", func(t *testing.T) { testCustomerInsertIfAbsent(t, newStores(t)) })
	t.Run("QuoteRoundTrip", func(t *testing.T) { testQuoteRoundTrip(t, newStores(t)) })
	t.Run("QuoteList", func(t *testing.T) { testQuoteList(t, newStores(t)) })
	t.Run("QuoteStatusAndDelete", func(t *testing.T) { testQuoteStatusAndDelete(t, newStores(t)) })
	t.Run("QuoteStats", func(t *testing.T) { testQuoteStats(t, newStores(t)) })
	t.Run("OutboxMonotonic", func(t *testing.T) { testOutboxMonotonic(t, newStores(t)) })
}

var base = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func newCustomer(t *testing.T, s Stores, email string) customer.Customer {
	t.Helper()
	c, _, err := s.Customers.InsertIfAbsent(context.Background(), customer.Customer{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      "Ana Souza",
		Company:   "ACME",
		CreatedAt: base,
	})
	require.NoError(t, err)
	return c
}

func newQuote(customerID string, at time.Time, items int) quote.Quote {
	q := quote.Quote{
		ID:         uuid.NewString(),
		Reference:  quote.NewReference(at),
		CustomerID: customerID,
		Notes:      "entregar em maio",
		Status:     quote.StatusPending,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	for i := 0; i < items; i++ {
		code := fmt.Sprintf("%d", 1000+i)
		q.Items = append(q.Items, quote.LineItem{
			Position:       i,
			ProductCode:    &code,
			ProductName:    fmt.Sprintf("Produto %d", i),
			Quantity1:      10,
			Quantity2:      20 * i,
			Color:          "Azul",
			Customizations: json.RawMessage(`{"name":"Produto"}`),
		})
	}
	return q
}

func testCustomerInsertIfAbsent(t *testing.T, s Stores) {
	ctx := context.Background()

	_, err := s.Customers.FindByEmail(ctx, "ana@x.com")
	assert.ErrorIs(t, err, customer.ErrNotFound)

	first, created, err := s.Customers.InsertIfAbsent(ctx, customer.Customer{ID: uuid.NewString(), Email: "ana@x.com", Name: "Ana", CreatedAt: base})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.Customers.InsertIfAbsent(ctx, customer.Customer{ID: uuid.NewString(), Email: "ana@x.com", Name: "Outra", CreatedAt: base})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ana", second.Name)

	got, err := s.Customers.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", got.Email)
}

func testQuoteRoundTrip(t *testing.T, s Stores) {
	ctx := context.Background()
	c := newCustomer(t, s, "rt@x.com")

	in := newQuote(c.ID, base, 2)
	in.Items[1].ProductCode = nil
	in.Items[1].Customizations = nil

	stored, err := s.Quotes.Create(ctx, in)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)

	got, err := s.Quotes.Get(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Reference, got.Reference)
	assert.Equal(t, quote.StatusPending, got.Status)
	assert.True(t, base.Equal(got.CreatedAt))
	require.NotNil(t, got.Customer)
	assert.Equal(t, "Ana Souza", got.Customer.Name)

	require.Len(t, got.Items, 2)
	assert.Equal(t, "Produto 0", got.Items[0].ProductName)
	require.NotNil(t, got.Items[0].ProductCode)
	assert.Equal(t, "1000", *got.Items[0].ProductCode)
	assert.JSONEq(t, `{"name":"Produto"}`, string(got.Items[0].Customizations))
	assert.Nil(t, got.Items[1].ProductCode)
	assert.Equal(t, 20, got.Items[1].Quantity2)

	_, err = s.Quotes.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, quote.ErrNotFound)
}

func testQuoteList(t *testing.T, s Stores) {
	ctx := context.Background()
	c := newCustomer(t, s, "list@x.com")

	var ids []string
	for i := 0; i < 5; i++ {
		q := newQuote(c.ID, base.Add(time.Duration(i)*time.Hour), 1)
		_, err := s.Quotes.Create(ctx, q)
		require.NoError(t, err)
		ids = append(ids, q.ID)
	}
	_, err := s.Quotes.UpdateStatus(ctx, ids[0], quote.StatusApproved, base.Add(time.Hour))
	require.NoError(t, err)

	page, err := s.Quotes.List(ctx, quote.ListParams{Page: 1, Limit: 2, SortBy: "created_at"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Quotes, 2)
	assert.Equal(t, ids[4], page.Quotes[0].ID)
	assert.Len(t, page.Quotes[0].Items, 1)

	page, err = s.Quotes.List(ctx, quote.ListParams{Page: 3, Limit: 2, SortBy: "created_at"})
	require.NoError(t, err)
	require.Len(t, page.Quotes, 1)
	assert.Equal(t, ids[0], page.Quotes[0].ID)

	page, err = s.Quotes.List(ctx, quote.ListParams{Page: 1, Limit: 10, SortBy: "created_at", Ascending: true, Status: quote.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	require.Len(t, page.Quotes, 4)
	assert.Equal(t, ids[1], page.Quotes[0].ID)
}

func testQuoteStatusAndDelete(t *testing.T, s Stores) {
	ctx := context.Background()
	c := newCustomer(t, s, "del@x.com")
	q := newQuote(c.ID, base, 3)
	_, err := s.Quotes.Create(ctx, q)
	require.NoError(t, err)

	later := base.Add(2 * time.Hour)
	updated, err := s.Quotes.UpdateStatus(ctx, q.ID, quote.StatusCompleted, later)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusCompleted, updated.Status)
	assert.True(t, later.Equal(updated.UpdatedAt))

	_, err = s.Quotes.UpdateStatus(ctx, uuid.NewString(), quote.StatusApproved, later)
	assert.ErrorIs(t, err, quote.ErrNotFound)

	deleted, err := s.Quotes.Delete(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, deleted.ID)
	assert.Len(t, deleted.Items, 3)

	_, err = s.Quotes.Get(ctx, q.ID)
	assert.ErrorIs(t, err, quote.ErrNotFound)
	_, err = s.Quotes.Delete(ctx, q.ID)
	assert.ErrorIs(t, err, quote.ErrNotFound)
}

func testQuoteStats(t *testing.T, s Stores) {
	ctx := context.Background()
	c := newCustomer(t, s, "stats@x.com")

	var ids []string
	for i := 0; i < 7; i++ {
		q := newQuote(c.ID, base.Add(time.Duration(i)*time.Minute), 1)
		_, err := s.Quotes.Create(ctx, q)
		require.NoError(t, err)
		ids = append(ids, q.ID)
	}
	_, err := s.Quotes.UpdateStatus(ctx, ids[0], quote.StatusApproved, base)
	require.NoError(t, err)
	_, err = s.Quotes.UpdateStatus(ctx, ids[1], quote.StatusRejected, base)
	require.NoError(t, err)

	st, err := s.Quotes.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, st.Total)
	assert.Equal(t, 5, st.Pending)
	assert.Equal(t, 1, st.Approved)
	assert.Equal(t, 1, st.Rejected)
	require.Len(t, st.Recent, quote.RecentLimit)
	assert.Equal(t, ids[6], st.Recent[0].ID)
	assert.Equal(t, "Ana Souza", st.Recent[0].CustomerName)
}

func testOutboxMonotonic(t *testing.T, s Stores) {
	ctx := context.Background()
	id, err := s.Outbox.Insert(ctx, notify.Entry{
		Recipient: "ana@x.com",
		Subject:   "Solicitação de Orçamento",
		Template:  notify.TemplateConfirmation,
		Payload:   json.RawMessage(`{"clientName":"Ana"}`),
		Status:    notify.StatusQueued,
		CreatedAt: base,
		UpdatedAt: base,
	})
	require.NoError(t, err)
	other, err := s.Outbox.Insert(ctx, notify.Entry{Recipient: "b@x.com", Template: notify.TemplateTest, Payload: json.RawMessage(`{}`), Status: notify.StatusQueued, CreatedAt: base, UpdatedAt: base})
	require.NoError(t, err)

	require.NoError(t, s.Outbox.MarkError(ctx, id, notify.Diagnostic{Kind: notify.KindTransport, Message: "refused"}, base.Add(time.Second)))
	assert.ErrorIs(t, s.Outbox.MarkSent(ctx, id, notify.ProviderResponse{MessageID: "late"}, base.Add(2*time.Second)), notify.ErrNotQueued)
	assert.ErrorIs(t, s.Outbox.MarkSent(ctx, 999999, notify.ProviderResponse{}, base), notify.ErrNotFound)

	e, err := s.Outbox.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, notify.StatusError, e.Status)
	require.NotNil(t, e.Error)
	assert.Equal(t, "refused", e.Error.Message)
	assert.Nil(t, e.ProviderResponse)
	assert.JSONEq(t, `{"clientName":"Ana"}`, string(e.Payload))

	require.NoError(t, s.Outbox.MarkSent(ctx, other, notify.ProviderResponse{MessageID: "m-1"}, base))

	all, err := s.Outbox.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, other, all[0].ID)

	sent, err := s.Outbox.List(ctx, notify.StatusSent, 10)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "m-1", sent[0].ProviderResponse.MessageID)

	_, err = s.Outbox.Get(ctx, 999999)
	assert.ErrorIs(t, err, notify.ErrNotFound)
}

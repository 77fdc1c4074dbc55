package intake

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naturezabrindes/quote_backend/internal/domain/customer"
	"naturezabrindes/quote_backend/internal/domain/notify"
	"naturezabrindes/quote_backend/internal/domain/quote"
)

type customers struct {
	mu     sync.Mutex
	byMail map[string]customer.Customer
	writes int
}

func (c *customers) FindByEmail(_ context.Context, email string) (customer.Customer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cu, ok := c.byMail[email]; ok {
		return cu, nil
	}
	return customer.Customer{}, customer.ErrNotFound
}

func (c *customers) InsertIfAbsent(_ context.Context, cu customer.Customer) (customer.Customer, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if existing, ok := c.byMail[cu.Email]; ok {
		return existing, false, nil
	}
	c.byMail[cu.Email] = cu
	return cu, true, nil
}

func (c *customers) Get(context.Context, string) (customer.Customer, error) {
	return customer.Customer{}, customer.ErrNotFound
}

type quotes struct {
	quote.Store
	created []quote.Quote
}

func (q *quotes) Create(_ context.Context, in quote.Quote) (quote.Quote, error) {
	q.created = append(q.created, in)
	return in, nil
}

type outboxStore struct {
	entries []notify.Entry
}

func (o *outboxStore) Insert(_ context.Context, e notify.Entry) (int64, error) {
	e.ID = int64(len(o.entries) + 1)
	o.entries = append(o.entries, e)
	return e.ID, nil
}

func (o *outboxStore) set(id int64, fn func(*notify.Entry)) error {
	if id < 1 || int(id) > len(o.entries) {
		return notify.ErrNotFound
	}
	e := &o.entries[id-1]
	if e.Status != notify.StatusQueued {
		return notify.ErrNotQueued
	}
	fn(e)
	return nil
}

func (o *outboxStore) MarkSent(_ context.Context, id int64, resp notify.ProviderResponse, _ time.Time) error {
	return o.set(id, func(e *notify.Entry) { e.Status = notify.StatusSent; e.ProviderResponse = &resp })
}

func (o *outboxStore) MarkError(_ context.Context, id int64, d notify.Diagnostic, _ time.Time) error {
	return o.set(id, func(e *notify.Entry) { e.Status = notify.StatusError; e.Error = &d })
}

func (o *outboxStore) Get(context.Context, int64) (notify.Entry, error) { return notify.Entry{}, nil }

func (o *outboxStore) List(context.Context, notify.Status, int) ([]notify.Entry, error) {
	return o.entries, nil
}

type recorder struct {
	name string
	err  error
	sent []notify.Message
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Send(_ context.Context, m notify.Message) (notify.ProviderResponse, error) {
	r.sent = append(r.sent, m)
	if r.err != nil {
		return notify.ProviderResponse{}, r.err
	}
	return notify.ProviderResponse{MessageID: "m-1"}, nil
}

type fakePDF struct{}

func (fakePDF) Generate(quote.Quote) ([]byte, error) { return []byte("%PDF-1.3"), nil }

type fixture struct {
	customers *customers
	quotes    *quotes
	outbox    *outboxStore
	mail      *recorder
	alerts    *recorder
	svc       *Service
}

func newFixture(opts ...func(*fixture)) *fixture {
	f := &fixture{
		customers: &customers{byMail: map[string]customer.Customer{}},
		quotes:    &quotes{},
		outbox:    &outboxStore{},
		mail:      &recorder{name: "mail"},
		alerts:    &recorder{name: "telegram"},
	}
	for _, o := range opts {
		o(f)
	}
	ob := notify.NewOutbox(f.outbox)
	f.svc = NewService(
		customer.NewResolver(f.customers),
		quote.NewWriter(f.quotes),
		notify.NewSender(ob, f.mail, notify.Address{Email: "loja@x.com"}),
		WithStaffAlerts(notify.NewSender(ob, f.alerts, notify.Address{}), fakePDF{}),
		WithAdminURL("https://admin.example.com/"),
	)
	return f
}

func validRequest() Request {
	return Request{
		Customer: &CustomerInput{Name: "Ana Souza", Email: "Ana@X.com "},
		Items: []quote.ItemInput{
			{Name: "Caneca", Quantity: 10, SelectedColor: "Azul"},
			{Name: "Sacola", Quantity: 10, Quantity2: 20},
		},
		Notes: "Entrega em maio",
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Len(t, res.Quote.Items, 2)
	assert.Equal(t, quote.StatusPending, res.Quote.Status)
	assert.Equal(t, "ana@x.com", res.Quote.Customer.Email)
	assert.True(t, res.Confirmation.OK)
	require.NotNil(t, res.Alert)
	assert.True(t, res.Alert.OK)

	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Equal(t, "ana@x.com", msg.To.Email)
	assert.Equal(t, ConfirmationSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "<li>Caneca: (Qtd: 10) - Cor: Azul</li>")
	assert.Contains(t, msg.Text, "- Sacola: (Qtd: 10) e (Qtd: 20)")

	require.Len(t, f.alerts.sent, 1)
	alert := f.alerts.sent[0]
	assert.Contains(t, alert.Text, res.Quote.Reference)
	assert.Contains(t, alert.Text, "https://admin.example.com/quotes/"+res.Quote.ID)
	require.Len(t, alert.Files, 1)
	assert.Equal(t, "application/pdf", alert.Files[0].ContentType)

	require.Len(t, f.outbox.entries, 2)
	assert.Equal(t, notify.TemplateConfirmation, f.outbox.entries[0].Template)
	assert.Equal(t, notify.StatusSent, f.outbox.entries[0].Status)
	assert.Equal(t, notify.TemplateStaffAlert, f.outbox.entries[1].Template)
}

func TestSubmitSucceedsWhenDeliveryFails(t *testing.T) {
	f := newFixture(func(f *fixture) { f.mail.err = errors.New("smtp down") })
	res, err := f.svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, res.Confirmation.OK)
	assert.Len(t, f.quotes.created, 1)
	assert.Equal(t, notify.StatusError, f.outbox.entries[0].Status)
}

func TestSubmitValidationHasNoSideEffects(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		code string
	}{
		{"no customer", Request{Items: validRequest().Items}, quote.CodeMissingCustomerData},
		{"short name", Request{Customer: &CustomerInput{Name: " A ", Email: "a@x.com"}, Items: validRequest().Items}, quote.CodeInvalidName},
		{"bad email", Request{Customer: &CustomerInput{Name: "Ana", Email: "not-an-email"}, Items: validRequest().Items}, quote.CodeInvalidEmail},
		{"no items", Request{Customer: &CustomerInput{Name: "Ana", Email: "a@x.com"}}, quote.CodeNoItems},
		{"zero qty", Request{Customer: &CustomerInput{Name: "Ana", Email: "a@x.com"}, Items: []quote.ItemInput{{Name: "A"}}}, quote.CodeInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.Submit(context.Background(), tc.req)

			var ve *quote.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.code, ve.Code)
			assert.Zero(t, f.customers.writes)
			assert.Empty(t, f.quotes.created)
			assert.Empty(t, f.outbox.entries)
		})
	}
}

func TestProductLines(t *testing.T) {
	lines := ProductLines([]quote.ItemInput{
		{Name: "Caneca <b>", Quantity: 1, Quantity2: 2, Quantity3: 3, SelectedColor: "Verde & Azul"},
		{ProductName: "Amostra", Free: true},
		{},
	})
	assert.Equal(t, []string{
		"Caneca &lt;b&gt;: (Qtd: 1), (Qtd: 2) e (Qtd: 3) - Cor: Verde &amp; Azul",
		"Amostra: (brinde)",
		"Produto:",
	}, lines)
}

func TestProductLinesFlattenLineBreaks(t *testing.T) {
	items := []quote.ItemInput{
		{Name: "Caneca\nLinha falsa: (Qtd: 999)", Quantity: 1, SelectedColor: "Azul\r\nVerde"},
		{Name: "Sacola", Quantity: 2},
	}
	lines := ProductLines(items)
	assert.Equal(t, []string{
		"Caneca Linha falsa: (Qtd: 999): (Qtd: 1) - Cor: Azul Verde",
		"Sacola: (Qtd: 2)",
	}, lines)

	msg := strings.Join(lines, "\n")
	assert.Len(t, notify.ProductLines(msg), len(items))
}

func TestRequestDecodesLoosely(t *testing.T) {
	cases := []struct {
		name string
		body string
		code string
	}{
		{"items object", `{"customerData": {"name": "Ana", "email": "a@x.com"}, "items": {}}`, quote.CodeNoItems},
		{"items string", `{"customerData": {"name": "Ana", "email": "a@x.com"}, "items": "Caneca"}`, quote.CodeNoItems},
		{"customer string", `{"customerData": "x", "items": [{"name": "A", "quantity": 1}]}`, quote.CodeInvalidName},
		{"customer array", `{"customerData": ["Ana"], "items": [{"name": "A", "quantity": 1}]}`, quote.CodeInvalidName},
		{"customer null", `{"customerData": null, "items": [{"name": "A", "quantity": 1}]}`, quote.CodeMissingCustomerData},
		{"fractional quantity", `{"customerData": {"name": "Ana", "email": "a@x.com"}, "items": [{"name": "A", "quantity": 2.5}]}`, quote.CodeInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req Request
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))

			f := newFixture()
			_, err := f.svc.Submit(context.Background(), req)
			var ve *quote.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.code, ve.Code)
			assert.Zero(t, f.customers.writes)
		})
	}

	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"customerData": {"name": "Ana", "email": "a@x.com", "cnpj": 12345678000190}, "items": [{"name": "A", "quantity": "10"}], "notes": "ok"}`), &req))
	require.NotNil(t, req.Customer)
	assert.Equal(t, "12345678000190", req.Customer.TaxID)
	assert.Equal(t, 10, req.Items[0].Quantity)
	assert.Equal(t, "ok", req.Notes)

	assert.Error(t, json.Unmarshal([]byte(`["not", "an", "object"]`), &req))
}

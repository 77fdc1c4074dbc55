package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	seq     int64
	entries map[int64]Entry
	failIns error
}

func newMemStore() *memStore {
	return &memStore{entries: map[int64]Entry{}}
}

func (m *memStore) Insert(_ context.Context, e Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIns != nil {
		return 0, m.failIns
	}
	m.seq++
	e.ID = m.seq
	m.entries[e.ID] = e
	return e.ID, nil
}

func (m *memStore) finalize(id int64, at time.Time, fn func(*Entry)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	if e.Status != StatusQueued {
		return ErrNotQueued
	}
	fn(&e)
	e.UpdatedAt = at
	m.entries[id] = e
	return nil
}

func (m *memStore) MarkSent(_ context.Context, id int64, resp ProviderResponse, at time.Time) error {
	return m.finalize(id, at, func(e *Entry) {
		e.Status = StatusSent
		e.ProviderResponse = &resp
	})
}

func (m *memStore) MarkError(_ context.Context, id int64, d Diagnostic, at time.Time) error {
	return m.finalize(id, at, func(e *Entry) {
		e.Status = StatusError
		e.Error = &d
	})
}

func (m *memStore) Get(_ context.Context, id int64) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *memStore) List(_ context.Context, status Status, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for id := m.seq; id > 0 && len(out) < limit; id-- {
		if e, ok := m.entries[id]; ok && (status == "" || e.Status == status) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeTransport struct {
	resp  ProviderResponse
	err   error
	panic bool
	sent  []Message
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(ctx context.Context, m Message) (ProviderResponse, error) {
	if f.panic {
		panic("boom")
	}
	if err := ctx.Err(); err != nil {
		return ProviderResponse{}, err
	}
	f.sent = append(f.sent, m)
	if f.err != nil {
		return ProviderResponse{}, f.err
	}
	return f.resp, nil
}

func TestOutboxMonotonicStatus(t *testing.T) {
	ctx := context.Background()
	ob := NewOutbox(newMemStore())

	id, ok := ob.Enqueue(ctx, "ana@x.com", "Solicitação", TemplateConfirmation, map[string]string{"a": "b"})
	require.True(t, ok)

	e, err := ob.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, e.Status)
	assert.JSONEq(t, `{"a":"b"}`, string(e.Payload))

	require.NoError(t, ob.MarkSent(ctx, id, ProviderResponse{MessageID: "m-1"}))

	err = ob.MarkError(ctx, id, Diagnostic{Kind: KindTransport, Message: "late"})
	assert.ErrorIs(t, err, ErrNotQueued)
	err = ob.MarkSent(ctx, id, ProviderResponse{MessageID: "m-2"})
	assert.ErrorIs(t, err, ErrNotQueued)

	e, err = ob.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, e.Status)
	assert.Equal(t, "m-1", e.ProviderResponse.MessageID)
	assert.Nil(t, e.Error)
}

func TestOutboxMarkUnknown(t *testing.T) {
	ob := NewOutbox(newMemStore())
	assert.ErrorIs(t, ob.MarkSent(context.Background(), 42, ProviderResponse{}), ErrNotFound)
}

func TestOutboxEnqueueNeverFails(t *testing.T) {
	store := newMemStore()
	store.failIns = errors.New("db down")
	ob := NewOutbox(store)

	id, ok := ob.Enqueue(context.Background(), "ana@x.com", "s", TemplateTest, nil)
	assert.False(t, ok)
	assert.Zero(t, id)

	_, ok = ob.Enqueue(context.Background(), "ana@x.com", "s", TemplateTest, func() {})
	assert.False(t, ok)
}

func TestOutboxListFilters(t *testing.T) {
	ctx := context.Background()
	ob := NewOutbox(newMemStore())
	a, _ := ob.Enqueue(ctx, "a@x.com", "s", TemplateTest, nil)
	b, _ := ob.Enqueue(ctx, "b@x.com", "s", TemplateTest, nil)
	require.NoError(t, ob.MarkError(ctx, a, Diagnostic{Kind: KindConfig, Message: "x"}))

	all, err := ob.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b, all[0].ID)

	errored, err := ob.List(ctx, StatusError, 10)
	require.NoError(t, err)
	require.Len(t, errored, 1)
	assert.Equal(t, a, errored[0].ID)
}

func TestSenderDelivers(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tr := &fakeTransport{resp: ProviderResponse{MessageID: "<abc@mail>", Response: "250 OK"}}
	s := NewSender(NewOutbox(store), tr, Address{Name: "Loja", Email: "loja@x.com"}, WithCC(Address{Email: "cc@x.com"}))

	res := s.Send(ctx, Request{
		To:       Address{Name: "Ana", Email: "ana@x.com"},
		Subject:  "Solicitação de Orçamento",
		Template: TemplateConfirmation,
		Payload:  ConfirmationData{ClientName: "Ana", ClientEmail: "ana@x.com"},
		HTML:     "<p>oi</p>",
	})
	require.True(t, res.OK)
	assert.Nil(t, res.Error)
	assert.Equal(t, "<abc@mail>", res.ProviderMessageID)

	require.Len(t, tr.sent, 1)
	assert.Equal(t, "loja@x.com", tr.sent[0].From.Email)
	assert.Equal(t, []Address{{Email: "cc@x.com"}}, tr.sent[0].Cc)

	e, err := store.Get(ctx, res.OutboxID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, e.Status)
	assert.Equal(t, "250 OK", e.ProviderResponse.Response)
}

func TestSenderTransportFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tr := &fakeTransport{err: fmt.Errorf("smtp dial: %w", errors.New("connection refused"))}
	s := NewSender(NewOutbox(store), tr, Address{Email: "loja@x.com"})

	res := s.Send(ctx, Request{To: Address{Email: "ana@x.com"}, Template: TemplateConfirmation})
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, KindTransport, res.Error.Kind)

	e, err := store.Get(ctx, res.OutboxID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, e.Status)
	assert.Contains(t, e.Error.Detail, "connection refused")
	assert.Contains(t, e.Error.Detail, "*fmt.wrapError")
}

func TestSenderUnconfigured(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := NewUnconfiguredSender(NewOutbox(store), &ConfigError{Transport: "smtp", Missing: []string{"SMTP_USER", "SMTP_PASS"}})
	assert.False(t, s.Configured())

	res := s.Send(ctx, Request{To: Address{Email: "ana@x.com"}, Template: TemplateConfirmation})
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, KindConfig, res.Error.Kind)
	assert.Contains(t, res.Error.Message, "SMTP_USER, SMTP_PASS")

	e, err := store.Get(ctx, res.OutboxID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, e.Status)
}

func TestSenderRecoversPanic(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := NewSender(NewOutbox(store), &fakeTransport{panic: true}, Address{Email: "loja@x.com"})

	var res Result
	require.NotPanics(t, func() {
		res = s.Send(ctx, Request{To: Address{Email: "ana@x.com"}, Template: TemplateTest})
	})
	require.NotNil(t, res.Error)
	assert.Equal(t, KindPanic, res.Error.Kind)

	e, err := store.Get(ctx, res.OutboxID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, e.Status)
}

func TestSenderWithoutOutboxStillSends(t *testing.T) {
	store := newMemStore()
	store.failIns = errors.New("db down")
	tr := &fakeTransport{resp: ProviderResponse{MessageID: "m"}}
	s := NewSender(NewOutbox(store), tr, Address{Email: "loja@x.com"})

	res := s.Send(context.Background(), Request{To: Address{Email: "ana@x.com"}})
	assert.True(t, res.OK)
	assert.Zero(t, res.OutboxID)
	assert.Len(t, tr.sent, 1)
}

// ctxStore behaves like a database driver: it refuses work on a done context.
type ctxStore struct{ *memStore }

func (c ctxStore) Insert(ctx context.Context, e Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.memStore.Insert(ctx, e)
}

func (c ctxStore) MarkSent(ctx context.Context, id int64, resp ProviderResponse, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memStore.MarkSent(ctx, id, resp, at)
}

func TestSenderRecordsWhenRequestCancelled(t *testing.T) {
	store := ctxStore{newMemStore()}
	tr := &fakeTransport{resp: ProviderResponse{MessageID: "m-1"}}
	s := NewSender(NewOutbox(store), tr, Address{Email: "loja@x.com"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.Send(ctx, Request{To: Address{Email: "ana@x.com"}, Template: TemplateConfirmation})
	assert.True(t, res.OK)
	require.NotZero(t, res.OutboxID)

	e, err := store.Get(context.Background(), res.OutboxID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, e.Status)
	assert.Equal(t, "m-1", e.ProviderResponse.MessageID)
}

func TestDiagnoseOmitsInnerMessages(t *testing.T) {
	inner := &url.Error{Op: "Post", URL: "https://api.example.com/botSECRET/send", Err: errors.New("dial tcp: refused")}
	d := Diagnose(redacted{msg: "post failed", err: inner})

	assert.Equal(t, "post failed", d.Message)
	assert.Contains(t, d.Detail, "*url.Error")
	assert.NotContains(t, d.Detail, "SECRET")
	assert.NotContains(t, d.Detail, "refused")
}

type redacted struct {
	msg string
	err error
}

func (r redacted) Error() string { return r.msg }
func (r redacted) Unwrap() error { return r.err }

func TestDiagnoseTimeout(t *testing.T) {
	d := Diagnose(fmt.Errorf("brevo request: %w", context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, d.Kind)
	assert.Equal(t, "brevo request: context deadline exceeded", d.Message)
}

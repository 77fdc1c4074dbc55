package notify

import (
	"context"
	"fmt"
	"log"
	"time"
)

const DefaultSendTimeout = 30 * time.Second

// Request is one notification to deliver. Payload is stored in the outbox
// verbatim and must be enough to re-render the message.
type Request struct {
	To       Address
	Subject  string
	Template string
	Payload  any
	HTML     string
	Text     string
	Files    []Attachment
}

// Result reports the outcome of Send. It is the only channel for failures.
type Result struct {
	OK                bool        `json:"ok"`
	OutboxID          int64       `json:"outboxId,omitempty"`
	ProviderMessageID string      `json:"messageId,omitempty"`
	Response          string      `json:"response,omitempty"`
	Error             *Diagnostic `json:"error,omitempty"`
}

type Sender struct {
	outbox    *Outbox
	transport Transport
	cause     error
	from      Address
	cc        []Address
	replyTo   *Address
	timeout   time.Duration
}

type Option func(*Sender)

func WithCC(addrs ...Address) Option {
	return func(s *Sender) { s.cc = append(s.cc, addrs...) }
}

func WithReplyTo(a Address) Option {
	return func(s *Sender) { s.replyTo = &a }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewSender(outbox *Outbox, t Transport, from Address, opts ...Option) *Sender {
	s := &Sender{outbox: outbox, transport: t, from: from, timeout: DefaultSendTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewUnconfiguredSender still records every intent but finalizes each one as
// a config error without contacting any provider.
func NewUnconfiguredSender(outbox *Outbox, cause error) *Sender {
	if cause == nil {
		cause = &ConfigError{Transport: "mail", Missing: []string{"transport"}}
	}
	return &Sender{outbox: outbox, cause: cause, timeout: DefaultSendTimeout}
}

func (s *Sender) Configured() bool {
	return s.transport != nil && s.cause == nil
}

func (s *Sender) TransportName() string {
	if s.transport == nil {
		return "none"
	}
	return s.transport.Name()
}

// Send enqueues req, dispatches it and finalizes the outbox entry. It never
// returns an error or panics; failures come back inside Result.
func (s *Sender) Send(ctx context.Context, req Request) (res Result) {
	// The outbox row and the attempt must survive a cancelled request context.
	finalCtx := context.WithoutCancel(ctx)

	id, queued := s.outbox.Enqueue(finalCtx, req.To.Email, req.Subject, req.Template, req.Payload)
	res.OutboxID = id

	defer func() {
		if r := recover(); r != nil {
			d := Diagnostic{Kind: KindPanic, Message: fmt.Sprint(r)}
			log.Printf("notify: transport panic template=%s to=%s err=%v", req.Template, req.To.Email, r)
			s.finalizeError(finalCtx, id, queued, d)
			res = Result{OutboxID: id, Error: &d}
		}
	}()

	if !s.Configured() {
		d := Diagnose(s.cause)
		d.Kind = KindConfig
		log.Printf("notify: transport not configured template=%s to=%s err=%v", req.Template, req.To.Email, s.cause)
		s.finalizeError(finalCtx, id, queued, d)
		res.Error = &d
		return res
	}

	sendCtx, cancel := context.WithTimeout(finalCtx, s.timeout)
	defer cancel()

	resp, err := s.transport.Send(sendCtx, Message{
		From:    s.from,
		To:      req.To,
		Cc:      s.cc,
		ReplyTo: s.replyTo,
		Subject: req.Subject,
		HTML:    req.HTML,
		Text:    req.Text,
		Files:   req.Files,
	})
	if err != nil {
		d := Diagnose(err)
		log.Printf("notify: send failed transport=%s template=%s to=%s err=%v", s.transport.Name(), req.Template, req.To.Email, err)
		s.finalizeError(finalCtx, id, queued, d)
		res.Error = &d
		return res
	}

	if queued {
		if err := s.outbox.MarkSent(finalCtx, id, resp); err != nil {
			log.Printf("notify: %v", err)
		}
	}
	log.Printf("notify: sent transport=%s template=%s to=%s message_id=%s", s.transport.Name(), req.Template, req.To.Email, resp.MessageID)

	res.OK = true
	res.ProviderMessageID = resp.MessageID
	res.Response = resp.Response
	return res
}

func (s *Sender) finalizeError(ctx context.Context, id int64, queued bool, d Diagnostic) {
	if !queued {
		return
	}
	if err := s.outbox.MarkError(ctx, id, d); err != nil {
		log.Printf("notify: %v", err)
	}
}

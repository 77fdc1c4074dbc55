package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type Message struct {
	From    Address
	To      Address
	Cc      []Address
	ReplyTo *Address
	Subject string
	HTML    string
	Text    string
	Files   []Attachment
}

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// ProviderResponse is what a transport reports back after accepting a message.
type ProviderResponse struct {
	MessageID string `json:"messageId,omitempty"`
	Response  string `json:"response,omitempty"`
}

// Transport delivers a rendered message. Exactly one is active per deployment.
type Transport interface {
	Name() string
	Send(ctx context.Context, m Message) (ProviderResponse, error)
}

// ConfigError is returned eagerly by transport constructors when required
// credentials are absent. Deliveries are never attempted with it.
type ConfigError struct {
	Transport string
	Missing   []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s transport not configured: missing %s", e.Transport, strings.Join(e.Missing, ", "))
}

// Diagnostic kinds recorded on errored outbox entries.
const (
	KindConfig    = "config"
	KindTransport = "transport"
	KindTimeout   = "timeout"
	KindPanic     = "panic"
)

type Diagnostic struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Diagnose classifies err. Detail holds the outermost message followed by the
// types of the wrapped errors; inner messages are left out because transports
// may carry credentials in them.
func Diagnose(err error) Diagnostic {
	d := Diagnostic{Kind: KindTransport, Message: err.Error()}

	var cfgErr *ConfigError
	switch {
	case errors.As(err, &cfgErr):
		d.Kind = KindConfig
	case errors.Is(err, context.DeadlineExceeded):
		d.Kind = KindTimeout
	}

	chain := []string{fmt.Sprintf("%T: %v", err, err)}
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	d.Detail = strings.Join(chain, "\n")
	return d
}

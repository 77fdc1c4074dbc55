package brevo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"naturezabrindes/quote_backend/internal/domain/notify"
)

const DefaultBaseURL = "https://api.brevo.com"

type Transport struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string, client *http.Client) (*Transport, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &notify.ConfigError{Transport: "brevo", Missing: []string{"BREVO_API_KEY"}}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transport{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: client}, nil
}

func (t *Transport) Name() string { return "brevo" }

type contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type sendRequest struct {
	Sender      contact      `json:"sender"`
	To          []contact    `json:"to"`
	Cc          []contact    `json:"cc,omitempty"`
	ReplyTo     *contact     `json:"replyTo,omitempty"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent,omitempty"`
	TextContent string       `json:"textContent,omitempty"`
	Attachment  []attachment `json:"attachment,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
}

func (t *Transport) Send(ctx context.Context, m notify.Message) (notify.ProviderResponse, error) {
	payload := sendRequest{
		Sender:      contact{Name: m.From.Name, Email: m.From.Email},
		To:          []contact{{Name: m.To.Name, Email: m.To.Email}},
		Subject:     m.Subject,
		HTMLContent: m.HTML,
		TextContent: m.Text,
	}
	for _, cc := range m.Cc {
		payload.Cc = append(payload.Cc, contact{Name: cc.Name, Email: cc.Email})
	}
	if m.ReplyTo != nil {
		payload.ReplyTo = &contact{Name: m.ReplyTo.Name, Email: m.ReplyTo.Email}
	}
	for _, f := range m.Files {
		payload.Attachment = append(payload.Attachment, attachment{Name: f.Name, Content: base64.StdEncoding.EncodeToString(f.Data)})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return notify.ProviderResponse{}, fmt.Errorf("brevo encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return notify.ProviderResponse{}, err
	}
	req.Header.Set("api-key", t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return notify.ProviderResponse{}, fmt.Errorf("brevo request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return notify.ProviderResponse{}, fmt.Errorf("brevo status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out sendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return notify.ProviderResponse{}, fmt.Errorf("brevo decode: %w", err)
	}
	return notify.ProviderResponse{MessageID: out.MessageID, Response: resp.Status}, nil
}

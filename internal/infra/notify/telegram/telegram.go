package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"naturezabrindes/quote_backend/internal/domain/notify"
)

const DefaultBaseURL = "https://api.telegram.org"

// Transport posts staff alerts to a single manager chat through the Bot API.
// The message recipient is ignored.
type Transport struct {
	baseURL string
	token   string
	chatID  string
	http    *http.Client
}

func New(baseURL, token, chatID string, client *http.Client) (*Transport, error) {
	var missing []string
	if token == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if chatID == "" {
		missing = append(missing, "MANAGER_CHAT_ID")
	}
	if len(missing) > 0 {
		return nil, &notify.ConfigError{Transport: "telegram", Missing: missing}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transport{baseURL: strings.TrimRight(baseURL, "/"), token: token, chatID: chatID, http: client}, nil
}

func (t *Transport) Name() string { return "telegram" }

func (t *Transport) ChatID() string { return t.chatID }

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func (t *Transport) Send(ctx context.Context, m notify.Message) (notify.ProviderResponse, error) {
	text := m.Text
	if strings.TrimSpace(text) == "" {
		text = m.Subject
	}
	body, _ := json.Marshal(map[string]interface{}{
		"chat_id": t.chatID,
		"text":    text,
	})
	res, err := t.call(ctx, "sendMessage", "application/json", bytes.NewReader(body))
	if err != nil {
		return notify.ProviderResponse{}, err
	}

	for _, f := range m.Files {
		buf, contentType := buildDocumentMultipart(t.chatID, f.Name, f.ContentType, f.Data)
		if _, err := t.call(ctx, "sendDocument", contentType, buf); err != nil {
			return notify.ProviderResponse{}, err
		}
	}
	return notify.ProviderResponse{
		MessageID: strconv.FormatInt(res.Result.MessageID, 10),
		Response:  "ok",
	}, nil
}

func (t *Transport) call(ctx context.Context, method, contentType string, body io.Reader) (apiResponse, error) {
	urlStr := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, body)
	if err != nil {
		return apiResponse{}, redact(err, t.token)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := t.http.Do(req)
	if err != nil {
		// the url carries the bot token
		return apiResponse{}, fmt.Errorf("telegram %s: %w", method, redact(err, t.token))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode != http.StatusOK {
		return apiResponse{}, fmt.Errorf("telegram %s status=%d body=%s", method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return apiResponse{}, fmt.Errorf("telegram %s decode: %w", method, err)
	}
	if !out.OK {
		return apiResponse{}, fmt.Errorf("telegram %s: %s", method, out.Description)
	}
	return out, nil
}

// redactedError hides the wrapped error, whose URL carries the bot token. Only
// its timeout and cancellation state survive.
type redactedError struct {
	msg     string
	timeout bool
	cancel  bool
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Is(target error) bool {
	switch target {
	case context.DeadlineExceeded:
		return e.timeout
	case context.Canceled:
		return e.cancel
	}
	return false
}

func redact(err error, token string) error {
	return &redactedError{
		msg:     strings.ReplaceAll(err.Error(), token, "***"),
		timeout: errors.Is(err, context.DeadlineExceeded),
		cancel:  errors.Is(err, context.Canceled),
	}
}

func buildDocumentMultipart(chatID, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("chat_id", chatID)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, _ := writer.CreatePart(header)
	_, _ = part.Write(data)
	_ = writer.Close()
	return body, writer.FormDataContentType()
}

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naturezabrindes/quote_backend/internal/domain/notify"
)

func TestNewMissing(t *testing.T) {
	_, err := New("", "tok", "", nil)
	var cfgErr *notify.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"MANAGER_CHAT_ID"}, cfgErr.Missing)
}

func TestSendMessageAndDocument(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/bottok/sendMessage":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "777", body["chat_id"])
			assert.Equal(t, "Nova solicitação", body["text"])
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
		case "/bottok/sendDocument":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "777", r.FormValue("chat_id"))
			f, hdr, err := r.FormFile("document")
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			assert.Equal(t, "orcamento.pdf", hdr.Filename)
			assert.Equal(t, "%PDF", string(data))
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":43}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tr, err := New(srv.URL, "tok", "777", srv.Client())
	require.NoError(t, err)

	resp, err := tr.Send(context.Background(), notify.Message{
		Text:  "Nova solicitação",
		Files: []notify.Attachment{{Name: "orcamento.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", resp.MessageID)
	assert.Equal(t, []string{"/bottok/sendMessage", "/bottok/sendDocument"}, calls)
}

func TestSendNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tr, err := New(srv.URL, "tok", "1", srv.Client())
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), notify.Message{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestRedactToken(t *testing.T) {
	const token = "123456:SECRET-TOKEN"
	tr, err := New("http://127.0.0.1:1", token, "42", nil)
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), notify.Message{Text: "x"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)

	d := notify.Diagnose(err)
	assert.Equal(t, notify.KindTransport, d.Kind)
	assert.NotContains(t, d.Message, token)
	assert.NotContains(t, d.Detail, token)
}

func TestRedactKeepsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	tr, err := New(srv.URL, "tok-secret", "1", srv.Client())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = tr.Send(ctx, notify.Message{Text: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	d := notify.Diagnose(err)
	assert.Equal(t, notify.KindTimeout, d.Kind)
	assert.NotContains(t, d.Detail, "tok-secret")
}

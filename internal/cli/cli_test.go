package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("http://localhost:8080/api", "")
	for _, name := range []string{"submit", "list", "get", "status", "delete", "stats", "email-test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func run(t *testing.T, baseURL string, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(baseURL, "tok")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(append(args, "--attempts", "1"))
	err := cmd.Execute()
	return out.String(), err
}

func TestSubmitFromStdin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/quotes", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"email":"ana@example.com"`)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"q1","numero_solicitacao":"SOL-1-ABCDEF","status":"pending","created_at":"2025-04-01T09:00:00Z"}}`))
	}))
	defer srv.Close()

	in := strings.NewReader(`{"customerData":{"name":"Ana Souza","email":"ana@example.com"},"items":[{"name":"Caneca","quantity":10}]}`)
	out, err := run(t, srv.URL+"/api", in, "submit")
	require.NoError(t, err)
	assert.Equal(t, "created SOL-1-ABCDEF id=q1 status=pending\n", out)
}

func TestStatusRejectsUnknownValue(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1/api", nil, "status", "q1", "archived")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}

func TestListText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Internal-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"quotes":[{"id":"q1","numero_solicitacao":"SOL-1","status":"pending","created_at":"2025-04-01T09:00:00Z","customer":{"name":"Ana Souza"},"items":[{"product_name":"Caneca","quantity1":10}]}],
			"pagination":{"currentPage":1,"totalPages":1,"totalItems":1,"itemsPerPage":10}}}`))
	}))
	defer srv.Close()

	out, err := run(t, srv.URL+"/api", nil, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SOL-1")
	assert.Contains(t, out, "Ana Souza")
	assert.Contains(t, out, "page 1/1, 1 total")
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1/api", nil, "stats", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

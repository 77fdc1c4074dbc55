// Package supabase stores quotes in the legacy hosted tables through PostgREST.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

func New(baseURL, serviceRoleKey string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid supabase url")
	}
	if serviceRoleKey == "" {
		return nil, fmt.Errorf("supabase service role key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, key: serviceRoleKey, http: httpClient}, nil
}

// APIError is a non-2xx PostgREST response.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase status %d: %s %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase status %d: %s", e.Status, e.Message)
}

type request struct {
	method string
	table  string
	query  url.Values
	body   any
	prefer []string
}

// do sends one PostgREST request and decodes a JSON body into out when given.
func (c *Client) do(ctx context.Context, r request, out any) (http.Header, error) {
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	urlStr := c.baseURL + "/rest/v1/" + r.table
	if len(r.query) > 0 {
		urlStr += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, urlStr, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	if len(r.prefer) > 0 {
		req.Header.Set("Prefer", strings.Join(r.prefer, ","))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(msg, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(msg))
		}
		return nil, apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("supabase decode %s: %w", r.table, err)
		}
	}
	return resp.Header, nil
}

// totalCount reads the total from a "Content-Range: 0-9/42" header.
func totalCount(h http.Header) int {
	cr := h.Get("Content-Range")
	i := strings.LastIndex(cr, "/")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(cr[i+1:])
	if err != nil {
		return 0
	}
	return n
}

func inList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"naturezabrindes/quote_backend/internal/domain/notify"
)

const (
	defaultTestSubject = "Teste de Envio - Natureza Brindes"
	defaultTestHTML    = `<div style="font-family:Arial,sans-serif"><h2>Teste de envio</h2><p>Este é um teste de envio do backend.</p></div>`
	defaultTestText    = "Teste de envio\n\nEste é um teste de envio do backend.\n"
)

type emailTestRequest struct {
	To          string `json:"to"`
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"htmlContent"`
}

// EmailTest sends a one-off message through the active transport and records
// it in the outbox like any other notification.
func (h *Handlers) EmailTest(w http.ResponseWriter, r *http.Request) {
	var req emailTestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "INVALID_REQUEST", "Corpo da requisição inválido")
		return
	}
	req.To = strings.TrimSpace(req.To)
	if req.To == "" {
		fail(w, http.StatusBadRequest, "MISSING_RECIPIENT", "Parâmetro to é obrigatório")
		return
	}
	if req.Name == "" {
		req.Name = "Teste"
	}
	if req.Subject == "" {
		req.Subject = defaultTestSubject
	}
	body := req.HTMLContent
	if body == "" {
		body = defaultTestHTML
	}

	res := h.Mailer.Send(r.Context(), notify.Request{
		To:       notify.Address{Name: req.Name, Email: req.To},
		Subject:  req.Subject,
		Template: notify.TemplateTest,
		Payload:  map[string]string{"to": req.To, "name": req.Name},
		HTML:     body,
		Text:     defaultTestText,
	})
	if !res.OK {
		resp := envelope{Error: res.Error.Message, Code: "EMAIL_" + strings.ToUpper(res.Error.Kind), Data: res}
		if !h.Cfg.IsProduction() {
			resp.Details = res.Error.Detail
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	ok(w, http.StatusOK, res, "")
}

// EmailPreview renders the confirmation email with fixed sample data.
func (h *Handlers) EmailPreview(w http.ResponseWriter, r *http.Request) {
	page, err := notify.RenderConfirmationHTML(notify.PreviewData())
	if err != nil {
		h.internalError(w, r, "email: preview", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (h *Handlers) EmailOutbox(w http.ResponseWriter, r *http.Request) {
	var status notify.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" && raw != "all" {
		st, valid := notify.ParseStatus(raw)
		if !valid {
			fail(w, http.StatusBadRequest, "INVALID_STATUS", "Status inválido. Use: queued, sent ou error")
			return
		}
		status = st
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.Outbox.List(r.Context(), status, limit)
	if err != nil {
		h.internalError(w, r, "email: outbox", err)
		return
	}
	if entries == nil {
		entries = []notify.Entry{}
	}
	ok(w, http.StatusOK, map[string]any{"entries": entries}, "")
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"naturezabrindes/quote_backend/internal/domain/intake"
	"naturezabrindes/quote_backend/internal/domain/quote"
)

const maxBodyBytes = 1 << 20

type createdQuote struct {
	ID        string       `json:"id"`
	Reference string       `json:"numero_solicitacao"`
	Status    quote.Status `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// quoteView flags stored quotes that lost their items.
type quoteView struct {
	quote.Quote
	Incomplete bool `json:"incomplete,omitempty"`
}

func viewOf(q quote.Quote) quoteView {
	return quoteView{Quote: q, Incomplete: q.Incomplete()}
}

func (h *Handlers) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req intake.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, quote.CodeInvalidRequest, "Corpo da requisição inválido")
		return
	}

	res, err := h.Intake.Submit(r.Context(), req)
	if err != nil {
		var verr *quote.ValidationError
		if errors.As(err, &verr) {
			fail(w, http.StatusBadRequest, verr.Code, verr.Message)
			return
		}
		h.internalError(w, r, "quotes: create", err)
		return
	}

	q := res.Quote
	ok(w, http.StatusCreated, createdQuote{
		ID:        q.ID,
		Reference: q.Reference,
		Status:    q.Status,
		CreatedAt: q.CreatedAt,
	}, "Solicitação de orçamento criada com sucesso")
}

func (h *Handlers) ListQuotes(w http.ResponseWriter, r *http.Request) {
	params, err := quote.ParseListParams(r.URL.Query())
	if err != nil {
		fail(w, http.StatusBadRequest, quote.CodeInvalidStatus, err.Error())
		return
	}
	page, err := h.Quotes.List(r.Context(), params)
	if err != nil {
		h.internalError(w, r, "quotes: list", err)
		return
	}

	views := make([]quoteView, len(page.Quotes))
	for i, q := range page.Quotes {
		views[i] = viewOf(q)
	}
	ok(w, http.StatusOK, map[string]any{
		"quotes":     views,
		"pagination": quote.NewPagination(params, page.Total),
	}, "")
}

func (h *Handlers) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.Quotes.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, quote.ErrNotFound) {
		fail(w, http.StatusNotFound, "NOT_FOUND", "Orçamento não encontrado")
		return
	}
	if err != nil {
		h.internalError(w, r, "quotes: get", err)
		return
	}
	ok(w, http.StatusOK, viewOf(q), "")
}

func (h *Handlers) UpdateQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, quote.CodeInvalidRequest, "Corpo da requisição inválido")
		return
	}
	status, valid := quote.ParseStatus(body.Status)
	if !valid {
		fail(w, http.StatusBadRequest, quote.CodeInvalidStatus, "Status inválido. Use: pending, approved, rejected ou completed")
		return
	}

	q, err := h.Quotes.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status, time.Now().UTC())
	if errors.Is(err, quote.ErrNotFound) {
		fail(w, http.StatusNotFound, "NOT_FOUND", "Orçamento não encontrado")
		return
	}
	if err != nil {
		h.internalError(w, r, "quotes: update status", err)
		return
	}
	ok(w, http.StatusOK, viewOf(q), "Status do orçamento atualizado com sucesso")
}

func (h *Handlers) DeleteQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.Quotes.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, quote.ErrNotFound) {
		fail(w, http.StatusNotFound, "NOT_FOUND", "Orçamento não encontrado")
		return
	}
	if err != nil {
		h.internalError(w, r, "quotes: delete", err)
		return
	}
	ok(w, http.StatusOK, viewOf(q), "Orçamento excluído com sucesso")
}

func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Quotes.Stats(r.Context())
	if err != nil {
		h.internalError(w, r, "quotes: stats", err)
		return
	}
	recent := stats.Recent
	if recent == nil {
		recent = []quote.Summary{}
	}
	ok(w, http.StatusOK, map[string]any{
		"summary":      stats,
		"recentQuotes": recent,
	}, "")
}

func (h *Handlers) QuotePDF(w http.ResponseWriter, r *http.Request) {
	q, err := h.Quotes.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, quote.ErrNotFound) {
		fail(w, http.StatusNotFound, "NOT_FOUND", "Orçamento não encontrado")
		return
	}
	if err != nil {
		h.internalError(w, r, "quotes: pdf", err)
		return
	}

	doc, err := h.PDF.Generate(q)
	if err != nil {
		h.internalError(w, r, "quotes: pdf", err)
		return
	}

	filename := fmt.Sprintf("orcamento-%s.pdf", strings.ReplaceAll(q.Reference, `"`, ""))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

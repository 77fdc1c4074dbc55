package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"naturezabrindes/quote_backend/internal/app/config"
	"naturezabrindes/quote_backend/internal/domain/intake"
	"naturezabrindes/quote_backend/internal/domain/notify"
	"naturezabrindes/quote_backend/internal/domain/quote"
	"naturezabrindes/quote_backend/internal/domain/quote/pdf"
)

const msgInternal = "Erro interno do servidor"

type Handlers struct {
	Cfg    config.Config
	Quotes quote.Store
	Intake *intake.Service
	Mailer *notify.Sender
	Outbox *notify.Outbox
	PDF    pdf.Generator
}

func New(cfg config.Config, quotes quote.Store, svc *intake.Service, mailer *notify.Sender, outbox *notify.Outbox, gen pdf.Generator) *Handlers {
	return &Handlers{
		Cfg:    cfg,
		Quotes: quotes,
		Intake: svc,
		Mailer: mailer,
		Outbox: outbox,
		PDF:    gen,
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response failed err=%v", err)
	}
}

func ok(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func fail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: message, Code: code})
}

// internalError logs err and answers 500. The error text reaches the client
// only outside production.
func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, area string, err error) {
	log.Printf("%s: failed request_id=%s err=%v", area, middleware.GetReqID(r.Context()), err)
	resp := envelope{Error: msgInternal, Code: "INTERNAL_ERROR"}
	if !h.Cfg.IsProduction() {
		resp.Details = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"regexp"
	"strings"

	"naturezabrindes/quote_backend/internal/domain/customer"
	"naturezabrindes/quote_backend/internal/domain/notify"
	"naturezabrindes/quote_backend/internal/domain/quote"
	"naturezabrindes/quote_backend/internal/domain/quote/pdf"
)

const ConfirmationSubject = "Solicitação de Orçamento"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type CustomerInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	TaxID   string `json:"cnpj"`

	malformed bool
}

// Request is the storefront's checkout payload.
type Request struct {
	Customer *CustomerInput    `json:"customerData"`
	Items    []quote.ItemInput `json:"items"`
	Notes    string            `json:"notes"`
}

// UnmarshalJSON accepts any JSON object. Fields of the wrong shape decode to
// values that fail validation with a specific code: customerData that is not
// an object is an invalid name and items that are not an array are missing.
func (r *Request) UnmarshalJSON(b []byte) error {
	var raw struct {
		Customer json.RawMessage `json:"customerData"`
		Items    json.RawMessage `json:"items"`
		Notes    json.RawMessage `json:"notes"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*r = Request{Notes: quote.LooseText(raw.Notes)}
	if err := json.Unmarshal(raw.Items, &r.Items); err != nil {
		r.Items = nil
	}
	r.Customer = decodeCustomer(raw.Customer)
	return nil
}

func decodeCustomer(raw json.RawMessage) *CustomerInput {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var f map[string]json.RawMessage
	if err := json.Unmarshal(raw, &f); err != nil {
		return &CustomerInput{malformed: true}
	}
	return &CustomerInput{
		Name:    quote.LooseText(f["name"]),
		Email:   quote.LooseText(f["email"]),
		Phone:   quote.LooseText(f["phone"]),
		Company: quote.LooseText(f["company"]),
		TaxID:   quote.LooseText(f["cnpj"]),
	}
}

type Result struct {
	Quote        quote.Quote
	Confirmation notify.Result
	Alert        *notify.Result
}

type Service struct {
	resolver *customer.Resolver
	writer   *quote.Writer
	mailer   *notify.Sender
	alerts   *notify.Sender
	pdf      pdf.Generator
	adminURL string
}

type Option func(*Service)

// WithStaffAlerts sends a short alert after every accepted quote. When gen is
// not nil the quote PDF is attached.
func WithStaffAlerts(alerts *notify.Sender, gen pdf.Generator) Option {
	return func(s *Service) {
		s.alerts = alerts
		s.pdf = gen
	}
}

func WithAdminURL(u string) Option {
	return func(s *Service) { s.adminURL = strings.TrimRight(u, "/") }
}

func NewService(resolver *customer.Resolver, writer *quote.Writer, mailer *notify.Sender, opts ...Option) *Service {
	s := &Service{resolver: resolver, writer: writer, mailer: mailer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the whole request before touching storage, then resolves
// the customer, writes the quote and notifies. Notification outcomes never
// change the returned error.
func (s *Service) Submit(ctx context.Context, req Request) (Result, error) {
	if err := ValidateCustomer(req.Customer); err != nil {
		return Result{}, err
	}
	if err := quote.ValidateItems(req.Items); err != nil {
		return Result{}, err
	}

	c := req.Customer
	customerID, err := s.resolver.Resolve(ctx, c.Email, customer.Profile{
		Name:    c.Name,
		Phone:   c.Phone,
		Company: c.Company,
		TaxID:   c.TaxID,
	})
	if err != nil {
		return Result{}, err
	}

	items := make([]quote.LineItem, len(req.Items))
	for i, in := range req.Items {
		items[i] = in.ToLineItem()
	}
	q, err := s.writer.Create(ctx, customerID, items, req.Notes)
	if err != nil {
		return Result{}, err
	}
	q.Customer = &customer.Customer{
		ID:      customerID,
		Email:   customer.NormalizeEmail(c.Email),
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Company: strings.TrimSpace(c.Company),
		TaxID:   strings.TrimSpace(c.TaxID),
	}

	res := Result{Quote: q}
	lines := ProductLines(req.Items)
	res.Confirmation = s.sendConfirmation(ctx, q, lines)
	if s.alerts != nil {
		alert := s.sendAlert(ctx, q, lines)
		res.Alert = &alert
	}
	return res, nil
}

func (s *Service) sendConfirmation(ctx context.Context, q quote.Quote, lines []string) notify.Result {
	c := q.Customer
	data := notify.ConfirmationData{
		ClientName:    c.Name,
		ClientEmail:   c.Email,
		ClientPhone:   c.Phone,
		ClientCompany: c.Company,
		Reference:     q.Reference,
		Subject:       ConfirmationSubject,
		Message:       "Produtos solicitados\n\n" + strings.Join(lines, "\n"),
		Observations:  q.Notes,
	}
	htmlBody, err := notify.RenderConfirmationHTML(data)
	if err != nil {
		log.Printf("intake: confirmation html failed quote_id=%s err=%v", q.ID, err)
	}
	textBody, err := notify.RenderConfirmationText(data)
	if err != nil {
		log.Printf("intake: confirmation text failed quote_id=%s err=%v", q.ID, err)
	}

	res := s.mailer.Send(ctx, notify.Request{
		To:       notify.Address{Name: c.Name, Email: c.Email},
		Subject:  ConfirmationSubject,
		Template: notify.TemplateConfirmation,
		Payload:  data,
		HTML:     htmlBody,
		Text:     textBody,
	})
	if !res.OK {
		log.Printf("intake: confirmation not delivered quote_id=%s outbox_id=%d kind=%s", q.ID, res.OutboxID, res.Error.Kind)
	}
	return res
}

func (s *Service) sendAlert(ctx context.Context, q quote.Quote, lines []string) notify.Result {
	c := q.Customer
	alert := notify.StaffAlert{
		Reference: q.Reference,
		QuoteID:   q.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Lines:     lines,
	}
	if s.adminURL != "" {
		alert.AdminURL = s.adminURL + "/quotes/" + q.ID
	}

	req := notify.Request{
		To:       notify.Address{Name: "equipe", Email: "staff"},
		Subject:  "Nova solicitação " + q.Reference,
		Template: notify.TemplateStaffAlert,
		Payload:  alert,
		Text:     notify.RenderStaffAlert(alert),
	}
	if s.pdf != nil {
		doc, err := s.pdf.Generate(q)
		if err != nil {
			log.Printf("intake: alert pdf failed quote_id=%s err=%v", q.ID, err)
		} else {
			req.Files = []notify.Attachment{{
				Name:        fmt.Sprintf("orcamento-%s.pdf", q.Reference),
				ContentType: "application/pdf",
				Data:        doc,
			}}
		}
	}

	res := s.alerts.Send(ctx, req)
	if !res.OK {
		log.Printf("intake: staff alert not delivered quote_id=%s outbox_id=%d", q.ID, res.OutboxID)
	}
	return res
}

func ValidateCustomer(c *CustomerInput) error {
	if c != nil && c.malformed {
		return &quote.ValidationError{Code: quote.CodeInvalidName, Message: "Nome deve ter pelo menos 2 caracteres"}
	}
	if c == nil || strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
		return &quote.ValidationError{Code: quote.CodeMissingCustomerData, Message: "Dados do cliente são obrigatórios (name, email)"}
	}
	if len([]rune(strings.TrimSpace(c.Name))) < 2 {
		return &quote.ValidationError{Code: quote.CodeInvalidName, Message: "Nome deve ter pelo menos 2 caracteres"}
	}
	if !emailPattern.MatchString(strings.TrimSpace(c.Email)) {
		return &quote.ValidationError{Code: quote.CodeInvalidEmail, Message: "E-mail inválido"}
	}
	return nil
}

// ProductLines renders one HTML-escaped summary line per cart item, e.g.
// "Caneca: (Qtd: 10) e (Qtd: 20) - Cor: Azul".
func ProductLines(items []quote.ItemInput) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, productLine(it))
	}
	return out
}

// lineBreaks are flattened so one item always renders as one line.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func productLine(it quote.ItemInput) string {
	var qty []string
	for _, n := range []int{it.Quantity, it.Quantity2, it.Quantity3} {
		if n > 0 {
			qty = append(qty, fmt.Sprintf("(Qtd: %d)", n))
		}
	}

	name := lineBreaks.Replace(it.DisplayName())
	if name == "" {
		name = "Produto"
	}
	line := html.EscapeString(name) + ":"
	switch len(qty) {
	case 0:
		if it.Free {
			line += " (brinde)"
		}
	case 1:
		line += " " + qty[0]
	default:
		line += " " + strings.Join(qty[:len(qty)-1], ", ") + " e " + qty[len(qty)-1]
	}
	if color := strings.TrimSpace(lineBreaks.Replace(it.SelectedColor)); color != "" {
		line += " - Cor: " + html.EscapeString(color)
	}
	return line
}

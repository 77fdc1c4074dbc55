package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	htmltemplate "html/template"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"
)

const (
	TemplateConfirmation = "quote_confirmation"
	TemplateTest         = "test"
	TemplateStaffAlert   = "staff_alert"

	DefaultBrand = "Natureza Brindes"
)

// ConfirmationData parameterizes the customer confirmation email. Message
// holds product lines that the caller has already HTML-escaped; every other
// field is escaped by the template.
type ConfirmationData struct {
	ClientName    string `json:"clientName"`
	ClientEmail   string `json:"clientEmail"`
	ClientPhone   string `json:"clientPhone,omitempty"`
	ClientCompany string `json:"clientCompany,omitempty"`
	Reference     string `json:"reference,omitempty"`
	Subject       string `json:"subject,omitempty"`
	Message       string `json:"message,omitempty"`
	Observations  string `json:"observations,omitempty"`
	Brand         string `json:"-"`
	LogoURL       string `json:"-"`
	Year          int    `json:"-"`
}

//go:embed templates/confirmation.html
var confirmationHTML string

var (
	confirmationTmpl = htmltemplate.Must(htmltemplate.New("confirmation").Parse(confirmationHTML))
	confirmationText = texttemplate.Must(texttemplate.New("confirmation_text").Parse(confirmationTextSrc))

	productsHeading    = regexp.MustCompile(`(?i)^Produtos\s+solicitados\s*:?`)
	productsHeadingRow = regexp.MustCompile(`(?i)^Produtos\s+(solicitados|selecionados)$`)
	lineBreaks         = regexp.MustCompile(`\n+`)
)

const confirmationTextSrc = `Olá {{.ClientName}}, agradecemos seu contato.

Recebemos sua solicitação de orçamento. Em breve retornaremos com a melhor proposta.
{{- if .Products}}

Produtos selecionados:
{{- range .Products}}
- {{.}}
{{- end}}
{{- if .Observations}}

Observações: {{.Observations}}
{{- end}}
{{- end}}

Seus dados:
Empresa: {{.ClientCompany}}
Nome: {{.ClientName}}
Telefone: {{.ClientPhone}}
E-mail: {{.ClientEmail}}

{{.Brand}}
`

type confirmationView struct {
	ConfirmationData
	Products     []htmltemplate.HTML
	Observations string
}

type confirmationTextView struct {
	ConfirmationData
	Products []string
}

func (d ConfirmationData) withDefaults() ConfirmationData {
	if d.Brand == "" {
		d.Brand = DefaultBrand
	}
	if d.Year == 0 {
		d.Year = time.Now().Year()
	}
	return d
}

func RenderConfirmationHTML(d ConfirmationData) (string, error) {
	d = d.withDefaults()
	lines := ProductLines(d.Message)
	view := confirmationView{
		ConfirmationData: d,
		Products:         make([]htmltemplate.HTML, len(lines)),
		Observations:     strings.TrimSpace(d.Observations),
	}
	for i, l := range lines {
		view.Products[i] = htmltemplate.HTML(l)
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render confirmation html: %w", err)
	}
	return buf.String(), nil
}

func RenderConfirmationText(d ConfirmationData) (string, error) {
	d = d.withDefaults()
	d.Observations = strings.TrimSpace(d.Observations)
	lines := ProductLines(d.Message)
	for i, l := range lines {
		lines[i] = html.UnescapeString(l)
	}

	var buf bytes.Buffer
	if err := confirmationText.Execute(&buf, confirmationTextView{ConfirmationData: d, Products: lines}); err != nil {
		return "", fmt.Errorf("render confirmation text: %w", err)
	}
	return buf.String(), nil
}

// ProductLines splits a product message into list items, dropping the
// leading heading and blank lines.
func ProductLines(message string) []string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return nil
	}
	msg = productsHeading.ReplaceAllString(msg, "")

	var out []string
	for _, l := range lineBreaks.Split(msg, -1) {
		l = strings.TrimSpace(l)
		if l == "" || productsHeadingRow.MatchString(l) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// PreviewData is the fixed sample rendered by the preview endpoint.
func PreviewData() ConfirmationData {
	return ConfirmationData{
		ClientName:    "Eduardo Souza",
		ClientEmail:   "eduardo.souza@exemplo.com.br",
		ClientPhone:   "(27) 99876-5432",
		ClientCompany: "Souza Eventos Ltda",
		Reference:     "SOL-1718000000000-PREVIEW",
		Subject:       "Solicitação de Orçamento",
		Message: "Produtos solicitados\n\n" +
			"Caneca de bambu 350 mL: (Qtd: 100) e (Qtd: 250) - Cor: Natural\n" +
			"Ecobag algodão cru: (Qtd: 500)",
		Observations: "Gravação do logotipo em uma cor.",
		Year:         2025,
	}
}

// StaffAlert is the short plain text sent to the manager chat.
type StaffAlert struct {
	Reference string   `json:"reference"`
	QuoteID   string   `json:"quoteId"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Company   string   `json:"company,omitempty"`
	Lines     []string `json:"lines,omitempty"`
	AdminURL  string   `json:"adminUrl,omitempty"`
}

func RenderStaffAlert(a StaffAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nova solicitação de orçamento %s\n", a.Reference)
	fmt.Fprintf(&b, "Cliente: %s <%s>\n", a.Name, a.Email)
	if a.Company != "" {
		fmt.Fprintf(&b, "Empresa: %s\n", a.Company)
	}
	if a.Phone != "" {
		fmt.Fprintf(&b, "Telefone: %s\n", a.Phone)
	}
	if len(a.Lines) > 0 {
		b.WriteString("\n")
		for _, l := range a.Lines {
			fmt.Fprintf(&b, "- %s\n", html.UnescapeString(l))
		}
	}
	if a.AdminURL != "" {
		fmt.Fprintf(&b, "\n%s\n", a.AdminURL)
	}
	return b.String()
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"naturezabrindes/quote_backend/internal/client/apiclient"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printQuote(w io.Writer, q apiclient.StoredQuote) {
	fmt.Fprintf(w, "%s  %s  %s  %s\n", q.Reference, q.ID, q.Status, q.CreatedAt.Format("2006-01-02 15:04"))
	if q.Customer != nil {
		fmt.Fprintf(w, "cliente: %s <%s>", q.Customer.Name, q.Customer.Email)
		if q.Customer.Company != "" {
			fmt.Fprintf(w, " (%s)", q.Customer.Company)
		}
		fmt.Fprintln(w)
	}
	if q.Incomplete {
		fmt.Fprintln(w, "ATENÇÃO: orçamento sem itens")
	}
	for _, it := range q.Items {
		var qty []string
		for _, n := range it.Quantities() {
			qty = append(qty, fmt.Sprint(n))
		}
		line := fmt.Sprintf("  - %s: %s", it.ProductName, strings.Join(qty, " / "))
		if it.Color != "" {
			line += " - Cor: " + it.Color
		}
		fmt.Fprintln(w, line)
	}
	if q.Notes != "" {
		fmt.Fprintf(w, "obs: %s\n", q.Notes)
	}
}

func printPage(w io.Writer, p apiclient.QuotePage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tID\tSTATUS\tITEMS\tCUSTOMER\tCREATED")
	for _, q := range p.Quotes {
		name := ""
		if q.Customer != nil {
			name = q.Customer.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", q.Reference, q.ID, q.Status, len(q.Items), name, q.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	pg := p.Pagination
	_, err := fmt.Fprintf(w, "page %d/%d, %d total\n", pg.CurrentPage, pg.TotalPages, pg.TotalItems)
	return err
}

package quote

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ItemInput is one cart line as the storefront posts it. Identifier fields are
// left untyped because the cart mixes numbers and strings.
type ItemInput struct {
	ID             any             `json:"id"`
	Name           string          `json:"name"`
	ProductName    string          `json:"productName"`
	Quantity       int             `json:"quantity"`
	Quantity2      int             `json:"quantity2"`
	Quantity3      int             `json:"quantity3"`
	SelectedColor  string          `json:"selectedColor"`
	Customizations json.RawMessage `json:"customizations,omitempty"`
	EcologicalID   any             `json:"ecologicalId"`
	ProductID      any             `json:"productId"`
	ImageRef       string          `json:"img_ref_url"`
	Image          string          `json:"image"`
	Notes          string          `json:"notes"`
	Free           bool            `json:"free"`

	malformedQuantity bool
}

// DisplayName prefers the cart name over the catalog product name.
func (in ItemInput) DisplayName() string {
	if s := strings.TrimSpace(in.Name); s != "" {
		return s
	}
	return strings.TrimSpace(in.ProductName)
}

// ToLineItem maps the input onto a line item ready for the writer.
func (in ItemInput) ToLineItem() LineItem {
	it := LineItem{
		ProductName: in.DisplayName(),
		Quantity1:   in.Quantity,
		Quantity2:   in.Quantity2,
		Quantity3:   in.Quantity3,
		Color:       strings.TrimSpace(in.SelectedColor),
		ImageURL:    strings.TrimSpace(in.Image),
		Notes:       strings.TrimSpace(in.Notes),
		Free:        in.Free,
	}
	if it.ImageURL == "" {
		it.ImageURL = strings.TrimSpace(in.ImageRef)
	}
	if code, ok := ExtractProductCode(in); ok {
		it.ProductCode = &code
	}

	raw := bytes.TrimSpace(in.Customizations)
	switch {
	case len(raw) > 0 && !bytes.Equal(raw, []byte("null")):
		it.Customizations = append(json.RawMessage(nil), raw...)
	case it.ProductName != "":
		it.Customizations, _ = json.Marshal(map[string]any{"name": it.ProductName, "id": in.ID})
	}
	return it
}

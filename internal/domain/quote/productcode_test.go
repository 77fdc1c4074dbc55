package quote

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractProductCode(t *testing.T) {
	tests := []struct {
		name   string
		in     ItemInput
		want   string
		wantOK bool
	}{
		{"ecological id number wins", ItemInput{EcologicalID: float64(12345), ID: "ecologic-999"}, "12345", true},
		{"negative fraction floors abs", ItemInput{EcologicalID: -42.9}, "42", true},
		{"json number", ItemInput{EcologicalID: json.Number("777")}, "777", true},
		{"digits inside id string", ItemInput{ID: "ecologic-12345"}, "12345", true},
		{"short digit runs are ignored", ItemInput{ID: "ab-12", ProductID: "p-4567"}, "4567", true},
		{"code from image url", ItemInput{Image: "https://cdn.example.com/img/98765_front.jpg"}, "98765", true},
		{"img_ref_url before image", ItemInput{ImageRef: "ref/111222.png", Image: "img/333444.png"}, "111222", true},
		{"raw id fallback", ItemInput{ID: "caneca-azul"}, "caneca-azul", true},
		{"no product", ItemInput{Name: "Brinde livre"}, "", false},
		{"blank id is no product", ItemInput{ID: "   "}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractProductCode(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractorsRunInPriorityOrder(t *testing.T) {
	var calls []string
	mk := func(name string, ok bool) Extractor {
		return func(ItemInput) (string, bool) {
			calls = append(calls, name)
			return name, ok
		}
	}

	got, ok := extractWith([]Extractor{mk("a", false), mk("b", true), mk("c", true)}, ItemInput{})
	assert.True(t, ok)
	assert.Equal(t, "b", got)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestToLineItem(t *testing.T) {
	in := ItemInput{
		ID:            "ecologic-321",
		ProductName:   "Caneca de bambu",
		Quantity:      10,
		Quantity3:     50,
		SelectedColor: " Verde ",
		Image:         "https://cdn.example.com/321.jpg",
	}

	it := in.ToLineItem()
	assert.Equal(t, "Caneca de bambu", it.ProductName)
	if assert.NotNil(t, it.ProductCode) {
		assert.Equal(t, "321", *it.ProductCode)
	}
	assert.Equal(t, "Verde", it.Color)
	assert.Equal(t, []int{10, 50}, it.Quantities())
	assert.JSONEq(t, `{"name":"Caneca de bambu","id":"ecologic-321"}`, string(it.Customizations))
}

func TestToLineItemKeepsCustomizations(t *testing.T) {
	in := ItemInput{
		Name:           "Sacola",
		Quantity:       1,
		Customizations: json.RawMessage(` {"logo":"frente"} `),
	}
	it := in.ToLineItem()
	assert.JSONEq(t, `{"logo":"frente"}`, string(it.Customizations))
	assert.Nil(t, it.ProductCode)
}

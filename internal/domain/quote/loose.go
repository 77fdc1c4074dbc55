package quote

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The storefront cart is loosely typed: quantities arrive as numbers or
// numeric strings and text fields are sometimes numbers. Decoding accepts
// those shapes and leaves rejection to validation, so a bad field yields a
// stable code instead of a decode failure.

// LooseText returns a JSON string as is and a JSON number as its literal.
// Anything else reads as empty.
func LooseText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw)
	}
	return ""
}

// looseQuantity parses a quantity tier. Absent, null and blank values are
// zero. ok is false for fractional, non-numeric or out-of-range values.
func looseQuantity(raw json.RawMessage) (n int, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, true
	}
	lit := string(raw)
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, false
		}
		if lit = strings.TrimSpace(s); lit == "" {
			return 0, true
		}
	}
	if i, err := strconv.Atoi(lit); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func looseBool(raw json.RawMessage) bool {
	switch strings.ToLower(LooseText(raw)) {
	case "true", "1":
		return true
	}
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}

func looseAny(raw json.RawMessage) any {
	var v any
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

// UnmarshalJSON decodes a cart line leniently. A line that is not a JSON
// object decodes as empty and fails validation.
func (in *ItemInput) UnmarshalJSON(b []byte) error {
	var f map[string]json.RawMessage
	if err := json.Unmarshal(b, &f); err != nil {
		*in = ItemInput{}
		return nil
	}

	*in = ItemInput{
		ID:            looseAny(f["id"]),
		Name:          LooseText(f["name"]),
		ProductName:   LooseText(f["productName"]),
		SelectedColor: LooseText(f["selectedColor"]),
		EcologicalID:  looseAny(f["ecologicalId"]),
		ProductID:     looseAny(f["productId"]),
		ImageRef:      LooseText(f["img_ref_url"]),
		Image:         LooseText(f["image"]),
		Notes:         LooseText(f["notes"]),
		Free:          looseBool(f["free"]),
	}
	if c := bytes.TrimSpace(f["customizations"]); len(c) > 0 {
		in.Customizations = append(json.RawMessage(nil), c...)
	}

	for _, q := range []struct {
		dst *int
		key string
	}{{&in.Quantity, "quantity"}, {&in.Quantity2, "quantity2"}, {&in.Quantity3, "quantity3"}} {
		n, ok := looseQuantity(f[q.key])
		if !ok {
			in.malformedQuantity = true
		}
		*q.dst = n
	}
	return nil
}

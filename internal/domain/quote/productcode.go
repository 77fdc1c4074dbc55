package quote

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Extractor inspects one candidate field of an item and reports a product code.
type Extractor func(ItemInput) (string, bool)

// DefaultExtractors are tried in priority order by ExtractProductCode.
var DefaultExtractors = []Extractor{
	fieldCode(func(in ItemInput) any { return in.EcologicalID }),
	fieldCode(func(in ItemInput) any { return in.ID }),
	fieldCode(func(in ItemInput) any { return in.ProductID }),
	fieldCode(func(in ItemInput) any { return in.ImageRef }),
	fieldCode(func(in ItemInput) any { return in.Image }),
	rawID,
}

var digitRun = regexp.MustCompile(`\d{3,}`)

// ExtractProductCode resolves the catalog code of an item. A false result is
// valid and means the item is free-form.
func ExtractProductCode(in ItemInput) (string, bool) {
	return extractWith(DefaultExtractors, in)
}

func extractWith(extractors []Extractor, in ItemInput) (string, bool) {
	for _, ex := range extractors {
		if code, ok := ex(in); ok {
			return code, true
		}
	}
	return "", false
}

func fieldCode(field func(ItemInput) any) Extractor {
	return func(in ItemInput) (string, bool) {
		return codeFromValue(field(in))
	}
}

// codeFromValue turns numbers into their absolute integer part and pulls the
// first run of three or more digits out of anything else.
func codeFromValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case float64:
		return strconv.FormatFloat(math.Floor(math.Abs(t)), 'f', 0, 64), true
	case int:
		return strconv.Itoa(absInt(t)), true
	case int64:
		return strconv.FormatInt(absInt64(t), 10), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return strconv.FormatInt(absInt64(n), 10), true
		}
		if f, err := t.Float64(); err == nil {
			return codeFromValue(f)
		}
		return "", false
	case string:
		if m := digitRun.FindString(t); m != "" {
			return m, true
		}
		return "", false
	default:
		if m := digitRun.FindString(fmt.Sprint(t)); m != "" {
			return m, true
		}
		return "", false
	}
}

// rawID keeps a non-empty string id verbatim when no digits could be
// extracted. Numeric ids never reach it.
func rawID(in ItemInput) (string, bool) {
	s, ok := in.ID.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

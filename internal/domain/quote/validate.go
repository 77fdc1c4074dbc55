package quote

import "fmt"

// Stable codes returned to the storefront with every 400.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeMissingCustomerData = "MISSING_CUSTOMER_DATA"
	CodeInvalidName         = "INVALID_NAME"
	CodeInvalidEmail        = "INVALID_EMAIL"
	CodeNoItems             = "NO_ITEMS"
	CodeInvalidQuantity     = "INVALID_QUANTITY"
	CodeMissingProductName  = "MISSING_PRODUCT_NAME"
	CodeInvalidStatus       = "INVALID_STATUS"
)

// ValidationError is a client-correctable failure detected before any write.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Code + ": " + e.Message }

func invalid(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidateItems checks every cart line. A line needs a name and at least one
// positive quantity tier unless it is explicitly marked free.
func ValidateItems(items []ItemInput) error {
	if len(items) == 0 {
		return invalid(CodeNoItems, "Pelo menos um item deve ser incluído no orçamento")
	}
	for i, it := range items {
		if it.malformedQuantity {
			return invalid(CodeInvalidQuantity, "Item %d: quantidade deve ser um número inteiro", i+1)
		}
		if it.Quantity < 0 || it.Quantity2 < 0 || it.Quantity3 < 0 {
			return invalid(CodeInvalidQuantity, "Item %d: quantidade não pode ser negativa", i+1)
		}
		if it.Quantity == 0 && it.Quantity2 == 0 && it.Quantity3 == 0 && !it.Free {
			return invalid(CodeInvalidQuantity, "Item %d: quantidade deve ser maior que zero", i+1)
		}
		if it.DisplayName() == "" {
			return invalid(CodeMissingProductName, "Item %d: nome do produto é obrigatório", i+1)
		}
	}
	return nil
}

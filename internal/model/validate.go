package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

var cnpjValidator validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && ValidCNPJ(s)
}

var cnaeValidator validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && len(DigitsOnly(s)) == 7
}

var regimeValidator validator.Func = func(fl validator.FieldLevel) bool {
	r, ok := fl.Field().Interface().(TaxRegime)
	return ok && r.IsValid()
}

// validate is built once; *validator.Validate caches struct metadata and is
// safe for concurrent use.
var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cnpj", cnpjValidator)
	_ = v.RegisterValidation("cnae", cnaeValidator)
	_ = v.RegisterValidation("regime", regimeValidator)
	return v
})

// ValidateClient checks a Client for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the client is valid.
func ValidateClient(c *Client) error {
	// Whitespace-only names count as missing.
	trimmed := *c
	trimmed.Name = strings.TrimSpace(c.Name)
	trimmed.TradeName = strings.TrimSpace(c.TradeName)

	err := validate().Struct(&trimmed)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating client: %w", err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Errors = append(ve.Errors, FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return ve
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be %s characters or fewer", fe.Param())
	case "gte":
		return "must not be negative"
	case "cnpj":
		return "must be a valid CNPJ"
	case "cnae":
		return "must have 7 digits"
	case "email":
		return "must be a valid email address"
	case "regime":
		return fmt.Sprintf("invalid value %q", fe.Value())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}

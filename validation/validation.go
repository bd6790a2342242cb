// Package validation wraps go-playground/validator so that request DTOs and
// models declare their rules as struct tags and every rejected input turns
// into one operational 400 with a combined, human-readable message.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/user/natours-go/apperror"
)

// A single validator instance; it caches struct metadata, so sharing it is
// both the cheap and the recommended way to use the library.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v against its struct tags. On failure it returns an
// apperror.ValidationError whose message lists every violated rule.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: the argument was not a struct at all, which
		// is a programming mistake rather than bad client input.
		return apperror.NewInternalError("invalid value passed to validator", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperror.NewValidationError("Invalid input data. "+strings.Join(msgs, " "), err)
}

// fieldMessage renders one field error as a sentence.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s.", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be at least %s.", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s.", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s.", fe.Field(), fe.Param())
	case "ltfield":
		return fmt.Sprintf("%s must be below %s.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

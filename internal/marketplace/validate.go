package marketplace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinProposalLength is the shortest accepted proposal, in characters.
const MinProposalLength = 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator exposes the shared validator instance, e.g. for the HTTP layer.
func Validator() *validator.Validate { return validate }

// ValidationError is a user-facing rejection of caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidateDraft requires a non-blank title and description.
func ValidateDraft(d Draft) error {
	if err := validate.Struct(d.Normalize()); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := strings.ToLower(verrs[0].Field())
			return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// ValidateProposal rejects proposals shorter than MinProposalLength characters.
func ValidateProposal(text string) error {
	if err := validate.Var(text, fmt.Sprintf("min=%d", MinProposalLength)); err != nil {
		return &ValidationError{
			Field:   "proposal",
			Message: fmt.Sprintf("proposal must be at least %d characters", MinProposalLength),
		}
	}
	return nil
}

package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/templui/doin/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateSubmission checks a packaged payload before it leaves the draft.
func ValidateSubmission(s *model.Submission) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}

	first := vErrs[0]
	switch first.Field() {
	case "Prefecture":
		return NewValidationError(CodeMissingPrefecture, "prefecture", "prefecture is required")
	case "Gender":
		return NewValidationError(CodeMissingGender, "gender", "gender is required")
	case "DisplayName":
		return NewValidationError(CodeMissingName, first.Namespace(), "display name is required")
	}

	return NewValidationError(CodeInvalidPayload, first.Namespace(),
		fmt.Sprintf("field %s failed rule %s", first.Field(), first.Tag()))
}

package login

import (
	"github.com/go-playground/validator/v10"
)

type (
	// ErrorResponse represents a failed form field.
	ErrorResponse struct {
		FailedField string
		Tag         string
	}

	// Form is the submitted login form.
	Form struct {
		Email    string `form:"email" validate:"required,email,max=320"`
		Password string `form:"password" validate:"required,max=1024"`
	}
)

var validate = validator.New() //nolint:gochecknoglobals

// Validate returns the failed fields of data, or nil.
func Validate(data any) []ErrorResponse {
	var validationErrors []ErrorResponse

	errs := validate.Struct(data)
	if errs == nil {
		return nil
	}

	fieldErrs, ok := errs.(validator.ValidationErrors) //nolint:errorlint // validator returns the slice type directly
	if !ok {
		return []ErrorResponse{{Tag: errs.Error()}}
	}

	for _, err := range fieldErrs {
		validationErrors = append(validationErrors, ErrorResponse{
			FailedField: err.Field(),
			Tag:         err.Tag(),
		})
	}

	return validationErrors
}

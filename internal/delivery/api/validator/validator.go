// Package validator adapts go-playground/validator to echo.Validator.
package validator

import (
	"regexp"
	"strconv"

	"renthouse/internal/errors"

	"github.com/go-playground/validator/v10"
)

var phoneNumberPattern = regexp.MustCompile(`^\+?[0-9]{6,20}$`)

// CustomValidator validates request DTOs using struct tags.
type CustomValidator struct {
	validate *validator.Validate
}

// New creates a validator with the project's custom tags registered.
func New() *CustomValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneNumberPattern.MatchString(fl.Field().String())
	})
	// maxbytes bounds the UTF-8 length; max counts runes.
	_ = validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}

		return len(fl.Field().String()) <= limit
	})

	return &CustomValidator{validate: validate}
}

// Validate implements echo.Validator.
func (cv *CustomValidator) Validate(i any) error {
	return errors.WithStack(cv.validate.Struct(i))
}

// FieldErrors flattens validation errors into field -> failed tag.
func FieldErrors(err error) map[string]string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	fields := make(map[string]string, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}

	return fields
}

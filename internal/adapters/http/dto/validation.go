package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation wraps validator failures on bound request values.
	ErrValidation = errors.New("validation failed")

	// ErrBinding wraps failures to decode query or path parameters at all.
	ErrBinding = errors.New("binding failed")
)

// Custom validation tags.
const (
	// TagISODate accepts a calendar date in the YYYY-MM-DD layout.
	TagISODate = "isodate"

	// TagInteger accepts a base-10 integer that fits in an int, sign
	// included. Range checks are left to the handler so that an
	// out-of-range index can be reported as not found.
	TagInteger = "integer"
)

var requestValidator = newRequestValidator()

// newRequestValidator reports fields by the query or path parameter name a
// client sent, and knows the isodate and integer tags.
func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range [...]string{"form", "uri"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")

			switch name {
			case "":
				continue
			case "-":
				return ""
			default:
				return name
			}
		}

		return fld.Name
	})

	_ = v.RegisterValidation(TagISODate, func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.DateOnly, fl.Field().String())
		return err == nil
	})

	_ = v.RegisterValidation(TagInteger, func(fl validator.FieldLevel) bool {
		_, err := strconv.Atoi(fl.Field().String())
		return err == nil
	})

	return v
}

// Validator returns the validator used for request values.
func Validator() *validator.Validate {
	return requestValidator
}

// Validate runs struct validation on v.
func Validate(v any) error {
	if err := requestValidator.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindQueryAndValidate decodes the query string into v and validates it.
func BindQueryAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindQuery(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// BindURIAndValidate decodes path parameters into v and validates it.
func BindURIAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindUri(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// ValidationErrors maps each failed parameter to a message. Errors that did
// not come from the validator produce an empty map.
func ValidationErrors(err error) map[string]string {
	details := map[string]string{}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return details
	}

	for _, fe := range fieldErrs {
		details[fe.Field()] = validationMessage(fe)
	}

	return details
}

// IsValidationError reports whether err carries validator field errors.
func IsValidationError(err error) bool {
	var fieldErrs validator.ValidationErrors
	return errors.As(err, &fieldErrs)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case TagISODate:
		return "must be a date formatted as YYYY-MM-DD"
	case TagInteger:
		return "must be an integer"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "numeric":
		return "must be a number"
	default:
		return "failed validation: " + fe.Tag()
	}
}

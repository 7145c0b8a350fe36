package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// mobileNumber matches Nepali mobile numbers, e.g. 9841234567
var mobileNumber = regexp.MustCompile(`^(98|97)\d{8}$`)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance that reports fields by their JSON name
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobileNumber.MatchString(fl.Field().String())
	})

	return &Validator{
		validate: v,
	}
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationErrors converts validation errors to a per-field message map
func FormatValidationErrors(err error) map[string][]string {
	errors := make(map[string][]string)

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errors["body"] = []string{err.Error()}
		return errors
	}

	for _, e := range validationErrs {
		field := e.Field()
		var msg string
		switch e.Tag() {
		case "required", "required_without":
			msg = fmt.Sprintf("%s is required", field)
		case "email":
			msg = "Invalid email format"
		case "min":
			msg = fmt.Sprintf("%s must be at least %s", field, e.Param())
		case "max":
			msg = fmt.Sprintf("%s must be at most %s", field, e.Param())
		case "gte":
			msg = fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
		case "gt", "gtfield":
			msg = fmt.Sprintf("%s must be greater than %s", field, e.Param())
		case "lte":
			msg = fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
		case "len":
			msg = fmt.Sprintf("%s must be exactly %s characters", field, e.Param())
		case "mobile":
			msg = fmt.Sprintf("%s must be a 10 digit mobile number starting with 98 or 97", field)
		case "eqfield":
			msg = fmt.Sprintf("%s does not match", field)
		case "numeric":
			msg = fmt.Sprintf("%s must be numeric", field)
		default:
			msg = fmt.Sprintf("%s is invalid", field)
		}
		errors[field] = append(errors[field], msg)
	}

	return errors
}

// SanitizeString removes potentially dangerous characters
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")
	// Trim whitespace
	s = strings.TrimSpace(s)
	return s
}

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML keys rather than Go names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("relpath", func(fl validator.FieldLevel) bool {
		return !filepath.IsAbs(fl.Field().String())
	})
	return v
}

// validateStruct runs struct-tag validation and converts the result into a
// ValidationError carrying every violation.
func validateStruct(source string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Source: source, Fields: []FieldError{{Message: err.Error()}}}
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   stripPrefix(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return &ValidationError{Source: source, Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required but was not found"
	case "min":
		if fe.Kind() == reflect.String && fe.Param() == "1" {
			return "must not be empty"
		}
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	case "relpath":
		return fmt.Sprintf("must be a path relative to the data directory, got %q", fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("has invalid value %v: %s", fe.Value(), fe.Tag())
	}
}

// stripPrefix drops the top-level struct name from a validator namespace.
func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Error is bad user input. It is always recoverable by the caller.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func New(field, reason string) *Error { return &Error{Field: field, Reason: reason} }

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct checks `validate` tags and reports the first failing field.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	f := fields[0]
	return &Error{Field: f.Field(), Reason: reason(f)}
}

func reason(f validator.FieldError) string {
	switch f.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + f.Param() + unit(f)
	case "max":
		return "must be at most " + f.Param() + unit(f)
	case "numeric":
		return "must contain digits only"
	case "oneof":
		return "must be one of " + f.Param()
	default:
		return "is invalid"
	}
}

func unit(f validator.FieldError) string {
	if f.Kind() == reflect.String {
		return " characters"
	}
	return ""
}

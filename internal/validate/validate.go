// Package validate runs struct-tag validation on outgoing forms and turns the first
// failure into an errs.ValidationError with a message fit for display.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/and161185/restaurant-client/internal/errs"
)

// Validator wraps go-playground/validator with the decimal rules used by forms.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator. Field names in messages come from the json tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// decimals are compared as floats so the stock gte/lte tags apply to money fields
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return &Validator{v: v}
}

// Struct validates s and returns nil or an *errs.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return errs.Validation("", err.Error())
	}
	fe := ves[0]
	return errs.Validation(fe.Field(), message(fe))
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", f, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", f, fe.Tag())
}

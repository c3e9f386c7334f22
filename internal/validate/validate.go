// Package validate wraps a shared validator that names fields by their json
// tag and renders English messages.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	v     *validator.Validate
	trans ut.Translator
)

func init() {
	v = validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	trans, _ = ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(err)
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Struct validates s and returns one FieldError per failed rule. Slice
// elements report under the slice's name.
func Struct(s any) []FieldError {
	return fieldErrors(v.Struct(s), "")
}

// Var validates a single value under the given field name.
func Var(field string, value any, tag string) []FieldError {
	return fieldErrors(v.Var(value, tag), field)
}

func fieldErrors(err error, field string) []FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: field, Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := field
		if name == "" {
			name = fe.Field()
			if i := strings.IndexByte(name, '['); i > 0 {
				name = name[:i]
			}
		}
		msg := strings.TrimSpace(strings.TrimPrefix(fe.Translate(trans), fe.Field()))
		out = append(out, FieldError{Field: name, Message: msg})
	}
	return out
}

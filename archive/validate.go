package archive

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()

	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("archive: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	if err := validate.RegisterValidation("datetimerange", validDatetimeRange); err != nil {
		panic(err)
	}

	if err := validate.RegisterTranslation("datetimerange", translator,
		func(ut ut.Translator) error {
			return ut.Add("datetimerange", "{0} must be an ISO datetime range like '2021-01-01 00:00:00/2021-02-01 00:00:00'", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, err := ut.T("datetimerange", fe.Field())
			if err != nil {
				return fe.Error()
			}

			return msg
		},
	); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// validDatetimeRange accepts "start/end" where each side is an ISO
// datetime or empty for an open range.
func validDatetimeRange(fl validator.FieldLevel) bool {
	raw := fl.Field().String()

	start, end, found := strings.Cut(raw, "/")
	if !found {
		return false
	}
	if start == "" && end == "" {
		return false
	}

	for _, side := range []string{start, end} {
		if side == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02 15:04:05", side); err != nil {
			return false
		}
	}

	return true
}

// checkCriteria validates the provided model against its declared tags.
func checkCriteria(val any) error {
	if err := validate.Struct(val); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		var fields FieldErrors
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Field(),
				Err:   verror.Translate(translator),
			})
		}

		return fields
	}

	return nil
}

// FieldError represents a single validation error for a specific field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field validation errors.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Err))
	}

	return strings.Join(msgs, "; ")
}

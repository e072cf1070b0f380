package messages

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	errs "flickrbackup/pkg/errors"
)

var (
	vOnce      sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

func validatorInstance() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		// report json field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		validate, translator = v, trans
	})
	return validate, translator
}

// Validate checks a message against its struct tags
func Validate(msg any) error {
	v, trans := validatorInstance()
	if err := v.Struct(msg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fe.Translate(trans))
			}
			return errs.New(errs.ErrorTypeMalformedResponse, "validate", strings.Join(parts, "; "))
		}
		return errs.Wrap(errs.ErrorTypeMalformedResponse, "validate", err)
	}
	return nil
}

// Encode validates msg and renders its JSON wire form
func Encode(msg any) ([]byte, error) {
	if err := Validate(msg); err != nil {
		return nil, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", msg, err)
	}
	return body, nil
}

// Decode parses and validates a message body
func Decode[T any](body []byte) (T, error) {
	var msg T
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, errs.Wrap(errs.ErrorTypeMalformedResponse, fmt.Sprintf("decode %T", msg), err)
	}
	if err := Validate(msg); err != nil {
		return msg, err
	}
	return msg, nil
}

package i18n

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
)

func newValidator(c *Catalog) (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	if err := en_translations.RegisterDefaultTranslations(v, c.Translator("en")); err != nil {
		return nil, fmt.Errorf("register en validation messages: %w", err)
	}
	if err := fr_translations.RegisterDefaultTranslations(v, c.Translator("fr")); err != nil {
		return nil, fmt.Errorf("register fr validation messages: %w", err)
	}
	return v, nil
}

// Validate checks a request payload against its struct tags and reports
// the failures in lang.
func (c *Catalog) Validate(lang string, payload any) error {
	err := c.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	trans := c.Translator(lang)
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return errors.New(strings.Join(msgs, "; "))
}

package i18n

import (
	"fmt"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"census-grid/census"
)

// Label keys.
const (
	KeyTitle              = "title"
	KeyPlaceholderCarrier = "placeholder.carrier"
	KeyPlaceholderSponsor = "placeholder.application"
	KeyPlaceholderStatus  = "placeholder.status"
	KeyExecute            = "button.execute"
	KeySave               = "button.save"
	KeyLanguageEnglish    = "language.en"
	KeyLanguageFrench     = "language.fr"
	KeyEmptyResult        = "result.empty"
	KeyExecuteFailed      = "result.failed"
	columnKeyPrefix       = "column."
)

var labels = map[string]map[string]string{
	"en": {
		KeyTitle:              "Census",
		KeyPlaceholderCarrier: "Select Carrier",
		KeyPlaceholderSponsor: "Select Application",
		KeyPlaceholderStatus:  "Select Status",
		KeyExecute:            "Execute",
		KeySave:               "Save changes",
		KeyLanguageEnglish:    "English",
		KeyLanguageFrench:     "French",
		KeyEmptyResult:        "No rows match the selected filters.",
		KeyExecuteFailed:      "The table could not be displayed.",
	},
	"fr": {
		KeyTitle:              "Recensement",
		KeyPlaceholderCarrier: "Sélectionner l'assureur",
		KeyPlaceholderSponsor: "Sélectionner l'application",
		KeyPlaceholderStatus:  "Sélectionner le statut",
		KeyExecute:            "Exécuter",
		KeySave:               "Enregistrer",
		KeyLanguageEnglish:    "Anglais",
		KeyLanguageFrench:     "Français",
		KeyEmptyResult:        "Aucune ligne ne correspond aux filtres.",
		KeyExecuteFailed:      "Le tableau n'a pas pu être affiché.",

		columnKeyPrefix + census.ColumnPlanSponsor:  "Parrain du plan",
		columnKeyPrefix + census.ColumnCarrier:      "Assureur",
		columnKeyPrefix + census.ColumnMemberStatus: "Statut du membre",
		columnKeyPrefix + census.ColumnValue:        "Valeur",
		columnKeyPrefix + census.ColumnID:           "ID",
		columnKeyPrefix + census.ColumnBirthDate:    "Date de naissance",
	},
}

// Catalog resolves labels for a language. Languages other than French fall
// back to English.
type Catalog struct {
	uni      *ut.UniversalTranslator
	validate *validator.Validate
}

// NewCatalog builds the English and French translators and a payload
// validator whose messages use them.
func NewCatalog() (*Catalog, error) {
	english := en.New()
	uni := ut.New(english, english, fr.New())
	for locale, entries := range labels {
		trans, found := uni.GetTranslator(locale)
		if !found {
			return nil, fmt.Errorf("translator %s not registered", locale)
		}
		for key, text := range entries {
			if err := trans.Add(key, text, false); err != nil {
				return nil, fmt.Errorf("add %s/%s: %w", locale, key, err)
			}
		}
	}
	c := &Catalog{uni: uni}
	v, err := newValidator(c)
	if err != nil {
		return nil, err
	}
	c.validate = v
	return c, nil
}

// MustCatalog is NewCatalog for package-level wiring; the label table is static.
func MustCatalog() *Catalog {
	c, err := NewCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Translator returns the translator for lang, English when unsupported.
func (c *Catalog) Translator(lang string) ut.Translator {
	trans, _ := c.uni.FindTranslator(Normalize(lang))
	return trans
}

// Label returns the text for key, or the key itself when it has no entry.
func (c *Catalog) Label(lang, key string) string {
	text, err := c.Translator(lang).T(key)
	if err != nil || text == "" {
		return key
	}
	return text
}

// Header returns the display header for a column. Columns without a
// translation keep their source name.
func (c *Catalog) Header(lang, column string) string {
	text, err := c.Translator(lang).T(columnKeyPrefix + column)
	if err != nil || text == "" {
		return column
	}
	return text
}

// Headers maps each column to its display header.
func (c *Catalog) Headers(lang string, columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = c.Header(lang, col)
	}
	return out
}

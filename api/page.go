package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"census-grid/census"
	"census-grid/i18n"
)

//go:embed templates/index.html
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

type languageOption struct {
	Code     string
	Label    string
	Selected bool
}

type pageData struct {
	Lang         string
	Title        string
	Carrier      string
	Sponsor      string
	Status       string
	Execute      string
	Save         string
	Failed       string
	Options      census.OptionSet
	Languages    []languageOption
	MergeEnabled bool
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromContext(r.Context())
	label := func(key string) string { return s.catalog.Label(lang, key) }

	data := pageData{
		Lang:    lang,
		Title:   label(i18n.KeyTitle),
		Carrier: label(i18n.KeyPlaceholderCarrier),
		Sponsor: label(i18n.KeyPlaceholderSponsor),
		Status:  label(i18n.KeyPlaceholderStatus),
		Execute: label(i18n.KeyExecute),
		Save:    label(i18n.KeySave),
		Failed:  label(i18n.KeyExecuteFailed),
		Options: s.service.Options(r.Context()),
		Languages: []languageOption{
			{Code: "en", Label: label(i18n.KeyLanguageEnglish), Selected: lang != "fr"},
			{Code: "fr", Label: label(i18n.KeyLanguageFrench), Selected: lang == "fr"},
		},
		MergeEnabled: s.config.EnableMerge,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("failed to render page")
		s.jsonError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

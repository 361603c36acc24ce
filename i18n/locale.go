// Package i18n negotiates the UI language of a request and serves the
// English and French labels of the census page.
package i18n

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultLanguage is used when neither the query nor the cookie names one.
	DefaultLanguage = "fr"
	// CookieName and QueryParam carry the user's choice.
	CookieName = "lang"
	QueryParam = "lang"
	// CookieMaxAge matches the one year the language selector stores.
	CookieMaxAge = 365 * 24 * time.Hour
)

type contextKey struct{}

// Negotiate resolves the request language: query parameter, then cookie,
// then the default. The result is truncated at the region separator.
func Negotiate(r *http.Request, fallback string) string {
	lang := r.URL.Query().Get(QueryParam)
	if lang == "" {
		if c, err := r.Cookie(CookieName); err == nil {
			lang = c.Value
		}
	}
	if lang == "" {
		lang = fallback
	}
	if lang == "" {
		lang = DefaultLanguage
	}
	return Normalize(lang)
}

// Normalize reduces a language tag such as "fr-CA" or "en_US" to its
// lowercase primary subtag.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}

// WithLanguage stores the negotiated language on the context.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKey{}, lang)
}

// FromContext returns the negotiated language, or DefaultLanguage.
func FromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLanguage
}

// ContentLanguage negotiates every request, stores the result on the
// request context and reports it in the Content-Language header. An explicit
// ?lang= choice is remembered in the language cookie.
func ContentLanguage(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := Negotiate(r, fallback)
			if strings.TrimSpace(r.URL.Query().Get(QueryParam)) != "" {
				http.SetCookie(w, LanguageCookie(lang))
			}
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), lang)))
		})
	}
}

// LanguageCookie builds the cookie the language selector sets.
func LanguageCookie(lang string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    Normalize(lang),
		Path:     "/",
		MaxAge:   int(CookieMaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	}
}

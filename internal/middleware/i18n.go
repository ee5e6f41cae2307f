package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

const localeKey contextKey = "locale"

var supportedLocales = []language.Tag{
	language.English,
	language.Russian,
	language.Chinese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

var countryLocales = map[string]string{
	"RU": "ru",
	"BY": "ru",
	"KZ": "ru",
	"CN": "zh",
	"TW": "zh",
	"HK": "zh",
}

// CountryLookup resolves a client IP to an ISO country code. Empty
// string means unknown.
type CountryLookup interface {
	CountryCode(ip string) (string, error)
}

// I18N picks a locale for the request, in order of preference: the
// X-Locale header, the Accept-Language header, then GeoIP country.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := resolveLocale(r, defaultLocale, lookup)
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
		})
	}
}

// WithLocale returns a context carrying the given locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey, locale)
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeKey).(string); ok {
		return v
	}
	return "en"
}

func resolveLocale(r *http.Request, fallback string, lookup CountryLookup) string {
	if header := strings.TrimSpace(r.Header.Get("X-Locale")); header != "" {
		if tag, err := language.Parse(header); err == nil {
			if loc, ok := matchLocale(tag); ok {
				return loc
			}
		}
	}

	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			_, idx, conf := localeMatcher.Match(tags...)
			if conf > language.No {
				return localeCode(supportedLocales[idx])
			}
		}
	}

	if lookup != nil {
		if country, err := lookup.CountryCode(clientIPForRateLimit(r)); err == nil {
			if loc, ok := countryLocales[country]; ok {
				return loc
			}
		}
	}

	if fallback != "" {
		return fallback
	}
	return "en"
}

func matchLocale(tag language.Tag) (string, bool) {
	_, idx, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return localeCode(supportedLocales[idx]), true
}

func localeCode(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

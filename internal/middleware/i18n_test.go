package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubCountryLookup struct {
	country string
}

func (s stubCountryLookup) CountryCode(string) (string, error) {
	return s.country, nil
}

func localeFor(t *testing.T, lookup CountryLookup, mutate func(r *http.Request)) string {
	t.Helper()
	var got string
	h := I18N("en", lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	r.RemoteAddr = "203.0.113.7:1234"
	if mutate != nil {
		mutate(r)
	}
	h.ServeHTTP(httptest.NewRecorder(), r)
	return got
}

func TestI18NPrefersExplicitHeader(t *testing.T) {
	got := localeFor(t, stubCountryLookup{country: "CN"}, func(r *http.Request) {
		r.Header.Set("X-Locale", "ru")
		r.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	})
	if got != "ru" {
		t.Fatalf("expected ru, got %s", got)
	}
}

func TestI18NUsesAcceptLanguage(t *testing.T) {
	got := localeFor(t, nil, func(r *http.Request) {
		r.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.5")
	})
	if got != "zh" {
		t.Fatalf("expected zh, got %s", got)
	}
}

func TestI18NFallsBackToGeoIP(t *testing.T) {
	got := localeFor(t, stubCountryLookup{country: "RU"}, nil)
	if got != "ru" {
		t.Fatalf("expected ru, got %s", got)
	}
}

func TestI18NDefaultsWhenNothingMatches(t *testing.T) {
	got := localeFor(t, stubCountryLookup{country: "BR"}, func(r *http.Request) {
		r.Header.Set("Accept-Language", "pt-BR")
	})
	if got != "en" {
		t.Fatalf("expected en, got %s", got)
	}
}

package httpserver

import (
	"encoding/json"
	"net/url"
	"testing"
)

func FuzzBuildFilters(f *testing.F) {
	seeds := []string{
		"name=Corner&address=High&limit=10",
		"role=ADMIN&email=a@b.c",
		"limit=abc",
		"cursor=%%%",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		_, _ = buildUserFilters(values)
		_, _ = buildStoreFilters(values)
	})
}

func FuzzParseRatingValue(f *testing.F) {
	for _, seed := range []string{"1", "5", "4.0", "", `"4"`, "null", "99999999999999999999"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		value, err := parseRatingValue(json.RawMessage(raw))
		if err == nil && (value < 1 || value > 5) {
			t.Fatalf("accepted out-of-range rating %d from %q", value, raw)
		}
	})
}

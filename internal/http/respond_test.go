package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Clark-Hu/store-rating/internal/config"
	"github.com/Clark-Hu/store-rating/internal/domain"
)

func TestRoundAverage(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"zero", 0, 0},
		{"round-up", 10.0 / 3 * 2, 6.67},
		{"round-down", 10.0 / 3, 3.33},
		{"exact", 3.5, 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.value
			got := roundAverage(&v)
			if math.Abs(*got-tt.want) > 1e-9 {
				t.Fatalf("roundAverage(%v) = %v, want %v", tt.value, *got, tt.want)
			}
		})
	}

	if roundAverage(nil) != nil {
		t.Fatalf("roundAverage(nil) should stay nil")
	}
}

func TestParseRatingValue(t *testing.T) {
	valid := map[string]int{"1": 1, "3": 3, "5": 5, " 4 ": 4}
	for raw, want := range valid {
		got, err := parseRatingValue(json.RawMessage(raw))
		if err != nil || got != want {
			t.Fatalf("parseRatingValue(%q) = %d, %v; want %d", raw, got, err, want)
		}
	}

	invalid := []string{"", "0", "6", "4.0", "4.5", "-1", "1e0", `"4"`, ` "5"`, "null", "true", "[4]"}
	for _, raw := range invalid {
		if _, err := parseRatingValue(json.RawMessage(raw)); err == nil {
			t.Fatalf("parseRatingValue(%q) should fail", raw)
		}
	}
}

func TestBuildUserFilters(t *testing.T) {
	values := url.Values{}
	values.Set("name", "  Alice ")
	values.Set("email", "")
	values.Set("role", "store_owner")
	values.Set("limit", "5")

	filters, err := buildUserFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Name == nil || *filters.Name != "Alice" {
		t.Fatalf("expected trimmed name, got %v", filters.Name)
	}
	if filters.Email != nil {
		t.Fatalf("empty email should be ignored")
	}
	if filters.Role == nil || *filters.Role != domain.RoleStoreOwner {
		t.Fatalf("expected STORE_OWNER role, got %v", filters.Role)
	}
	if filters.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", filters.Limit)
	}
}

func TestBuildFilters_Invalid(t *testing.T) {
	cases := []url.Values{
		{"role": {"guest"}},
		{"limit": {"abc"}},
		{"limit": {"-3"}},
		{"cursor": {"%%%"}},
	}
	for _, values := range cases {
		if _, err := buildUserFilters(values); err == nil {
			t.Fatalf("expected error for %v", values)
		}
	}
	if _, err := buildStoreFilters(url.Values{"limit": {"0"}}); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(2)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || !l.allow("10.0.0.1") {
		t.Fatalf("burst of two should be allowed")
	}
	if l.allow("10.0.0.1") {
		t.Fatalf("third request within the burst window should be limited")
	}
	if !l.allow("10.0.0.2") {
		t.Fatalf("other addresses have their own bucket")
	}

	now = now.Add(31 * time.Second)
	if !l.allow("10.0.0.1") {
		t.Fatalf("a token should refill after 30s at 2/min")
	}

	now = now.Add(time.Hour)
	l.allow("10.0.0.3")
	if _, ok := l.entries["10.0.0.2"]; ok {
		t.Fatalf("idle entries should be pruned")
	}
}

func TestRespondServiceError_CanceledIsLoggedWithStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	srv := New(config.Config{Port: "0"}, Deps{}, zap.New(core))

	handler := srv.requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.respondServiceError(w, r, "submit rating", fmt.Errorf("submit: %w", context.Canceled))
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ratings", nil))

	assert.Equal(t, statusClientClosedRequest, rec.Code)
	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(statusClientClosedRequest), entries[0].ContextMap()["status"])
}

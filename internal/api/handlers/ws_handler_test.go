package handlers

import (
	"net/http/httptest"
	"testing"
)

func TestOriginChecker(t *testing.T) {
	if originChecker(nil) != nil {
		t.Fatalf("empty list should fall back to the same-host check")
	}

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "listed", allowed: []string{"https://app.example.com"}, origin: "https://app.example.com", want: true},
		{name: "case and trailing slash", allowed: []string{"https://App.example.com/"}, origin: "https://app.example.com", want: true},
		{name: "not listed", allowed: []string{"https://app.example.com"}, origin: "https://evil.example.com", want: false},
		{name: "no origin header", allowed: []string{"https://app.example.com"}, origin: "", want: true},
		{name: "wildcard", allowed: []string{"https://app.example.com", "*"}, origin: "https://evil.example.com", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws/search", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := originChecker(tt.allowed)(r); got != tt.want {
				t.Fatalf("check(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

package server

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicyCheck(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := newOriginPolicy([]string{"http://localhost:8080", " ", "not a url"}, log)

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{"allowed origin", "http://localhost:8080", true},
		{"case-insensitive match", "HTTP://LocalHost:8080", true},
		{"disallowed host", "http://evil.example", false},
		{"missing header", "", false},
		{"unparseable origin", "::::", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.allowed, policy.check(r))
		})
	}
}

func TestOriginPolicyWildcard(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := newOriginPolicy([]string{"*"}, log)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://anything.example")
	assert.True(t, policy.check(r))

	r.Header.Del("Origin")
	assert.False(t, policy.check(r), "wildcard still requires an Origin header")
}

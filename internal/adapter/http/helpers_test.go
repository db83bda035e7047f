package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/myriagon/credvault/internal/domain"
)

func TestWriteDomainErrorMapping(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("bad input: %w", domain.ErrValidation), http.StatusBadRequest},
		{"state invalid", domain.ErrStateInvalid, http.StatusBadRequest},
		{"state expired", domain.ErrStateExpired, http.StatusBadRequest},
		{"oauth unsupported", domain.ErrOAuthUnsupported, http.StatusBadRequest},
		{"tenant mismatch", domain.ErrTenantMismatch, http.StatusForbidden},
		{"not connected", domain.ErrNotConnected, http.StatusNotFound},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"no refresh token", domain.ErrNoRefreshToken, http.StatusConflict},
		{"exchange", &domain.ExchangeError{Provider: "slack", StatusCode: 400, Body: "invalid_code"}, http.StatusBadGateway},
		{"refresh", &domain.RefreshError{Service: "gmail", Err: errors.New("invalid_grant")}, http.StatusServiceUnavailable},
		{"decryption", domain.ErrDecryption, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, log, tc.err)
			if rr.Code != tc.want {
				t.Errorf("status = %d, want %d", rr.Code, tc.want)
			}

			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("body not json: %v", err)
			}
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestWriteDomainErrorHidesInternals(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	rr := httptest.NewRecorder()
	writeDomainError(rr, log, errors.New("pq: secret dsn leaked"))
	if strings.Contains(rr.Body.String(), "dsn") {
		t.Errorf("500 body leaks internals: %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	writeDomainError(rr, log, &domain.ExchangeError{Provider: "google", StatusCode: 400, Body: `{"error":"invalid_grant","hint":"secret"}`})
	if strings.Contains(rr.Body.String(), "hint") {
		t.Errorf("502 body leaks provider response: %s", rr.Body.String())
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"service_name":"slack","nope":1}`))
	var dst initiateRequest
	if err := decodeJSON(req, &dst); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"service_name":"slack"}`))
	if err := decodeJSON(req, &dst); err != nil {
		t.Errorf("valid body: %v", err)
	}
	if dst.ServiceName != "slack" {
		t.Errorf("decoded = %+v", dst)
	}
}

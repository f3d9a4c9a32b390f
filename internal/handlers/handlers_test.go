package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bookcourier/bookcourier/internal/services"
)

func TestServiceErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid input", err: fmt.Errorf("%w: quantity", services.ErrInvalidInput), wantStatus: http.StatusBadRequest},
		{name: "payment incomplete", err: services.ErrPaymentIncomplete, wantStatus: http.StatusBadRequest},
		{name: "forbidden", err: services.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "not found", err: fmt.Errorf("%w: order", services.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "conflict", err: services.ErrConflict, wantStatus: http.StatusConflict},
		{name: "upstream failure is masked", err: fmt.Errorf("pool exhausted"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := testHandlers(&fakeVerifier{})
			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			rec := httptest.NewRecorder()

			h.serviceError(rec, req, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}

			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if body.Success {
				t.Error("error envelope must set success=false")
			}
			if tc.wantStatus == http.StatusInternalServerError && strings.Contains(body.Message, "pool") {
				t.Error("internal error details must not leak to the client")
			}
		})
	}
}

func TestDecodeBodyRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	h := testHandlers(&fakeVerifier{})
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"bogus": 1}`))
	rec := httptest.NewRecorder()

	var dst struct {
		Quantity int `json:"quantity"`
	}
	if err := h.decodeBody(rec, req, &dst); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestRootBanner(t *testing.T) {
	t.Parallel()

	h := testHandlers(&fakeVerifier{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Root(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json, got %q", got)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["service"] != "bookcourier" {
		t.Fatalf("unexpected banner: %v", body)
	}
}

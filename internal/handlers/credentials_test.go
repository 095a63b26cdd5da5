package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jwebster45206/royal-court/internal/services"
)

func TestCredentialsHandler(t *testing.T) {
	creds := services.NewCredentials("")
	handler := NewCredentialsHandler(creds, testLogger())

	do := func(method, body string) (*httptest.ResponseRecorder, CredentialsResponse) {
		req := httptest.NewRequest(method, "/v1/credentials", strings.NewReader(body))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		var resp CredentialsResponse
		if rr.Code == http.StatusOK {
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
		}
		return rr, resp
	}

	rr, resp := do(http.MethodGet, "")
	if rr.Code != http.StatusOK || resp.Configured || resp.Mode != "static" {
		t.Errorf("Expected static mode initially, got %d %+v", rr.Code, resp)
	}

	rr, resp = do(http.MethodPut, `{"api_key":"abc123"}`)
	if rr.Code != http.StatusOK || !resp.Configured || resp.Mode != "generated" {
		t.Errorf("Expected generated mode after PUT, got %d %+v", rr.Code, resp)
	}
	if key, _ := creds.Get(); key != "abc123" {
		t.Errorf("Expected key stored, got %q", key)
	}

	rr, _ = do(http.MethodPut, `{"api_key":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty key, got %d", rr.Code)
	}
	rr, _ = do(http.MethodPut, `not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid JSON, got %d", rr.Code)
	}
	if !creds.Has() {
		t.Error("rejected requests must not clear the stored key")
	}

	rr, resp = do(http.MethodDelete, "")
	if rr.Code != http.StatusOK || resp.Configured {
		t.Errorf("Expected credential cleared, got %d %+v", rr.Code, resp)
	}

	rr, _ = do(http.MethodPost, "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
}

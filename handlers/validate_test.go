package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codegate.app/cloud/handlers"
	"codegate.app/cloud/internal/license"
	"codegate.app/cloud/internal/testutil"
)

func postValidate(t *testing.T, ts *testutil.TestServer, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/v1/licenses/validate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.Server.Router.ServeHTTP(w, req)
	return w
}

func mintKey(t *testing.T, ts *testutil.TestServer, licensee string) string {
	t.Helper()

	key, _, err := ts.Signer.Sign(licensee, time.Now().UTC().Add(24*time.Hour), nil)
	if err != nil {
		t.Fatalf("Failed to mint key: %v", err)
	}
	return key
}

func TestValidate_GoodKey(t *testing.T) {
	ts := testutil.NewTestServer(t)
	key := mintKey(t, ts, "dev@example.com")

	w := postValidate(t, ts, handlers.ValidateRequest{LicenseKey: key})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var result license.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if !result.Valid {
		t.Fatalf("Expected valid result, got %+v", result)
	}
	if result.Tier != "pro" || result.Licensee != "dev@example.com" {
		t.Errorf("Expected tier and licensee echoed back, got %+v", result)
	}
}

func TestValidate_BadKeyIsStill200(t *testing.T) {
	ts := testutil.NewTestServer(t)

	w := postValidate(t, ts, handlers.ValidateRequest{LicenseKey: "pro_garbage.alsogarbage"})
	if w.Code != http.StatusOK {
		t.Fatalf("Invalid keys are a result, not an HTTP error; got %d", w.Code)
	}

	var result license.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Valid {
		t.Error("Garbage key must not validate")
	}
	if result.Kind == "" {
		t.Error("Invalid result should carry an error kind")
	}
}

func TestValidate_TierPrefixCrossCheck(t *testing.T) {
	ts := testutil.NewTestServer(t)
	key := mintKey(t, ts, "dev@example.com")

	w := postValidate(t, ts, handlers.ValidateRequest{LicenseKey: key, Tier: "enterprise"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var result license.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Valid {
		t.Error("A pro_ key declared as enterprise must not validate")
	}
	if result.Kind != license.KindFormat {
		t.Errorf("Expected format kind, got %q", result.Kind)
	}
}

func TestValidate_MatchingTierHintPasses(t *testing.T) {
	ts := testutil.NewTestServer(t)
	key := mintKey(t, ts, "dev@example.com")

	w := postValidate(t, ts, handlers.ValidateRequest{LicenseKey: key, Tier: "pro"})
	var result license.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if !result.Valid {
		t.Errorf("Expected valid result with matching tier hint, got %+v", result)
	}
}

func TestValidate_RejectsMalformedRequests(t *testing.T) {
	ts := testutil.NewTestServer(t)

	t.Run("not JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/licenses/validate", strings.NewReader("{"))
		w := httptest.NewRecorder()
		ts.Server.Router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		w := postValidate(t, ts, handlers.ValidateRequest{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

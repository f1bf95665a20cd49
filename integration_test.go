package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"codegate.app/cloud/handlers"
	"codegate.app/cloud/internal/license"
	"codegate.app/cloud/internal/testutil"
	"codegate.app/cloud/models"
)

// TestPurchaseToDownloadFlow walks the whole pipeline: a signed Stripe
// checkout webhook mints a license, the key validates, and it unlocks
// a binary download.
func TestPurchaseToDownloadFlow(t *testing.T) {
	ts := testutil.NewTestServer(t)

	// 1. Stripe reports a completed checkout.
	payload := testutil.StripeEvent(t, "checkout.session.completed",
		testutil.CheckoutSession("buyer@example.com", "subscription", nil))
	req := httptest.NewRequest("POST", "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", testutil.StripeSignature(t, payload))
	w := httptest.NewRecorder()
	ts.Server.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Webhook: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 2. A record exists and the license email went out.
	record, err := ts.Storage.GetByCustomerID(t.Context(), "cus_test123")
	if err != nil || record == nil {
		t.Fatalf("Expected stored record, got %+v (err %v)", record, err)
	}
	if record.Status != models.StatusActive {
		t.Fatalf("Expected active record, got %s", record.Status)
	}
	if ts.Mailer.Count() != 1 {
		t.Fatalf("Expected license email, got %d messages", ts.Mailer.Count())
	}

	// 3. The emailed key validates.
	body, _ := json.Marshal(handlers.ValidateRequest{LicenseKey: record.LicenseKey})
	req = httptest.NewRequest("POST", "/api/v1/licenses/validate", bytes.NewReader(body))
	w = httptest.NewRecorder()
	ts.Server.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Validate: expected 200, got %d", w.Code)
	}
	var result license.Result
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode validation result: %v", err)
	}
	if !result.Valid || result.Tier != "pro" {
		t.Fatalf("Expected valid pro result, got %+v", result)
	}

	// 4. The key unlocks the pro download.
	artifact := filepath.Join(ts.ProDir, "codegate-x86_64-linux")
	if err := os.WriteFile(artifact, []byte("release binary"), 0o644); err != nil {
		t.Fatalf("Failed to stage artifact: %v", err)
	}
	req = httptest.NewRequest("GET",
		"/api/v1/download?license="+record.LicenseKey+"&tier=pro&platform=x86_64-linux", nil)
	w = httptest.NewRecorder()
	ts.Server.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Download: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "release binary" {
		t.Fatalf("Expected artifact bytes, got %q", w.Body.String())
	}
	if w.Header().Get("X-Licensee") != "buyer@example.com" {
		t.Errorf("Expected licensee header, got %q", w.Header().Get("X-Licensee"))
	}

	// 5. Cancellation flips the record but the key keeps validating
	// until expiry.
	cancel := testutil.StripeEvent(t, "customer.subscription.deleted",
		testutil.SubscriptionObject("cus_test123", "canceled", record.ExpiresAt))
	req = httptest.NewRequest("POST", "/api/v1/webhooks/stripe", bytes.NewReader(cancel))
	req.Header.Set("Stripe-Signature", testutil.StripeSignature(t, cancel))
	w = httptest.NewRecorder()
	ts.Server.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Cancellation webhook: expected 200, got %d", w.Code)
	}

	record, _ = ts.Storage.GetByCustomerID(t.Context(), "cus_test123")
	if record.Status != models.StatusCancelled {
		t.Fatalf("Expected cancelled record, got %s", record.Status)
	}

	req = httptest.NewRequest("POST", "/api/v1/licenses/validate", bytes.NewReader(body))
	w = httptest.NewRecorder()
	ts.Server.Router.ServeHTTP(w, req)
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode validation result: %v", err)
	}
	if !result.Valid {
		t.Error("An unexpired key must keep validating after cancellation")
	}
}

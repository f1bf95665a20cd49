package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"codegate.app/cloud/handlers"
	"codegate.app/cloud/internal/artifacts"
	"codegate.app/cloud/internal/config"
	"codegate.app/cloud/internal/license"
	"codegate.app/cloud/storage"
)

const (
	SigningSecret = "test-signing-secret"
	WebhookSecret = "whsec_test"
)

// KeyPair generates a fresh Ed25519 keypair in the container formats
// the signer and validator parse: base64 PKCS#8 and base64 SPKI.
func KeyPair(t *testing.T) (privB64, pubB64 string) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate keypair: %v", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("Failed to marshal private key: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("Failed to marshal public key: %v", err)
	}

	return base64.StdEncoding.EncodeToString(privDER), base64.StdEncoding.EncodeToString(pubDER)
}

// SentMail is one message captured by the fake mailer.
type SentMail struct {
	To      string
	Subject string
	Body    string
}

type FakeMailer struct {
	mu   sync.Mutex
	Err  error
	Sent []SentMail
}

func (f *FakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}
	f.Sent = append(f.Sent, SentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *FakeMailer) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

// TestServer bundles a fully wired handler server with its fakes.
type TestServer struct {
	Server  *handlers.Server
	Storage *storage.MemoryStore
	Mailer  *FakeMailer
	Signer  *license.Signer

	ProDir        string
	EnterpriseDir string
}

func NewTestServer(t *testing.T) *TestServer {
	return NewTestServerWithProvider(t, nil)
}

func NewTestServerWithProvider(t *testing.T, provider license.Provider) *TestServer {
	t.Helper()

	privB64, pubB64 := KeyPair(t)
	signer, err := license.NewSigner(privB64)
	if err != nil {
		t.Fatalf("Failed to build signer: %v", err)
	}
	validator, err := license.NewValidator(pubB64, provider)
	if err != nil {
		t.Fatalf("Failed to build validator: %v", err)
	}

	cfg := &config.Config{
		Port:                "8080",
		StripeWebhookSecret: WebhookSecret,
		SigningSecret:       SigningSecret,
		EmailFrom:           "licenses@codegate.app",
	}

	store := storage.NewMemoryStore()
	mailer := &FakeMailer{}
	proDir := t.TempDir()
	entDir := t.TempDir()

	server := handlers.NewHTTPServer(cfg, store, signer, validator, mailer,
		artifacts.NewDirStore(proDir), artifacts.NewDirStore(entDir))

	return &TestServer{
		Server:        server,
		Storage:       store,
		Mailer:        mailer,
		Signer:        signer,
		ProDir:        proDir,
		EnterpriseDir: entDir,
	}
}

// StripeSignature produces a Stripe-Signature header that verifies
// against the test webhook secret.
func StripeSignature(t *testing.T, payload []byte) string {
	t.Helper()

	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, WebhookSecret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

// StripeEvent wraps object data in a webhook event envelope.
func StripeEvent(t *testing.T, eventType string, object map[string]interface{}) []byte {
	t.Helper()

	event := map[string]interface{}{
		"id":          "evt_" + uuid.Must(uuid.NewRandom()).String()[:8],
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data": map[string]interface{}{
			"object": object,
		},
	}

	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	return payload
}

// CheckoutSession builds a checkout.session.completed object.
func CheckoutSession(email, mode string, metadata map[string]string) map[string]interface{} {
	session := map[string]interface{}{
		"id":       "cs_test123",
		"mode":     mode,
		"customer": "cus_test123",
		"customer_details": map[string]interface{}{
			"email": email,
		},
		"amount_total":   4900,
		"currency":       "usd",
		"payment_status": "paid",
	}
	if mode == "subscription" {
		session["subscription"] = "sub_test123"
	}
	if metadata != nil {
		session["metadata"] = metadata
	}
	return session
}

// SubscriptionObject builds a customer.subscription.* object.
func SubscriptionObject(customerID, status string, periodEnd time.Time) map[string]interface{} {
	return map[string]interface{}{
		"id":                 "sub_test123",
		"customer":           customerID,
		"status":             status,
		"current_period_end": periodEnd.Unix(),
	}
}

// InvoiceObject builds an invoice.payment_failed object.
func InvoiceObject(customerID, email, hostedURL string) map[string]interface{} {
	return map[string]interface{}{
		"customer":           customerID,
		"customer_email":     email,
		"hosted_invoice_url": hostedURL,
	}
}

package license

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultValidity is applied when a sign request carries no expiry.
const DefaultValidity = 365 * 24 * time.Hour

// Signer mints Pro license keys with the license server's private key.
type Signer struct {
	priv ed25519.PrivateKey
}

// NewSigner parses base64-encoded PKCS#8 private key material.
// Malformed key material is a fatal service error: the caller is
// expected to refuse to start.
func NewSigner(privateKeyB64 string) (*Signer, error) {
	der, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}

	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key is %T, want ed25519", parsed)
	}

	return &Signer{priv: priv}, nil
}

// Sign builds the canonical Pro payload and produces a signed license
// key. expiresAt may be the zero time for the default validity window;
// a non-zero expiry must be strictly in the future. An empty features
// slice gets the default Pro capability set.
func (s *Signer) Sign(licensee string, expiresAt time.Time, features []string) (string, *Payload, error) {
	if licensee == "" {
		return "", nil, Errorf(KindValidation, "licensee is required")
	}

	issuedAt := time.Now().UTC()
	if expiresAt.IsZero() {
		expiresAt = issuedAt.Add(DefaultValidity)
	}
	if !expiresAt.After(issuedAt) {
		return "", nil, Errorf(KindValidation, "expires_at must be in the future")
	}
	if len(features) == 0 {
		features = DefaultProFeatures()
	}

	payload := &Payload{
		Tier:      TierPro,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt.UTC(),
		Licensee:  licensee,
		Features:  features,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal license payload: %w", err)
	}

	// The signature covers the encoded string itself so the validator
	// never has to re-canonicalize JSON.
	payloadB64 := base64.RawURLEncoding.EncodeToString(raw)
	sig := ed25519.Sign(s.priv, []byte(payloadB64))
	sigB64 := base64.RawURLEncoding.EncodeToString(sig)

	return ProPrefix + payloadB64 + "." + sigB64, payload, nil
}

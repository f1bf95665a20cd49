package license

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultPublicKey verifies production Pro licenses. It is the public
// half of the keypair held by the license server, in base64 SPKI form.
const DefaultPublicKey = "MCowBQYDK2VwAyEAkkQSZ5YFTfq2F/ZHWy4kNUQ/ojOO8fdwWeZpR5PUj2Y="

// The raw 32-byte Ed25519 key sits after the fixed-length SPKI
// algorithm header. The offset is a constant of the key format.
const spkiHeaderLen = 12

// Result is the uniform outcome of validating either tier.
type Result struct {
	Valid    bool   `json:"valid"`
	Tier     string `json:"tier,omitempty"`
	Licensee string `json:"licensee,omitempty"`
	Kind     Kind   `json:"error_kind,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

func invalid(kind Kind, format string, args ...interface{}) Result {
	return Result{Valid: false, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Provider validates Enterprise license keys against the hosted
// licensing service.
type Provider interface {
	ValidateKey(ctx context.Context, key string) Result
}

// Validator verifies license keys of both tiers, dispatching on the
// key prefix. Pro keys are checked offline against the embedded public
// key; Enterprise keys go through the provider.
type Validator struct {
	pub      ed25519.PublicKey
	provider Provider
}

func NewValidator(publicKeyB64 string, provider Provider) (*Validator, error) {
	pub, err := parseSPKIPublicKey(publicKeyB64)
	if err != nil {
		return nil, err
	}
	return &Validator{pub: pub, provider: provider}, nil
}

func parseSPKIPublicKey(publicKeyB64 string) (ed25519.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(der) < spkiHeaderLen+ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key too short: %d bytes", len(der))
	}
	return ed25519.PublicKey(der[spkiHeaderLen : spkiHeaderLen+ed25519.PublicKeySize]), nil
}

// Validate checks a license key of either tier and returns a uniform
// result. It never returns valid on a transport failure.
func (v *Validator) Validate(ctx context.Context, key string) Result {
	switch {
	case strings.HasPrefix(key, ProPrefix):
		return v.validatePro(key)
	case strings.HasPrefix(key, EnterprisePrefix):
		if v.provider == nil {
			return invalid(KindTransport, "no licensing service configured")
		}
		return v.provider.ValidateKey(ctx, key)
	default:
		return invalid(KindFormat, "unrecognized license key prefix")
	}
}

func (v *Validator) validatePro(key string) Result {
	parts := strings.Split(strings.TrimPrefix(key, ProPrefix), ".")
	if len(parts) != 2 {
		return invalid(KindFormat, "expected pro_<payload>.<signature>")
	}
	payloadB64, sigB64 := parts[0], parts[1]

	payloadRaw, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return invalid(KindFormat, "payload segment: %v", err)
	}
	var payload Payload
	if err := json.Unmarshal(payloadRaw, &payload); err != nil {
		return invalid(KindFormat, "payload JSON: %v", err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return invalid(KindFormat, "signature segment: %v", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return invalid(KindSignature, "license signature verification failed")
	}
	// Verify over the still-encoded payload segment, exactly the bytes
	// the signer signed.
	if !ed25519.Verify(v.pub, []byte(payloadB64), sig) {
		return invalid(KindSignature, "license signature verification failed")
	}

	if payload.Tier != TierPro {
		return invalid(KindTierMismatch, "expected tier %q, got %q", TierPro, payload.Tier)
	}
	if !payload.ExpiresAt.After(time.Now()) {
		return invalid(KindExpired, "license expired at %s", payload.ExpiresAt.Format(time.RFC3339))
	}

	return Result{Valid: true, Tier: TierPro, Licensee: payload.Licensee}
}

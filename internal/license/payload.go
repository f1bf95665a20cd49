// Package license implements the two CodeGate license tiers.
//
// Pro licenses are self-contained: an Ed25519-signed JSON payload that
// can be verified offline. Enterprise licenses are opaque tokens
// validated online against the Keygen licensing service.
//
// Pro key format:
//
//	pro_<base64url(payload JSON)>.<base64url(signature)>
//
// The signature covers the UTF-8 bytes of the encoded payload segment,
// not the decoded JSON, so verification never re-serializes anything.
package license

import "time"

const (
	TierPro        = "pro"
	TierEnterprise = "enterprise"

	ProPrefix        = "pro_"
	EnterprisePrefix = "ent_"
)

// Payload is the signed body of a Pro license. Once signed its exact
// serialized bytes are part of the key and must never change.
type Payload struct {
	Tier      string    `json:"tier"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Licensee  string    `json:"licensee"`
	Features  []string  `json:"features"`
}

// DefaultProFeatures is the capability set granted to Pro licenses
// that do not request an explicit one.
func DefaultProFeatures() []string {
	return []string{
		"private_rules",
		"ci_mode",
		"team_sync",
		"priority_updates",
	}
}

// HasFeature reports whether the payload grants a capability.
func (p *Payload) HasFeature(feature string) bool {
	for _, f := range p.Features {
		if f == feature {
			return true
		}
	}
	return false
}

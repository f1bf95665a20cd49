package models

import "time"

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// LicenseRecord is the persisted view of an issued license. The same
// record is stored under two keys, customer:{customer_id} and
// license:{license_key}, and both copies are written together.
type LicenseRecord struct {
	LicenseKey     string    `json:"license_key"`
	CustomerID     string    `json:"customer_id"`
	CustomerEmail  string    `json:"customer_email"`
	Tier           string    `json:"tier"`
	Status         string    `json:"status"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
}

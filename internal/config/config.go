package config

import (
	"errors"
	"os"

	"codegate.app/cloud/internal/license"
)

type Config struct {
	Port string

	DatabaseURL string

	StripeWebhookSecret string

	// Base64 PKCS#8 Ed25519 key the signer mints Pro licenses with.
	SigningPrivateKey string
	// Base64 SPKI key the validator verifies Pro licenses with.
	VerifyPublicKey string
	// Shared secret callers of the signing endpoint must present.
	SigningSecret string

	KeygenAPIURL    string
	KeygenAccountID string

	ProArtifactsDir        string
	EnterpriseArtifactsDir string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
}

func New() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	stripeWebhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if stripeWebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET environment variable is required")
	}

	signingKey := os.Getenv("LICENSE_SIGNING_KEY")
	if signingKey == "" {
		return nil, errors.New("LICENSE_SIGNING_KEY environment variable is required")
	}

	signingSecret := os.Getenv("SIGNING_SHARED_SECRET")
	if signingSecret == "" {
		return nil, errors.New("SIGNING_SHARED_SECRET environment variable is required")
	}

	keygenAccountID := os.Getenv("KEYGEN_ACCOUNT_ID")
	if keygenAccountID == "" {
		return nil, errors.New("KEYGEN_ACCOUNT_ID environment variable is required")
	}

	publicKey := os.Getenv("LICENSE_PUBLIC_KEY")
	if publicKey == "" {
		publicKey = license.DefaultPublicKey
	}

	keygenURL := os.Getenv("KEYGEN_API_URL")
	if keygenURL == "" {
		keygenURL = license.DefaultKeygenURL
	}

	proDir := os.Getenv("PRO_ARTIFACTS_DIR")
	if proDir == "" {
		proDir = "artifacts/pro"
	}
	entDir := os.Getenv("ENTERPRISE_ARTIFACTS_DIR")
	if entDir == "" {
		entDir = "artifacts/enterprise"
	}

	emailFrom := os.Getenv("EMAIL_FROM")
	if emailFrom == "" {
		emailFrom = "licenses@codegate.app"
	}

	return &Config{
		Port:                   port,
		DatabaseURL:            dbURL,
		StripeWebhookSecret:    stripeWebhookSecret,
		SigningPrivateKey:      signingKey,
		VerifyPublicKey:        publicKey,
		SigningSecret:          signingSecret,
		KeygenAPIURL:           keygenURL,
		KeygenAccountID:        keygenAccountID,
		ProArtifactsDir:        proDir,
		EnterpriseArtifactsDir: entDir,
		SMTPHost:               os.Getenv("SMTP_HOST"),
		SMTPPort:               os.Getenv("SMTP_PORT"),
		SMTPUsername:           os.Getenv("SMTP_USERNAME"),
		SMTPPassword:           os.Getenv("SMTP_PASSWORD"),
		EmailFrom:              emailFrom,
	}, nil
}

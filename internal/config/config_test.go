package config

import (
	"strings"
	"testing"

	"codegate.app/cloud/internal/license"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "test.db")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("LICENSE_SIGNING_KEY", "c2lnbmluZy1rZXk=")
	t.Setenv("SIGNING_SHARED_SECRET", "shared")
	t.Setenv("KEYGEN_ACCOUNT_ID", "acct_test")
}

func TestNew_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("LICENSE_PUBLIC_KEY", "")
	t.Setenv("KEYGEN_API_URL", "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port, got %q", cfg.Port)
	}
	if cfg.VerifyPublicKey != license.DefaultPublicKey {
		t.Errorf("Expected default public key, got %q", cfg.VerifyPublicKey)
	}
	if cfg.KeygenAPIURL != license.DefaultKeygenURL {
		t.Errorf("Expected default keygen URL, got %q", cfg.KeygenAPIURL)
	}
	if cfg.ProArtifactsDir != "artifacts/pro" || cfg.EnterpriseArtifactsDir != "artifacts/enterprise" {
		t.Errorf("Expected default artifact dirs, got %q / %q", cfg.ProArtifactsDir, cfg.EnterpriseArtifactsDir)
	}
}

func TestNew_RequiredVariables(t *testing.T) {
	required := []string{
		"DATABASE_URL",
		"STRIPE_WEBHOOK_SECRET",
		"LICENSE_SIGNING_KEY",
		"SIGNING_SHARED_SECRET",
		"KEYGEN_ACCOUNT_ID",
	}

	for _, name := range required {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(name, "")

			_, err := New()
			if err == nil {
				t.Fatalf("Expected an error with %s unset", name)
			}
			if !strings.Contains(err.Error(), name) {
				t.Errorf("Error should name the missing variable: %v", err)
			}
		})
	}
}

package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"codegate.app/cloud/handlers"
	"codegate.app/cloud/internal/artifacts"
	"codegate.app/cloud/internal/config"
	"codegate.app/cloud/internal/email"
	"codegate.app/cloud/internal/license"
	"codegate.app/cloud/internal/logger"
	"codegate.app/cloud/internal/version"
	"codegate.app/cloud/storage"
)

func main() {
	godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		TracesSampleRate: 1.0,
	}); err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	store, err := storage.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	// Bad signing key material means every issued license would be
	// worthless. Refuse to start.
	signer, err := license.NewSigner(cfg.SigningPrivateKey)
	if err != nil {
		log.Fatalf("license signer: %v", err)
	}

	provider := license.NewKeygenClient(cfg.KeygenAPIURL, cfg.KeygenAccountID)
	validator, err := license.NewValidator(cfg.VerifyPublicKey, provider)
	if err != nil {
		log.Fatalf("license validator: %v", err)
	}

	mailer := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)

	server := handlers.NewHTTPServer(cfg, store, signer, validator, mailer,
		artifacts.NewDirStore(cfg.ProArtifactsDir),
		artifacts.NewDirStore(cfg.EnterpriseArtifactsDir))

	logger.Info("CodeGate license cloud starting", map[string]interface{}{
		"port":    cfg.Port,
		"version": version.Resolve(),
	})

	log.Fatal(http.ListenAndServe(":"+cfg.Port, server.Router))
}

package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"codegate.app/cloud/internal/artifacts"
	"codegate.app/cloud/internal/config"
	"codegate.app/cloud/internal/email"
	"codegate.app/cloud/internal/license"
	"codegate.app/cloud/internal/ratelimit"
	"codegate.app/cloud/internal/version"
	"codegate.app/cloud/storage"
)

type Server struct {
	Router    chi.Router
	Config    *config.Config
	Storage   storage.Store
	Signer    *license.Signer
	Validator *license.Validator
	Mailer    email.Sender

	ProArtifacts        artifacts.Store
	EnterpriseArtifacts artifacts.Store

	version string
}

func NewHTTPServer(cfg *config.Config, store storage.Store, signer *license.Signer,
	validator *license.Validator, mailer email.Sender, pro, enterprise artifacts.Store) *Server {

	s := &Server{
		Config:              cfg,
		Storage:             store,
		Signer:              signer,
		Validator:           validator,
		Mailer:              mailer,
		ProArtifacts:        pro,
		EnterpriseArtifacts: enterprise,
		version:             version.Resolve(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://codegate.app", "https://www.codegate.app"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "X-Signing-Secret"},
	}))

	limiter := ratelimit.New(60, time.Minute)

	r.Get("/health", s.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", s.StripeWebhook)
		r.Post("/licenses/sign", s.SignLicense)

		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(limiter))
			r.Post("/licenses/validate", s.ValidateLicense)
			r.Get("/download", s.Download)
		})
	})
	s.Router = r

	return s
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now(),
	})
}

// errorResponse is the structured JSON error body every entry point
// returns on failure.
type errorResponse struct {
	HTTPStatus  int          `json:"-"`
	Message     string       `json:"error"`
	Kind        license.Kind `json:"kind,omitempty"`
	Detail      string       `json:"detail,omitempty"`
	Remediation string       `json:"remediation,omitempty"`
}

func (e *errorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatus)
	return nil
}

func renderError(w http.ResponseWriter, r *http.Request, resp *errorResponse) {
	// Render only fails on marshalling, which cannot happen here.
	_ = render.Render(w, r, resp)
}

func badRequest(detail string) *errorResponse {
	return &errorResponse{
		HTTPStatus: http.StatusBadRequest,
		Message:    "invalid request",
		Kind:       license.KindValidation,
		Detail:     detail,
	}
}

func internalError() *errorResponse {
	return &errorResponse{
		HTTPStatus: http.StatusInternalServerError,
		Message:    "internal server error",
		Kind:       license.KindInternal,
	}
}

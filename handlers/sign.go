package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/go-chi/render"

	"codegate.app/cloud/internal/license"
	"codegate.app/cloud/internal/logger"
)

var validate = validator.New()

type SignRequest struct {
	Licensee  string     `json:"licensee" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Features  []string   `json:"features,omitempty" validate:"omitempty,dive,required"`
}

type SignResponse struct {
	LicenseKey string           `json:"license_key"`
	Payload    *license.Payload `json:"payload"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// SignLicense mints a Pro license for trusted callers holding the
// shared signing secret.
func (s *Server) SignLicense(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Signing-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.Config.SigningSecret)) != 1 {
		renderError(w, r, &errorResponse{
			HTTPStatus: http.StatusUnauthorized,
			Message:    "unauthorized",
			Kind:       license.KindAuth,
			Detail:     "missing or invalid signing secret",
		})
		return
	}

	var req SignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, badRequest("request body must be JSON"))
		return
	}
	if err := validate.Struct(req); err != nil {
		renderError(w, r, badRequest(err.Error()))
		return
	}

	expiresAt := time.Time{}
	if req.ExpiresAt != nil {
		expiresAt = *req.ExpiresAt
	}

	key, payload, err := s.Signer.Sign(req.Licensee, expiresAt, req.Features)
	if err != nil {
		if license.KindOf(err) == license.KindValidation {
			renderError(w, r, badRequest(err.Error()))
			return
		}
		logger.Error("Failed to sign license", map[string]interface{}{
			"error":    err.Error(),
			"licensee": req.Licensee,
		})
		sentry.CaptureException(err)
		renderError(w, r, internalError())
		return
	}

	logger.Info("License signed", map[string]interface{}{
		"licensee":   req.Licensee,
		"expires_at": payload.ExpiresAt,
	})

	render.JSON(w, r, SignResponse{
		LicenseKey: key,
		Payload:    payload,
		ExpiresAt:  payload.ExpiresAt,
	})
}

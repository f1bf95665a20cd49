package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"codegate.app/cloud/internal/license"
)

type ValidateRequest struct {
	LicenseKey string `json:"license_key"`
	Tier       string `json:"tier,omitempty"`
}

// ValidateLicense checks a license key of either tier and returns the
// uniform validation result. Invalid licenses are a 200 with
// valid=false; only malformed requests are a 4xx.
func (s *Server) ValidateLicense(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, badRequest("request body must be JSON"))
		return
	}
	if req.LicenseKey == "" {
		renderError(w, r, badRequest("license_key is required"))
		return
	}

	if req.Tier != "" && !tierMatchesKey(req.Tier, req.LicenseKey) {
		render.JSON(w, r, license.Result{
			Valid:  false,
			Kind:   license.KindFormat,
			Detail: "license key does not match tier " + req.Tier,
		})
		return
	}

	render.JSON(w, r, s.Validator.Validate(r.Context(), req.LicenseKey))
}

func tierMatchesKey(tier, key string) bool {
	switch tier {
	case license.TierPro:
		return strings.HasPrefix(key, license.ProPrefix)
	case license.TierEnterprise:
		return strings.HasPrefix(key, license.EnterprisePrefix)
	default:
		return false
	}
}

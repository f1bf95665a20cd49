package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"

	"codegate.app/cloud/internal/artifacts"
	"codegate.app/cloud/internal/license"
	"codegate.app/cloud/internal/logger"
	"codegate.app/cloud/internal/platform"
)

// Download gates binary retrieval behind license validation.
// Query parameters: license, tier (pro|enterprise), optional platform.
func (s *Server) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("license")
	tier := q.Get("tier")

	if key == "" {
		renderError(w, r, badRequest("license query parameter is required"))
		return
	}
	if tier != license.TierPro && tier != license.TierEnterprise {
		renderError(w, r, badRequest(`tier must be "pro" or "enterprise"`))
		return
	}

	resolved, err := platform.Resolve(q.Get("platform"), r.UserAgent())
	if err != nil {
		renderError(w, r, badRequest(err.Error()))
		return
	}

	result := s.Validator.Validate(r.Context(), key)
	if !result.Valid {
		renderError(w, r, &errorResponse{
			HTTPStatus:  http.StatusForbidden,
			Message:     "license validation failed",
			Kind:        result.Kind,
			Detail:      result.Detail,
			Remediation: remediationFor(tier),
		})
		return
	}
	if result.Tier != tier {
		renderError(w, r, &errorResponse{
			HTTPStatus:  http.StatusForbidden,
			Message:     "license validation failed",
			Kind:        license.KindTierMismatch,
			Detail:      fmt.Sprintf("a %s license does not permit %s downloads", result.Tier, tier),
			Remediation: remediationFor(tier),
		})
		return
	}

	store := s.ProArtifacts
	if tier == license.TierEnterprise {
		store = s.EnterpriseArtifacts
	}

	name := artifactName(resolved)
	data, err := store.Get(r.Context(), name)
	if errors.Is(err, artifacts.ErrNotFound) {
		renderError(w, r, &errorResponse{
			HTTPStatus: http.StatusNotFound,
			Message:    fmt.Sprintf("no %s build available for %s", tier, resolved),
			Kind:       license.KindNotFound,
		})
		return
	}
	if err != nil {
		logger.Error("Failed to fetch artifact", map[string]interface{}{
			"error":    err.Error(),
			"artifact": name,
			"tier":     tier,
		})
		sentry.CaptureException(err)
		renderError(w, r, internalError())
		return
	}

	logger.Info("Serving release download", map[string]interface{}{
		"artifact": name,
		"tier":     tier,
		"licensee": result.Licensee,
	})

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-License-Tier", tier)
	w.Header().Set("X-Licensee", result.Licensee)
	if _, err := w.Write(data); err != nil {
		logger.Error("Failed to stream artifact", map[string]interface{}{
			"error":    err.Error(),
			"artifact": name,
		})
	}
}

// artifactName maps a platform to the published binary name.
func artifactName(p string) string {
	if p == platform.X8664Windows {
		return "codegate-" + p + ".exe"
	}
	return "codegate-" + p
}

func remediationFor(tier string) string {
	if tier == license.TierEnterprise {
		return "Contact sales@codegate.app to restore your Enterprise license."
	}
	return "Purchase or renew your CodeGate Pro license at https://codegate.app/pricing."
}

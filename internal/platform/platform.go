// Package platform resolves which binary build a download request is
// asking for.
package platform

import (
	"errors"
	"fmt"
	"strings"
)

const (
	X8664Linux    = "x86_64-linux"
	Aarch64Linux  = "aarch64-linux"
	X8664Darwin   = "x86_64-darwin"
	Aarch64Darwin = "aarch64-darwin"
	X8664Windows  = "x86_64-windows"
)

var (
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrCannotDetermine means the User-Agent gave nothing to go on.
	// Callers should ask for an explicit platform instead of guessing.
	ErrCannotDetermine = errors.New("cannot determine platform from User-Agent, pass platform explicitly")
)

// All lists every platform a build is published for.
func All() []string {
	return []string{X8664Linux, Aarch64Linux, X8664Darwin, Aarch64Darwin, X8664Windows}
}

// IsValid reports whether p names a published platform.
func IsValid(p string) bool {
	for _, known := range All() {
		if p == known {
			return true
		}
	}
	return false
}

// Generic HTTP clients whose User-Agent reflects the tool, not the
// machine the binary will run on. Some of these embed a build triple
// (curl does), so they are rejected before any substring matching.
var genericClients = []string{"curl/", "wget/", "go-http-client", "python-requests", "libwww"}

// Resolve picks the platform for a download. An explicit value always
// wins; otherwise the User-Agent is inspected for OS and CPU family.
func Resolve(explicit, userAgent string) (string, error) {
	if explicit != "" {
		if !IsValid(explicit) {
			return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, explicit)
		}
		return explicit, nil
	}

	ua := strings.ToLower(userAgent)
	if ua == "" {
		return "", ErrCannotDetermine
	}
	for _, client := range genericClients {
		if strings.Contains(ua, client) {
			return "", ErrCannotDetermine
		}
	}

	arm := strings.Contains(ua, "arm64") || strings.Contains(ua, "aarch64")

	switch {
	case strings.Contains(ua, "windows"):
		// Only an x86_64 build is published for Windows.
		return X8664Windows, nil
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh") || strings.Contains(ua, "darwin"):
		if arm {
			return Aarch64Darwin, nil
		}
		return X8664Darwin, nil
	case strings.Contains(ua, "linux"):
		if arm {
			return Aarch64Linux, nil
		}
		return X8664Linux, nil
	default:
		return "", ErrCannotDetermine
	}
}

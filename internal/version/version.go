package version

import (
	"os"
	"strings"
)

// Fallback when no VERSION file ships with the deployment.
const dev = "dev"

// Resolve reads the service version from the VERSION file next to the
// binary, falling back to "dev".
func Resolve() string {
	raw, err := os.ReadFile("VERSION")
	if err != nil {
		return dev
	}

	v := strings.TrimSpace(string(raw))
	if v == "" {
		return dev
	}
	return v
}

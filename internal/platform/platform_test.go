package platform

import (
	"errors"
	"testing"
)

func TestResolve_ExplicitWins(t *testing.T) {
	// Explicit platform beats a conflicting User-Agent.
	got, err := Resolve(Aarch64Darwin, "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != Aarch64Darwin {
		t.Errorf("Expected %s, got %s", Aarch64Darwin, got)
	}
}

func TestResolve_ExplicitUnknown(t *testing.T) {
	_, err := Resolve("riscv64-plan9", "")
	if !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("Expected ErrUnknownPlatform, got %v", err)
	}
}

func TestResolve_UserAgentInference(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want string
	}{
		{"windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36", X8664Windows},
		{"intel mac", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)", X8664Darwin},
		{"apple silicon", "Mozilla/5.0 (Macintosh; ARM64 Mac OS X 14_0)", Aarch64Darwin},
		{"linux x86_64", "Mozilla/5.0 (X11; Linux x86_64)", X8664Linux},
		{"linux arm", "Mozilla/5.0 (X11; Linux aarch64)", Aarch64Linux},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve("", tc.ua)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestResolve_GenericClientsNotGuessed(t *testing.T) {
	cases := []struct {
		name string
		ua   string
	}{
		{"empty", ""},
		{"curl", "curl/8.4.0"},
		// curl embeds a build triple; it describes curl, not the caller.
		{"curl with triple", "curl/7.64.1 (x86_64-pc-linux-gnu)"},
		{"wget", "Wget/1.21.3"},
		{"go client", "Go-http-client/2.0"},
		{"requests", "python-requests/2.31.0"},
		{"unknown os", "SomeAgent/1.0 (BeOS)"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Resolve("", tc.ua); !errors.Is(err, ErrCannotDetermine) {
				t.Errorf("Expected ErrCannotDetermine for %q, got %v", tc.ua, err)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	for _, p := range All() {
		if !IsValid(p) {
			t.Errorf("Expected %s to be valid", p)
		}
	}
	if IsValid("x86_64-freebsd") {
		t.Error("Expected x86_64-freebsd to be invalid")
	}
	if len(All()) != 5 {
		t.Errorf("Expected 5 published platforms, got %d", len(All()))
	}
}

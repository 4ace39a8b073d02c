package version

import (
	"strings"
	"testing"
)

func TestFormatVersion_Dev(t *testing.T) {
	got := FormatVersion("dev", "abc123", "2025-01-01")
	if got != "dev (development build)" {
		t.Errorf("unexpected dev format: %q", got)
	}
}

func TestFormatVersion_Release(t *testing.T) {
	got := FormatVersion("v0.3.0", "abc123", "2025-01-01")

	for _, want := range []string{"v0.3.0", "abc123", "2025-01-01"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatVersion() = %q, missing %q", got, want)
		}
	}
}

func TestServerVersion(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "dev"
	if got := ServerVersion(); got != "0.0.0-dev" {
		t.Errorf("ServerVersion() = %q, want 0.0.0-dev", got)
	}

	Version = "v1.2.3"
	if got := ServerVersion(); got != "v1.2.3" {
		t.Errorf("ServerVersion() = %q, want v1.2.3", got)
	}
}

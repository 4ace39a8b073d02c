package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDataDirectory_Default(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	dir, err := DataDirectory()
	if err != nil {
		t.Fatalf("DataDirectory failed: %v", err)
	}
	if filepath.Base(dir) != AppDirName {
		t.Errorf("expected base name %q, got %q", AppDirName, filepath.Base(dir))
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("expected absolute path, got %q", dir)
	}
}

func TestDataDirectory_EnvOverride(t *testing.T) {
	override := filepath.Join(t.TempDir(), "custom")
	t.Setenv(EnvDataDir, override)

	dir, err := DataDirectory()
	if err != nil {
		t.Fatalf("DataDirectory failed: %v", err)
	}
	if dir != override {
		t.Errorf("expected %q, got %q", override, dir)
	}
}

func TestUserDataBase_Linux(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)

	base, err := userDataBase("linux")
	if err != nil {
		t.Fatalf("userDataBase failed: %v", err)
	}
	if base != xdg {
		t.Errorf("expected %q, got %q", xdg, base)
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()

	for _, ext := range []string{".plsql", ".entity", ".client", ".projection"} {
		if _, ok := exts[ext]; !ok {
			t.Errorf("missing extension %s", ext)
		}
	}

	// Callers get their own copy.
	delete(exts, ".plsql")
	if _, ok := SupportedExtensions()[".plsql"]; !ok {
		t.Error("SupportedExtensions should return a fresh set")
	}
}

func TestIsSupportedFile(t *testing.T) {
	tests := map[string]bool{
		"order/source/order/database/CustomerOrder.plsql": true,
		"CustomerOrder.ENTITY":  true,
		"Order.projection":      true,
		"README.md":             false,
		"Makefile":              false,
		"model/order/Order.xml": false,
	}
	for path, want := range tests {
		if got := IsSupportedFile(path); got != want {
			t.Errorf("IsSupportedFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestSanitizeVersion(t *testing.T) {
	for _, ok := range []string{"25.1.0", "24R2", "release_23.2"} {
		if err := SanitizeVersion(ok); err != nil {
			t.Errorf("SanitizeVersion(%q) unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "  ", "..", "a/b", `a\b`, "../etc", "."} {
		if err := SanitizeVersion(bad); err == nil {
			t.Errorf("SanitizeVersion(%q) expected error", bad)
		}
	}
}

func TestListVersions(t *testing.T) {
	dataDir := t.TempDir()

	versions, err := ListVersions(dataDir)
	if err != nil {
		t.Fatalf("ListVersions on empty dir failed: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("expected no versions, got %v", versions)
	}

	for _, v := range []string{"25.1.0", "24.2.0", ".tmp-import"} {
		if err := os.MkdirAll(VersionDirectory(dataDir, v), 0755); err != nil {
			t.Fatal(err)
		}
	}

	versions, err = ListVersions(dataDir)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 2 || versions[0] != "24.2.0" || versions[1] != "25.1.0" {
		t.Errorf("unexpected versions: %v", versions)
	}
}

func TestResolveVersion(t *testing.T) {
	dataDir := t.TempDir()
	if err := os.MkdirAll(VersionDirectory(dataDir, "25.1.0"), 0755); err != nil {
		t.Fatal(err)
	}

	dir, err := ResolveVersion(dataDir, "25.1.0")
	if err != nil {
		t.Fatalf("ResolveVersion failed: %v", err)
	}
	if dir != VersionDirectory(dataDir, "25.1.0") {
		t.Errorf("unexpected dir %q", dir)
	}

	if _, err := ResolveVersion(dataDir, "99.0.0"); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "25.1.0")
	l := NewLayout(root)

	if l.HasSource() || l.HasKeywordIndex() || l.HasVectorIndex() || l.HasRanking() {
		t.Error("fresh layout should report nothing present")
	}

	if err := l.Create(); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !l.HasSource() {
		t.Error("source dir should exist after Create")
	}

	if err := os.MkdirAll(l.Vectors, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(l.Ranked, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if !l.HasVectorIndex() || !l.HasRanking() {
		t.Error("expected vector index and ranking to be detected")
	}
	if filepath.Base(l.Catalog) != "catalog.db" {
		t.Errorf("unexpected catalog path %q", l.Catalog)
	}
}

func TestLayout_SourceFile(t *testing.T) {
	l := NewLayout(t.TempDir())

	full, err := l.SourceFile("order/CustomerOrder.plsql")
	if err != nil {
		t.Fatalf("SourceFile failed: %v", err)
	}
	if full != filepath.Join(l.Source, "order", "CustomerOrder.plsql") {
		t.Errorf("unexpected path %q", full)
	}

	for _, bad := range []string{"", ".", "../secret", "order/../../secret", "/etc/passwd"} {
		if _, err := l.SourceFile(bad); !errors.Is(err, ErrOutsideSource) {
			t.Errorf("SourceFile(%q) = %v, want ErrOutsideSource", bad, err)
		}
	}
}

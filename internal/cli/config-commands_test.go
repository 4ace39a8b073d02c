package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khanglvm/ifs-cloud-mcp/internal/config"
	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
)

func TestNewConfigCmd(t *testing.T) {
	cmd := NewConfigCmd()

	if cmd.Use != "config" {
		t.Errorf("Expected Use='config', got %q", cmd.Use)
	}

	want := map[string]bool{"init": false, "show": false, "path": false, "use <version>": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Use]; ok {
			want[sub.Use] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Subcommand %q not registered", name)
		}
	}
}

func TestRunConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ifs-cloud-mcp.json")

	var out bytes.Buffer
	if err := runConfigInit(&out, path, "/srv/ifs", false); err != nil {
		t.Fatalf("runConfigInit() failed: %v", err)
	}
	if !strings.Contains(out.String(), "Wrote "+path) {
		t.Errorf("Unexpected output: %q", out.String())
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if cfg.DataDir != "/srv/ifs" || cfg.Transport.Type != "stdio" {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	if err := runConfigInit(&out, path, "", false); err == nil {
		t.Error("Expected error when the config file exists")
	}
	if err := runConfigInit(&out, path, "", true); err != nil {
		t.Errorf("runConfigInit() with force failed: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("Expected a backup of the previous config: %v", err)
	}
}

func TestRunConfigShow(t *testing.T) {
	dataDir := isolate(t)

	var out bytes.Buffer
	if err := runConfigShow(&out); err != nil {
		t.Fatalf("runConfigShow() failed: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if cfg.DataDir != dataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dataDir)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q, want INFO", cfg.LogLevel)
	}
}

func TestRunConfigUse(t *testing.T) {
	dataDir := isolate(t)
	seedVersion(t, dataDir, "25.1.0", false)

	var out bytes.Buffer
	if err := runConfigUse(&out, "25.1.0"); err != nil {
		t.Fatalf("runConfigUse() failed: %v", err)
	}

	path, err := config.GetDefaultConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if cfg.DefaultVersion != "25.1.0" {
		t.Errorf("DefaultVersion = %q, want 25.1.0", cfg.DefaultVersion)
	}
	if cfg.DataDir != "" {
		t.Errorf("Environment data dir must not be persisted, got %q", cfg.DataDir)
	}
}

func TestRunConfigUse_UnknownVersion(t *testing.T) {
	isolate(t)

	err := runConfigUse(new(bytes.Buffer), "99.9")
	if !errors.Is(err, dirs.ErrVersionNotFound) {
		t.Errorf("Expected ErrVersionNotFound, got %v", err)
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/khanglvm/ifs-cloud-mcp/internal/dirs"
)

// LoadFrom reads config with enhanced error handling
func LoadFrom(path string) (*Config, error) {
	// Check file existence first
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{
				Path: path,
				Hint: "Run 'ifs-cloud-mcp config init' to create configuration",
			}
		}
		return nil, fmt.Errorf("failed to access config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &PermissionError{
				Path:    path,
				Op:      "read",
				Fix:     getReadPermissionFix(path),
				Details: getPermissionDetails(path),
				Err:     err,
			}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Fields absent from the file keep their defaults.
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("JSON parse error: %v", err),
			Hint:    "Restore from .bak file if available",
			Err:     err,
		}
	}
	cfg.fillDefaults()

	if err := Validate(cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: err.Error(),
			Hint:    "Fix the value or remove it to use the default",
			Err:     err,
		}
	}

	return cfg, nil
}

// LoadOrDefault reads the config at path, falling back to the defaults when
// the file does not exist. Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadFrom(path)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		cfg = NewConfig()
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides dataDir and logLevel from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(dirs.EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
}

// getReadPermissionFix returns platform-specific fix command
func getReadPermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s → Properties → Security → Edit permissions", path)
	default: // unix-like
		return fmt.Sprintf("Run: chmod 644 %s", path)
	}
}

// getPermissionDetails checks file ownership and permissions
func getPermissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}

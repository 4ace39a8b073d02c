package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
)

// Save writes config with atomic write + backup
func Save(cfg *Config, path string) error {
	if err := Validate(cfg); err != nil {
		return &InvalidConfigError{
			Path:    path,
			Message: err.Error(),
			Hint:    "Check the configuration values and try again",
			Err:     err,
		}
	}

	// Check write permissions before attempting write
	if err := checkWritePermission(path); err != nil {
		return err
	}

	// 1. Backup existing config
	if err := backupConfig(path); err != nil {
		// Log warning but continue (first run = no backup needed)
		fmt.Fprintf(os.Stderr, "Warning: failed to create backup: %v\n", err)
	}

	// 2. Marshal JSON
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 3. Atomic write
	return atomicWrite(path, append(data, '\n'))
}

func backupConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // First run, no backup needed
		}
		return err
	}

	return os.WriteFile(path+".bak", data, 0644)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// checkWritePermission verifies we can write to the config path
func checkWritePermission(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PermissionError{
			Path:    dir,
			Op:      "write",
			Fix:     getWritePermissionFix(dir),
			Details: "Cannot create config directory",
		}
	}

	if err := checkDirectoryWritable(dir); err != nil {
		return &PermissionError{
			Path:    dir,
			Op:      "write",
			Fix:     getWritePermissionFix(dir),
			Details: "Cannot write to config directory",
		}
	}

	// If file exists, check if we can overwrite it
	if _, err := os.Stat(path); err == nil {
		if err := checkFileWritable(path); err != nil {
			return &PermissionError{
				Path:    path,
				Op:      "write",
				Fix:     getWritePermissionFix(path),
				Details: "Config file is read-only",
			}
		}
	}

	return nil
}

func checkDirectoryWritable(dir string) error {
	tmpFile := filepath.Join(dir, ".write-test-"+uuid.NewString())
	f, err := os.Create(tmpFile)
	if err != nil {
		return err
	}
	f.Close()
	os.Remove(tmpFile)
	return nil
}

func checkFileWritable(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	f.Close()
	return nil
}

func getWritePermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s → Properties → Security → Grant 'Write' permission", path)
	default: // unix-like
		return fmt.Sprintf("Run: chmod u+w %s", path)
	}
}

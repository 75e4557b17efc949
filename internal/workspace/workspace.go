package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"artifact_dashboard/internal/config"
)

const BaseDirName = "ArtifactDashboard"

// EnsureDefault prepares the workspace under the user's home directory.
func EnsureDefault() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return EnsureAt(filepath.Join(home, BaseDirName))
}

// EnsureAt creates the workspace layout under base and writes a default
// config file if none exists.
func EnsureAt(base string) (string, error) {
	paths := []string{
		filepath.Join(base, "configs"),
		filepath.Join(base, "data"),
		filepath.Join(base, "uploads"),
		filepath.Join(base, "reports"),
	}

	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", p, err)
		}
	}

	configPath := ConfigPath(base)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		cfg.Workspace = base
		if err := config.Save(configPath, cfg); err != nil {
			return "", err
		}
	}

	return base, nil
}

func ConfigPath(base string) string {
	return filepath.Join(base, "configs", config.FileName)
}

package agent

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed defaults
var defaultFiles embed.FS

// EnsureDefaultAgent materializes the embedded default agent under
// shareDir/agents/default and returns the agent file path. Existing files
// are overwritten so upgrades take effect.
func EnsureDefaultAgent(shareDir string) (string, error) {
	targetDir := filepath.Join(shareDir, "agents", "default")
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create default agent directory: %w", err)
	}

	entries, err := fs.ReadDir(defaultFiles, "defaults")
	if err != nil {
		return "", fmt.Errorf("read embedded defaults: %w", err)
	}
	for _, entry := range entries {
		data, err := defaultFiles.ReadFile("defaults/" + entry.Name())
		if err != nil {
			return "", fmt.Errorf("read embedded %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(targetDir, entry.Name()), data, 0o644); err != nil {
			return "", fmt.Errorf("write default agent file %s: %w", entry.Name(), err)
		}
	}
	return filepath.Join(targetDir, "agent.yaml"), nil
}

// Package session manages per-working-directory sessions, their durable
// conversation history, and the user-level metadata file.
package session

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WorkDirMeta tracks one working directory and its most recent session.
type WorkDirMeta struct {
	Path          string `json:"path"`
	LastSessionID string `json:"last_session_id,omitempty"`
}

// Metadata is the user-level metadata file shape.
type Metadata struct {
	WorkDirs []WorkDirMeta `json:"work_dirs"`
	Thinking bool          `json:"thinking"`
}

// MetadataFile returns the metadata file path under the share directory.
func MetadataFile(shareDir string) string {
	return filepath.Join(shareDir, "quill.json")
}

// LoadMetadata reads the metadata file. A missing file yields empty metadata.
func LoadMetadata(shareDir string) (*Metadata, error) {
	data, err := os.ReadFile(MetadataFile(shareDir))
	if os.IsNotExist(err) {
		return &Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &meta, nil
}

// SaveMetadata writes the metadata file as indented JSON.
func SaveMetadata(shareDir string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(MetadataFile(shareDir), append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// WorkDir returns the entry for path, or nil.
func (m *Metadata) WorkDir(path string) *WorkDirMeta {
	for i := range m.WorkDirs {
		if m.WorkDirs[i].Path == path {
			return &m.WorkDirs[i]
		}
	}
	return nil
}

// SetLastSession records the last session id for a work dir, adding the
// entry if needed.
func (m *Metadata) SetLastSession(path, sessionID string) {
	if wd := m.WorkDir(path); wd != nil {
		wd.LastSessionID = sessionID
		return
	}
	m.WorkDirs = append(m.WorkDirs, WorkDirMeta{Path: path, LastSessionID: sessionID})
}

// sessionsDir returns the per-work-dir sessions directory, keyed by the
// md5 of the absolute work dir path so arbitrary paths map to safe names.
func sessionsDir(shareDir, workDir string) string {
	sum := md5.Sum([]byte(workDir))
	return filepath.Join(shareDir, "sessions", hex.EncodeToString(sum[:]))
}

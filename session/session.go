package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Session identifies one conversation over a working directory.
type Session struct {
	ID          string
	WorkDir     string
	HistoryFile string
}

// Create starts a new session for workDir and registers the work dir in the
// metadata file.
func Create(shareDir, workDir string) (*Session, error) {
	id := uuid.NewString()
	dir := sessionsDir(shareDir, workDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}

	meta, err := LoadMetadata(shareDir)
	if err != nil {
		return nil, err
	}
	if meta.WorkDir(workDir) == nil {
		meta.WorkDirs = append(meta.WorkDirs, WorkDirMeta{Path: workDir})
		if err := SaveMetadata(shareDir, meta); err != nil {
			return nil, err
		}
	}

	return &Session{
		ID:          id,
		WorkDir:     workDir,
		HistoryFile: filepath.Join(dir, id+".jsonl"),
	}, nil
}

// Continue resumes the most recent session for workDir. It returns nil
// when the work dir has no prior session.
func Continue(shareDir, workDir string) (*Session, error) {
	meta, err := LoadMetadata(shareDir)
	if err != nil {
		return nil, err
	}
	wd := meta.WorkDir(workDir)
	if wd == nil || wd.LastSessionID == "" {
		return nil, nil
	}

	dir := sessionsDir(shareDir, workDir)
	historyFile := filepath.Join(dir, wd.LastSessionID+".jsonl")
	if _, err := os.Stat(historyFile); err != nil {
		return nil, nil
	}

	return &Session{
		ID:          wd.LastSessionID,
		WorkDir:     workDir,
		HistoryFile: historyFile,
	}, nil
}

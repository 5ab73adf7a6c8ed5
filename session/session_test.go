package session

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateRegistersWorkDir(t *testing.T) {
	shareDir := t.TempDir()
	workDir := "/tmp/project"

	sess, err := Create(shareDir, workDir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Error("expected a session id")
	}
	if !strings.HasSuffix(sess.HistoryFile, sess.ID+".jsonl") {
		t.Errorf("history file should be named by session id: %s", sess.HistoryFile)
	}
	if !strings.HasPrefix(sess.HistoryFile, filepath.Join(shareDir, "sessions")) {
		t.Errorf("history file should live under the sessions dir: %s", sess.HistoryFile)
	}

	meta, err := LoadMetadata(shareDir)
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if meta.WorkDir(workDir) == nil {
		t.Error("work dir should be registered in metadata")
	}
}

func TestCreateDistinctSessionsPerWorkDir(t *testing.T) {
	shareDir := t.TempDir()

	a, err := Create(shareDir, "/tmp/alpha")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := Create(shareDir, "/tmp/beta")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if filepath.Dir(a.HistoryFile) == filepath.Dir(b.HistoryFile) {
		t.Error("different work dirs must not share a sessions dir")
	}
}

func TestContinueNoPriorSession(t *testing.T) {
	shareDir := t.TempDir()

	sess, err := Continue(shareDir, "/tmp/project")
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session when no prior session exists")
	}
}

func TestContinueResumesLastSession(t *testing.T) {
	shareDir := t.TempDir()
	workDir := "/tmp/project"

	created, err := Create(shareDir, workDir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Only a session with recorded history can be continued.
	store := NewHistoryStore(created.HistoryFile)
	if err := store.SaveTokenCount(1); err != nil {
		t.Fatalf("SaveTokenCount: %v", err)
	}

	meta, err := LoadMetadata(shareDir)
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	meta.SetLastSession(workDir, created.ID)
	if err := SaveMetadata(shareDir, meta); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	resumed, err := Continue(shareDir, workDir)
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if resumed == nil {
		t.Fatal("expected resumed session")
	}
	if resumed.ID != created.ID {
		t.Errorf("expected session %s, got %s", created.ID, resumed.ID)
	}
	if resumed.HistoryFile != created.HistoryFile {
		t.Errorf("expected history file %s, got %s", created.HistoryFile, resumed.HistoryFile)
	}
}

func TestContinueMissingHistoryFile(t *testing.T) {
	shareDir := t.TempDir()
	workDir := "/tmp/project"

	meta := &Metadata{}
	meta.SetLastSession(workDir, "gone-session")
	if err := SaveMetadata(shareDir, meta); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	sess, err := Continue(shareDir, workDir)
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if sess != nil {
		t.Error("a recorded session without a history file cannot be continued")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	shareDir := t.TempDir()

	meta := &Metadata{Thinking: true}
	meta.SetLastSession("/tmp/a", "s1")
	meta.SetLastSession("/tmp/a", "s2")
	meta.SetLastSession("/tmp/b", "s3")
	if err := SaveMetadata(shareDir, meta); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	loaded, err := LoadMetadata(shareDir)
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if !loaded.Thinking {
		t.Error("thinking flag lost")
	}
	if len(loaded.WorkDirs) != 2 {
		t.Fatalf("expected 2 work dirs, got %d", len(loaded.WorkDirs))
	}
	if wd := loaded.WorkDir("/tmp/a"); wd == nil || wd.LastSessionID != "s2" {
		t.Errorf("SetLastSession should update in place, got %+v", wd)
	}
}

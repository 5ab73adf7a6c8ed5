package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quillhq/quill/core"
	"github.com/quillhq/quill/llm"
	"github.com/quillhq/quill/runtime"
	"github.com/quillhq/quill/session"
)

type echoEndpoint struct{}

func (echoEndpoint) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	last := req.Messages[len(req.Messages)-1]
	return &llm.Response{
		Message: llm.AssistantMessage("echo: " + last.TextContent()),
		Usage:   llm.Usage{InputTokens: 10},
	}, nil
}

func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	convo := core.NewContext(session.NewHistoryStore(filepath.Join(dir, "history.jsonl")))
	if err := convo.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	var out bytes.Buffer
	a := &App{
		rt: &runtime.Runtime{
			Session: &session.Session{ID: "s-1", WorkDir: dir},
		},
		convo:  convo,
		stdout: &out,
	}
	a.core = core.New(echoEndpoint{}, convo, nil, core.Options{
		Model:          "test-model",
		MaxContextSize: 100,
		Retry:          llm.RetryPolicy{MaxAttempts: 1},
	})
	return a, &out
}

func TestFindMetaCommandAliases(t *testing.T) {
	for _, name := range []string{"help", "h", "?", "quit", "exit", "status", "tools"} {
		if findMetaCommand(name) == nil {
			t.Errorf("findMetaCommand(%q) = nil", name)
		}
	}
	if findMetaCommand("bogus") != nil {
		t.Error("findMetaCommand(bogus) should be nil")
	}
}

func TestHandleMetaQuit(t *testing.T) {
	a, _ := testApp(t)
	if !a.handleMeta("/quit") {
		t.Error("/quit should end the loop")
	}
	if !a.handleMeta("/exit") {
		t.Error("/exit should end the loop")
	}
	if a.handleMeta("/status") {
		t.Error("/status should not end the loop")
	}
}

func TestHandleMetaUnknown(t *testing.T) {
	a, out := testApp(t)
	if a.handleMeta("/nope") {
		t.Error("unknown command should not end the loop")
	}
	if !strings.Contains(out.String(), "Unknown command") {
		t.Errorf("output %q missing unknown-command hint", out.String())
	}
}

func TestStatusCommandReportsUsage(t *testing.T) {
	a, out := testApp(t)
	if _, err := a.core.Run(context.Background(), "hi"); err != nil {
		t.Fatalf("run: %v", err)
	}
	a.handleMeta("/status")
	got := out.String()
	if !strings.Contains(got, "Session:       s-1") {
		t.Errorf("status output missing session id: %q", got)
	}
	if !strings.Contains(got, "Context usage: 10.0%") {
		t.Errorf("status output missing usage: %q", got)
	}
}

func TestRunPrintStreamJSON(t *testing.T) {
	a, out := testApp(t)
	input := `{"role":"user","content":[{"kind":"text","text":"hello"}]}`
	if err := a.runPrint(context.Background(), input, formatStreamJSON, formatStreamJSON); err != nil {
		t.Fatalf("runPrint: %v", err)
	}
	var msg llm.Message
	if err := json.Unmarshal(out.Bytes(), &msg); err != nil {
		t.Fatalf("output is not a JSON message: %v", err)
	}
	if msg.Role != llm.RoleAssistant {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
	if msg.TextContent() != "echo: hello" {
		t.Errorf("TextContent = %q", msg.TextContent())
	}
}

func TestRunPrintRejectsBadStreamJSON(t *testing.T) {
	a, _ := testApp(t)
	if err := a.runPrint(context.Background(), "not json", formatStreamJSON, ""); err == nil {
		t.Error("invalid JSON input should fail")
	}
	assistant := `{"role":"assistant","content":[{"kind":"text","text":"x"}]}`
	if err := a.runPrint(context.Background(), assistant, formatStreamJSON, ""); err == nil {
		t.Error("non-user input message should fail")
	}
}

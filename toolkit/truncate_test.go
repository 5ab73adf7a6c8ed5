package toolkit

import (
	"strings"
	"testing"
)

func TestTruncateOutputUnderLimit(t *testing.T) {
	out := TruncateOutput("short", 100, TruncateHeadTail)
	if out != "short" {
		t.Errorf("under-limit output should pass through, got %q", out)
	}
}

func TestTruncateOutputHeadTail(t *testing.T) {
	input := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	out := TruncateOutput(input, 20, TruncateHeadTail)

	if !strings.HasPrefix(out, strings.Repeat("a", 10)) {
		t.Error("head_tail should keep the head")
	}
	if !strings.HasSuffix(out, strings.Repeat("b", 10)) {
		t.Error("head_tail should keep the tail")
	}
	if !strings.Contains(out, "80 characters were removed") {
		t.Errorf("expected removed-count note, got %q", out)
	}
}

func TestTruncateOutputTail(t *testing.T) {
	input := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	out := TruncateOutput(input, 20, TruncateTail)

	if !strings.HasSuffix(out, strings.Repeat("b", 20)) {
		t.Error("tail mode should keep the last maxChars characters")
	}
	if !strings.Contains(out, "First 80 characters were removed") {
		t.Errorf("expected removed-count note, got %q", out)
	}
}

func TestTruncateLines(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = strings.Repeat("x", 3)
	}
	input := strings.Join(lines, "\n")

	out := TruncateLines(input, 4)
	if !strings.Contains(out, "6 lines omitted") {
		t.Errorf("expected omitted-count note, got %q", out)
	}

	if got := TruncateLines(input, 10); got != input {
		t.Error("at-limit input should pass through")
	}
}

func TestTruncateToolOutputUnknownTool(t *testing.T) {
	input := strings.Repeat("z", 40000)
	out := TruncateToolOutput(input, "mystery", nil, nil)
	if len(out) >= 40000 {
		t.Errorf("fallback limit should apply to unknown tools, got %d chars", len(out))
	}
}

func TestTruncateToolOutputPerToolLimit(t *testing.T) {
	input := strings.Repeat("z", 2000)
	out := TruncateToolOutput(input, "WriteFile", nil, nil)
	if len(input) <= len(out) {
		t.Errorf("WriteFile limit of 1000 should shrink 2000 chars, got %d", len(out))
	}

	custom := map[string]int{"WriteFile": 10000}
	out = TruncateToolOutput(input, "WriteFile", custom, nil)
	if out != input {
		t.Error("explicit char limit should override the default")
	}
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quillhq/quill/runtime"
	"github.com/quillhq/quill/session"
	"github.com/quillhq/quill/toolkit"
)

func testDeps(workDir string) Deps {
	return Deps{
		Runtime: &runtime.Runtime{
			Session: &session.Session{ID: "test", WorkDir: workDir},
		},
	}
}

func mustBuild(t *testing.T, builder Builder, deps Deps) toolkit.Tool {
	t.Helper()
	tool, err := builder(deps)
	if err != nil {
		t.Fatalf("builder: %v", err)
	}
	return tool
}

func callJSON(t *testing.T, tool toolkit.Tool, args string) toolkit.Result {
	t.Helper()
	return tool.Call(context.Background(), json.RawMessage(args))
}

func TestBuiltinsTableComplete(t *testing.T) {
	table := Builtins()
	for _, name := range []string{
		"ReadFile", "ReadSample", "WriteFile", "SplitToWorkspace",
		"Todo", "Task", "Outline", "Rewrite", "Summarize", "Search", "Index",
	} {
		if _, ok := table[name]; !ok {
			t.Errorf("missing builder for %s", name)
		}
	}
}

func TestReadFileNumbersLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tool := mustBuild(t, NewReadFile, testDeps(dir))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q}`, path))
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "     1\talpha\n") {
		t.Errorf("expected line-numbered output, got %q", result.Output)
	}
	if !strings.Contains(result.Summary, "3 lines read") {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
}

func TestReadFileOffsetAndCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tool := mustBuild(t, NewReadFile, testDeps(dir))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q,"line_offset":2,"n_lines":2}`, path))
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if strings.Contains(result.Output, "one") || strings.Contains(result.Output, "four") {
		t.Errorf("window not applied: %q", result.Output)
	}
	if !strings.Contains(result.Output, "     2\ttwo\n") || !strings.Contains(result.Output, "     3\tthree\n") {
		t.Errorf("expected lines 2-3, got %q", result.Output)
	}
}

func TestReadFileRejectsRelativePath(t *testing.T) {
	tool := mustBuild(t, NewReadFile, testDeps(t.TempDir()))
	result := callJSON(t, tool, `{"path":"relative.txt"}`)
	if !result.IsError || result.Brief != "Path must be absolute" {
		t.Errorf("expected absolute-path failure, got %+v", result)
	}
}

func TestReadFileMissingFile(t *testing.T) {
	tool := mustBuild(t, NewReadFile, testDeps(t.TempDir()))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q}`, filepath.Join(t.TempDir(), "nope.txt")))
	if !result.IsError || result.Brief != "File not found" {
		t.Errorf("expected file-not-found failure, got %+v", result)
	}
}

func TestReadFileDirectory(t *testing.T) {
	dir := t.TempDir()
	tool := mustBuild(t, NewReadFile, testDeps(dir))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q}`, dir))
	if !result.IsError || result.Brief != "Invalid path" {
		t.Errorf("expected invalid-path failure, got %+v", result)
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "draft.md")

	tool := mustBuild(t, NewWriteFile, testDeps(dir))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q,"content":"hello"}`, path))
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "Wrote 5 characters") {
		t.Errorf("unexpected output: %q", result.Output)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("file content %q", data)
	}
}

func TestWriteFileRejectsRelativePath(t *testing.T) {
	tool := mustBuild(t, NewWriteFile, testDeps(t.TempDir()))
	result := callJSON(t, tool, `{"path":"draft.md","content":"x"}`)
	if !result.IsError || result.Brief != "Path must be absolute" {
		t.Errorf("expected absolute-path failure, got %+v", result)
	}
}

func TestTodoDefaultsStatus(t *testing.T) {
	tool := mustBuild(t, NewTodo, testDeps(t.TempDir()))
	result := callJSON(t, tool, `{"item":"chapter 3 drafted"}`)
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if result.Output != "[todo: in_progress] chapter 3 drafted" {
		t.Errorf("unexpected output: %q", result.Output)
	}
}

func TestOutlineWithFocus(t *testing.T) {
	tool := mustBuild(t, NewOutline, testDeps(t.TempDir()))
	result := callJSON(t, tool, `{"title":"Go Patterns","focus":"practitioners"}`)
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "# Outline for Go Patterns (practitioners)") {
		t.Errorf("unexpected output: %q", result.Output)
	}
}

func TestRewriteKeepsDraft(t *testing.T) {
	tool := mustBuild(t, NewRewrite, testDeps(t.TempDir()))
	result := callJSON(t, tool, `{"draft":"rough text","style":"formal"}`)
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "(formal)") || !strings.Contains(result.Output, "rough text") {
		t.Errorf("unexpected output: %q", result.Output)
	}
}

func TestSearchSkipsWithoutIndex(t *testing.T) {
	_, err := NewSearch(testDeps(t.TempDir()))
	if !errors.Is(err, toolkit.ErrSkipTool) {
		t.Fatalf("expected ErrSkipTool without index dir, got %v", err)
	}
}

func TestSearchFindsIndexedContent(t *testing.T) {
	workDir := t.TempDir()
	indexDir := filepath.Join(workDir, IndexDirName)
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(indexDir, "ch1.txt"), []byte("The harbor was quiet at dawn."), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(indexDir, "ch2.txt"), []byte("Nothing relevant here."), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tool := mustBuild(t, NewSearch, testDeps(workDir))
	result := callJSON(t, tool, `{"query":"harbor dawn"}`)
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "ch1.txt") {
		t.Errorf("expected ch1.txt hit, got %q", result.Output)
	}
	if strings.Contains(result.Output, "ch2.txt") {
		t.Errorf("non-matching file should not appear: %q", result.Output)
	}
}

func TestSearchNoMatches(t *testing.T) {
	workDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(workDir, IndexDirName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	tool := mustBuild(t, NewSearch, testDeps(workDir))
	result := callJSON(t, tool, `{"query":"xyzzy"}`)
	if result.IsError || result.Output != "No matches found." {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestSummarizeWithSources(t *testing.T) {
	tool := mustBuild(t, NewSummarize, testDeps(t.TempDir()))
	result := callJSON(t, tool, `{"section":"Chapter 3","sources":["notes.md","draft.md"]}`)
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "## Summary: Chapter 3") {
		t.Errorf("missing heading: %q", result.Output)
	}
	if !strings.Contains(result.Output, "- notes.md") || !strings.Contains(result.Output, "- draft.md") {
		t.Errorf("missing sources: %q", result.Output)
	}
}

func TestSummarizeWithoutSources(t *testing.T) {
	tool := mustBuild(t, NewSummarize, testDeps(t.TempDir()))
	result := callJSON(t, tool, `{"section":"Intro"}`)
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if strings.Contains(result.Output, "Sources:") {
		t.Errorf("sources block should be omitted: %q", result.Output)
	}
}

func sampleFile(t *testing.T, dir string, n int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line%d\n", i)
	}
	path := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestReadSampleHead(t *testing.T) {
	dir := t.TempDir()
	path := sampleFile(t, dir, 10)

	tool := mustBuild(t, NewReadSample, testDeps(dir))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q,"lines":3}`, path))
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "     1\tline1\n") {
		t.Errorf("expected numbered head window, got %q", result.Output)
	}
	if !strings.Contains(result.Summary, "Read 3 lines from head starting at line 1.") {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
}

func TestReadSampleTail(t *testing.T) {
	dir := t.TempDir()
	path := sampleFile(t, dir, 10)

	tool := mustBuild(t, NewReadSample, testDeps(dir))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q,"position":"tail","lines":3}`, path))
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "     8\tline8\n") || !strings.Contains(result.Output, "    10\tline10\n") {
		t.Errorf("expected the last three lines, got %q", result.Output)
	}
	if !strings.Contains(result.Summary, "starting at line 8") {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
}

func TestReadSampleMiddle(t *testing.T) {
	dir := t.TempDir()
	path := sampleFile(t, dir, 11)

	tool := mustBuild(t, NewReadSample, testDeps(dir))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q,"position":"middle","lines":3}`, path))
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "line6") {
		t.Errorf("middle window should cover the file center, got %q", result.Output)
	}
}

func TestReadSampleBadPosition(t *testing.T) {
	dir := t.TempDir()
	path := sampleFile(t, dir, 3)

	tool := mustBuild(t, NewReadSample, testDeps(dir))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q,"position":"sideways"}`, path))
	if !result.IsError {
		t.Fatal("expected a failure for an unsupported position")
	}
}

func TestReadSampleRelativePath(t *testing.T) {
	tool := mustBuild(t, NewReadSample, testDeps(t.TempDir()))
	result := callJSON(t, tool, `{"path":"sample.txt"}`)
	if !result.IsError || result.Brief != "Path must be absolute" {
		t.Fatalf("expected absolute-path failure, got %+v", result)
	}
}

const splitSource = `Some preface text.

# Chapter One
First body.

# Chapter Two
Second body.
`

func TestSplitToWorkspace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "book.md")
	if err := os.WriteFile(src, []byte(splitSource), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tool := mustBuild(t, NewSplitToWorkspace, testDeps(dir))
	result := callJSON(t, tool, `{"source_path":"book.md","workspace_path":"workspaces/book","split_pattern":"^# .*$"}`)
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "Split into 3 file(s)") {
		t.Errorf("unexpected output: %q", result.Output)
	}

	ws := filepath.Join(dir, "workspaces", "book")
	for _, name := range []string{"000_preface.md", "001_Chapter-One.md", "002_Chapter-Two.md"} {
		if _, err := os.Stat(filepath.Join(ws, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(ws, "001_Chapter-One.md"))
	if err != nil {
		t.Fatalf("read chapter: %v", err)
	}
	if !strings.Contains(string(data), "# Chapter One") || !strings.Contains(string(data), "First body.") {
		t.Errorf("unexpected chapter content: %q", data)
	}
}

func TestSplitToWorkspaceNoMatches(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "book.md")
	if err := os.WriteFile(src, []byte("no headings here\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tool := mustBuild(t, NewSplitToWorkspace, testDeps(dir))
	result := callJSON(t, tool, `{"source_path":"book.md","workspace_path":"ws","split_pattern":"^## .*$"}`)
	if !result.IsError || result.Brief != "Nothing to split" {
		t.Fatalf("expected nothing-to-split failure, got %+v", result)
	}
}

func TestSplitToWorkspaceBadRegex(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "book.md")
	if err := os.WriteFile(src, []byte("# A\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tool := mustBuild(t, NewSplitToWorkspace, testDeps(dir))
	result := callJSON(t, tool, `{"source_path":"book.md","workspace_path":"ws","split_pattern":"["}`)
	if !result.IsError || result.Brief != "Regex error" {
		t.Fatalf("expected regex failure, got %+v", result)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"# Chapter One":   "Chapter-One",
		"  spaced  out  ": "spaced-out",
		"!!!":             "part",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIndexMakesSearchable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("The heron watched the river at dawn."), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	deps := testDeps(dir)
	if _, err := NewSearch(deps); !errors.Is(err, toolkit.ErrSkipTool) {
		t.Fatal("Search should skip before anything is indexed")
	}

	index := mustBuild(t, NewIndex, deps)
	result := callJSON(t, index, `{"path":"notes.txt"}`)
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	if !strings.Contains(result.Output, "1 chunk(s)") {
		t.Errorf("unexpected output: %q", result.Output)
	}

	search := mustBuild(t, NewSearch, deps)
	found := callJSON(t, search, `{"query":"heron"}`)
	if found.IsError || !strings.Contains(found.Output, "heron") {
		t.Fatalf("indexed content should be searchable, got %+v", found)
	}
}

func TestIndexChunksWithOverlap(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "long.txt")
	if err := os.WriteFile(src, []byte(strings.Repeat("a", 500)), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tool := mustBuild(t, NewIndex, testDeps(dir))
	result := callJSON(t, tool, fmt.Sprintf(`{"path":%q,"chunk_size":200,"chunk_overlap":50}`, src))
	if result.IsError {
		t.Fatalf("unexpected failure: %s", result.Output)
	}
	// 500 chars at step 150: windows start at 0, 150, and 300, where the
	// final window reaches the end.
	if !strings.Contains(result.Output, "3 chunk(s)") {
		t.Errorf("unexpected output: %q", result.Output)
	}
}

func TestIndexMissingPath(t *testing.T) {
	tool := mustBuild(t, NewIndex, testDeps(t.TempDir()))
	result := callJSON(t, tool, `{"path":"missing.txt"}`)
	if !result.IsError || result.Brief != "File not found" {
		t.Fatalf("expected file-not-found failure, got %+v", result)
	}
}

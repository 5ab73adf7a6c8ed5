package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/quillhq/quill/toolkit"
)

// SplitToWorkspaceInput are the parameters for the SplitToWorkspace tool.
type SplitToWorkspaceInput struct {
	SourcePath       string `json:"source_path" jsonschema_description:"Path to the large source file."`
	WorkspacePath    string `json:"workspace_path" jsonschema_description:"Directory to save the split files (e.g., 'workspaces/book_name')."`
	SplitPattern     string `json:"split_pattern" jsonschema_description:"Regex to identify chapter start."`
	FilenameTemplate string `json:"filename_template,omitempty" jsonschema_description:"Template for filenames. Variables: {index}, {title}."`
	ContentTemplate  string `json:"content_template,omitempty" jsonschema_description:"Template for file content. Variables: {title}, {body}."`
}

var splitSchema = toolkit.GenerateSchema[SplitToWorkspaceInput]()

// SplitToWorkspace splits a large source file into per-chapter files under
// a workspace directory. Relative paths resolve against the work dir. The
// workspace is recreated on every run.
type SplitToWorkspace struct {
	workDir string
}

// NewSplitToWorkspace builds the SplitToWorkspace tool.
func NewSplitToWorkspace(deps Deps) (toolkit.Tool, error) {
	return &SplitToWorkspace{workDir: deps.Runtime.Session.WorkDir}, nil
}

func (t *SplitToWorkspace) Name() string { return "SplitToWorkspace" }

func (t *SplitToWorkspace) Description() string {
	return "Split a large text file into chapter files in a workspace directory, using a regex that matches chapter headings."
}

func (t *SplitToWorkspace) Schema() map[string]any { return splitSchema }

func (t *SplitToWorkspace) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in SplitToWorkspaceInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	if in.FilenameTemplate == "" {
		in.FilenameTemplate = "{index:03d}_{title}.md"
	}
	if in.ContentTemplate == "" {
		in.ContentTemplate = "# {title}\n\n{body}"
	}

	sourcePath := t.resolve(in.SourcePath)
	workspacePath := t.resolve(in.WorkspacePath)

	info, err := os.Stat(sourcePath)
	if os.IsNotExist(err) {
		return toolkit.Fail(fmt.Sprintf("`%s` does not exist.", sourcePath), "File not found")
	}
	if err != nil {
		return toolkit.Fail(fmt.Sprintf("Failed to read source: %v", err), "Read error")
	}
	if info.IsDir() {
		return toolkit.Fail(fmt.Sprintf("`%s` is not a file.", sourcePath), "Invalid path")
	}

	pattern, err := regexp.Compile("(?m)" + in.SplitPattern)
	if err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid regex: %v", err), "Regex error")
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return toolkit.Fail(fmt.Sprintf("Failed to read source: %v", err), "Read error")
	}
	content := string(data)

	matches := pattern.FindAllStringIndex(content, -1)
	if len(matches) == 0 {
		return toolkit.Fail("No matches found for regex; nothing to split.", "Nothing to split")
	}

	if err := t.prepareWorkspace(workspacePath); err != nil {
		return toolkit.Fail(err.Error(), "Workspace error")
	}

	written := 0
	preface := strings.Trim(content[:matches[0][0]], "\n\r")
	if preface != "" {
		name := renderTemplate(in.FilenameTemplate, 0, "preface", "")
		if err := os.WriteFile(filepath.Join(workspacePath, name), []byte(preface), 0o644); err != nil {
			return toolkit.Fail(fmt.Sprintf("Failed to write %s: %v", name, err), "Write error")
		}
		written++
	}

	var titles []string
	for i, m := range matches {
		title := strings.TrimSpace(content[m[0]:m[1]])
		bodyEnd := len(content)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := content[m[1]:bodyEnd]
		titles = append(titles, title)

		name := renderTemplate(in.FilenameTemplate, i+1, slugify(title), "")
		fileContent := renderTemplate(in.ContentTemplate, i+1, title, body)
		if err := os.WriteFile(filepath.Join(workspacePath, name), []byte(fileContent), 0o644); err != nil {
			return toolkit.Fail(fmt.Sprintf("Failed to write %s: %v", name, err), "Write error")
		}
		written++
	}

	preview := titles
	if len(preview) > 5 {
		preview = preview[:5]
	}
	output := fmt.Sprintf("Split into %d file(s) at %s", written, workspacePath)
	return toolkit.Ok(output, fmt.Sprintf("Examples: %s", strings.Join(preview, ", ")))
}

func (t *SplitToWorkspace) resolve(raw string) string {
	if filepath.IsAbs(raw) {
		return raw
	}
	return filepath.Join(t.workDir, raw)
}

// prepareWorkspace recreates the workspace directory. The filesystem root
// is refused so a bad template never wipes the disk.
func (t *SplitToWorkspace) prepareWorkspace(path string) error {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to prepare workspace: %v", err)
	}
	if resolved == filepath.Dir(resolved) {
		return fmt.Errorf("refusing to use filesystem root as workspace")
	}
	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("failed to prepare workspace: %v", err)
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return fmt.Errorf("failed to prepare workspace: %v", err)
	}
	return nil
}

// renderTemplate substitutes the template variables. Unknown placeholders
// pass through unchanged.
func renderTemplate(tmpl string, index int, title, body string) string {
	r := strings.NewReplacer(
		"{index:03d}", fmt.Sprintf("%03d", index),
		"{index}", strconv.Itoa(index),
		"{title}", title,
		"{body}", body,
	)
	return r.Replace(tmpl)
}

// slugify reduces a heading to a filename-safe slug: letters and digits
// kept, whitespace and separators collapsed to single dashes, 48 runes max.
func slugify(text string) string {
	var sb strings.Builder
	for _, ch := range text {
		switch {
		case unicode.IsLetter(ch) || unicode.IsDigit(ch):
			sb.WriteRune(ch)
		case unicode.IsSpace(ch) || ch == '-' || ch == '_':
			sb.WriteRune('-')
		}
	}
	slug := regexp.MustCompile(`-+`).ReplaceAllString(sb.String(), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "part"
	}
	runes := []rune(slug)
	if len(runes) > 48 {
		slug = string(runes[:48])
	}
	return slug
}

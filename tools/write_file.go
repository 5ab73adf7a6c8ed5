package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quillhq/quill/toolkit"
)

// WriteFileInput are the parameters for the WriteFile tool.
type WriteFileInput struct {
	Path    string `json:"path" jsonschema_description:"Absolute path to the file to write"`
	Content string `json:"content" jsonschema_description:"Content to write (replaces existing content)"`
}

var writeFileSchema = toolkit.GenerateSchema[WriteFileInput]()

// WriteFile overwrites a file with new content, creating parent
// directories as needed.
type WriteFile struct{}

// NewWriteFile builds the WriteFile tool.
func NewWriteFile(deps Deps) (toolkit.Tool, error) {
	return &WriteFile{}, nil
}

func (t *WriteFile) Name() string { return "WriteFile" }

func (t *WriteFile) Description() string {
	return "Write text to a file (overwrite). Provide an absolute path. Use for saving drafts or notes."
}

func (t *WriteFile) Schema() map[string]any { return writeFileSchema }

func (t *WriteFile) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in WriteFileInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	if !filepath.IsAbs(in.Path) {
		return toolkit.Fail("Please provide an absolute path.", "Path must be absolute")
	}

	if err := os.MkdirAll(filepath.Dir(in.Path), 0o755); err != nil {
		return toolkit.Fail(fmt.Sprintf("Failed to write %s. Error: %v", in.Path, err), "Failed to write file")
	}
	if err := os.WriteFile(in.Path, []byte(in.Content), 0o644); err != nil {
		return toolkit.Fail(fmt.Sprintf("Failed to write %s. Error: %v", in.Path, err), "Failed to write file")
	}

	return toolkit.Ok(
		fmt.Sprintf("Wrote %d characters to %s", len(in.Content), in.Path),
		"Write succeeded")
}

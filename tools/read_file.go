package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quillhq/quill/toolkit"
)

const (
	maxReadLines = 1000
	maxReadBytes = 100 << 10 // 100KB
)

// ReadFileInput are the parameters for the ReadFile tool.
type ReadFileInput struct {
	Path       string `json:"path" jsonschema_description:"Absolute path to the file to read"`
	LineOffset int    `json:"line_offset,omitempty" jsonschema_description:"Line number to start reading from (1-based)"`
	NLines     int    `json:"n_lines,omitempty" jsonschema_description:"Number of lines to read"`
}

var readFileSchema = toolkit.GenerateSchema[ReadFileInput]()

// ReadFile reads a text file with line and byte caps, returning
// line-numbered output.
type ReadFile struct{}

// NewReadFile builds the ReadFile tool.
func NewReadFile(deps Deps) (toolkit.Tool, error) {
	return &ReadFile{}, nil
}

func (t *ReadFile) Name() string { return "ReadFile" }

func (t *ReadFile) Description() string {
	return fmt.Sprintf(
		"Read a text file with safe limits. Provide an absolute path. Max %d lines and %dKB per call.",
		maxReadLines, maxReadBytes/1024)
}

func (t *ReadFile) Schema() map[string]any { return readFileSchema }

func (t *ReadFile) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in ReadFileInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	if in.LineOffset < 1 {
		in.LineOffset = 1
	}
	if in.NLines < 1 || in.NLines > maxReadLines {
		in.NLines = maxReadLines
	}

	if !filepath.IsAbs(in.Path) {
		return toolkit.Fail("Please provide an absolute path.", "Path must be absolute")
	}
	info, err := os.Stat(in.Path)
	if os.IsNotExist(err) {
		return toolkit.Fail(fmt.Sprintf("`%s` does not exist.", in.Path), "File not found")
	}
	if err != nil {
		return toolkit.Fail(fmt.Sprintf("Failed to read %s. Error: %v", in.Path, err), "Failed to read file")
	}
	if info.IsDir() {
		return toolkit.Fail(fmt.Sprintf("`%s` is not a file.", in.Path), "Invalid path")
	}

	f, err := os.Open(in.Path)
	if err != nil {
		return toolkit.Fail(fmt.Sprintf("Failed to read %s. Error: %v", in.Path, err), "Failed to read file")
	}
	defer f.Close()

	var lines []string
	bytesRead := 0
	reader := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return toolkit.Fail(fmt.Sprintf("Failed to read %s. Error: %v", in.Path, err), "Failed to read file")
		}
		atEOF := err == io.EOF
		if line != "" && lineNo >= in.LineOffset {
			lines = append(lines, line)
			bytesRead += len(line)
			if len(lines) >= in.NLines || bytesRead >= maxReadBytes {
				break
			}
		}
		if atEOF {
			break
		}
	}

	if len(lines) == 0 {
		return toolkit.Ok("", "No lines read from file.")
	}

	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%6d\t%s", in.LineOffset+i, line)
	}
	summary := fmt.Sprintf("%d lines read from %s starting at line %d.", len(lines), in.Path, in.LineOffset)
	return toolkit.Ok(sb.String(), summary)
}

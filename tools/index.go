package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/quillhq/quill/toolkit"
)

// IndexInput are the parameters for the Index tool.
type IndexInput struct {
	Path         string `json:"path" jsonschema_description:"Path to a file or directory to index for retrieval."`
	ChunkSize    int    `json:"chunk_size,omitempty" jsonschema_description:"Chunk size in characters (default 1500, min 200)."`
	ChunkOverlap int    `json:"chunk_overlap,omitempty" jsonschema_description:"Chunk overlap in characters (default 200)."`
}

var indexSchema = toolkit.GenerateSchema[IndexInput]()

// Index chunks local text sources into the work dir's index directory so
// Search can retrieve them in later sessions.
type Index struct {
	workDir string
}

// NewIndex builds the Index tool.
func NewIndex(deps Deps) (toolkit.Tool, error) {
	return &Index{workDir: deps.Runtime.Session.WorkDir}, nil
}

func (t *Index) Name() string { return "Index" }

func (t *Index) Description() string {
	return "Index local text sources for retrieval with the Search tool."
}

func (t *Index) Schema() map[string]any { return indexSchema }

func (t *Index) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in IndexInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	if in.ChunkSize < 200 {
		in.ChunkSize = 1500
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		in.ChunkOverlap = 200
	}

	path := in.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(t.workDir, path)
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return toolkit.Fail(fmt.Sprintf("`%s` does not exist.", path), "File not found")
	}
	if err != nil {
		return toolkit.Fail(fmt.Sprintf("Failed to index %s. Error: %v", path, err), "Index error")
	}

	indexDir := filepath.Join(t.workDir, IndexDirName)
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return toolkit.Fail(fmt.Sprintf("Failed to create index directory: %v", err), "Index error")
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			files = append(files, p)
			return nil
		})
		if err != nil {
			return toolkit.Fail(fmt.Sprintf("Failed to index %s. Error: %v", path, err), "Index error")
		}
	} else {
		files = []string{path}
	}

	chunks := 0
	for _, file := range files {
		n, err := t.indexFile(file, indexDir, in.ChunkSize, in.ChunkOverlap)
		if err != nil {
			return toolkit.Fail(fmt.Sprintf("Failed to index %s. Error: %v", file, err), "Index error")
		}
		chunks += n
	}
	if chunks == 0 {
		return toolkit.Ok("Nothing to index.", "No content found")
	}

	output := fmt.Sprintf("Indexed %d file(s) into %d chunk(s) at %s (chunk_size=%d, chunk_overlap=%d).",
		len(files), chunks, indexDir, in.ChunkSize, in.ChunkOverlap)
	return toolkit.Ok(output, fmt.Sprintf("%d chunks indexed", chunks))
}

// indexFile writes one chunk file per window of the source. Chunk names
// embed the source base name so Search hits point back to their origin.
func (t *Index) indexFile(path, indexDir string, size, overlap int) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	step := size - overlap
	chunks := 0
	for start := 0; start < len(content); start += step {
		end := start + size
		if end > len(content) {
			end = len(content)
		}
		name := fmt.Sprintf("%s_%04d.txt", base, chunks)
		body := fmt.Sprintf("source: %s\n\n%s", path, content[start:end])
		if err := os.WriteFile(filepath.Join(indexDir, name), []byte(body), 0o644); err != nil {
			return 0, err
		}
		chunks++
		if end == len(content) {
			break
		}
	}
	return chunks, nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quillhq/quill/toolkit"
)

// IndexDirName is the per-work-dir directory Search reads indexed content
// from. The builder skips the tool when it does not exist.
const IndexDirName = ".quill-index"

// SearchInput are the parameters for the Search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema_description:"Query to search within indexed content."`
	TopK  int    `json:"top_k,omitempty" jsonschema_description:"Number of results to return (default 5, max 50)."`
}

var searchSchema = toolkit.GenerateSchema[SearchInput]()

// Search scans the work dir's index directory and returns the best-matching
// snippets for a query.
type Search struct {
	indexDir string
}

// NewSearch builds the Search tool, or skips it when the work dir has no
// index directory.
func NewSearch(deps Deps) (toolkit.Tool, error) {
	indexDir := filepath.Join(deps.Runtime.Session.WorkDir, IndexDirName)
	info, err := os.Stat(indexDir)
	if err != nil || !info.IsDir() {
		return nil, toolkit.ErrSkipTool
	}
	return &Search{indexDir: indexDir}, nil
}

func (t *Search) Name() string { return "Search" }

func (t *Search) Description() string {
	return "Search previously indexed content and return supporting snippets."
}

func (t *Search) Schema() map[string]any { return searchSchema }

type searchHit struct {
	file    string
	score   int
	snippet string
}

func (t *Search) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in SearchInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	if in.Query == "" {
		return toolkit.Fail("Query must not be empty.", "Invalid parameters")
	}
	if in.TopK < 1 {
		in.TopK = 5
	}
	if in.TopK > 50 {
		in.TopK = 50
	}

	terms := strings.Fields(strings.ToLower(in.Query))
	var hits []searchHit

	err := filepath.WalkDir(t.indexDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		lower := strings.ToLower(string(data))
		score := 0
		for _, term := range terms {
			score += strings.Count(lower, term)
		}
		if score > 0 {
			hits = append(hits, searchHit{
				file:    path,
				score:   score,
				snippet: snippetAround(string(data), lower, terms),
			})
		}
		return nil
	})
	if err != nil {
		return toolkit.Fail(fmt.Sprintf("Search failed: %v", err), "Search failed")
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > in.TopK {
		hits = hits[:in.TopK]
	}
	if len(hits) == 0 {
		return toolkit.Ok("No matches found.", fmt.Sprintf("No results for %q", in.Query))
	}

	var sb strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&sb, "%d. %s (score %d)\n%s\n\n", i+1, hit.file, hit.score, hit.snippet)
	}
	return toolkit.Ok(sb.String(), fmt.Sprintf("%d results for %q", len(hits), in.Query))
}

// snippetAround returns a short window of text around the first term match.
func snippetAround(content, lower string, terms []string) string {
	pos := -1
	for _, term := range terms {
		if i := strings.Index(lower, term); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}
	if pos < 0 {
		pos = 0
	}
	start := pos - 120
	if start < 0 {
		start = 0
	}
	end := pos + 120
	if end > len(content) {
		end = len(content)
	}
	return strings.TrimSpace(content[start:end])
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quillhq/quill/toolkit"
)

// SummarizeInput are the parameters for the Summarize tool.
type SummarizeInput struct {
	Section string   `json:"section" jsonschema_description:"Section or chapter name."`
	Sources []string `json:"sources,omitempty" jsonschema_description:"Optional supporting snippets or citations."`
}

var summarizeSchema = toolkit.GenerateSchema[SummarizeInput]()

// Summarize scaffolds a summary section, carrying any cited sources.
type Summarize struct{}

// NewSummarize builds the Summarize tool.
func NewSummarize(deps Deps) (toolkit.Tool, error) {
	return &Summarize{}, nil
}

func (t *Summarize) Name() string { return "Summarize" }

func (t *Summarize) Description() string {
	return "Summarize a section using provided context or retrieved chunks."
}

func (t *Summarize) Schema() map[string]any { return summarizeSchema }

func (t *Summarize) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in SummarizeInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Summary: %s\n\nDraft the summary here.", in.Section)
	if len(in.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, src := range in.Sources {
			fmt.Fprintf(&sb, "- %s\n", src)
		}
	}
	return toolkit.Ok(sb.String(), "Summary scaffolded")
}

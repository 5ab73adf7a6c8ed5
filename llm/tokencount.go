package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// CountTokens estimates the token count of text using the cl100k_base
// encoding, falling back to a bytes/4 heuristic if the encoding is
// unavailable (e.g. offline first run).
func CountTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return len(text) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// EstimateRequestTokens estimates the prompt size of a request. Used when a
// provider backend does not report usage.
func EstimateRequestTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		for _, part := range msg.Content {
			switch part.Kind {
			case ContentText:
				total += CountTokens(part.Text)
			case ContentToolResult:
				if part.ToolResult != nil {
					total += CountTokens(part.ToolResult.Content)
				}
			case ContentToolCall:
				if part.ToolCall != nil {
					total += CountTokens(string(part.ToolCall.Arguments))
				}
			}
		}
	}
	return total
}

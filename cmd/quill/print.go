package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quillhq/quill/llm"
)

const (
	formatText       = "text"
	formatStreamJSON = "stream-json"
)

// runPrint executes a single turn and writes the final assistant message,
// either rendered as markdown or as one JSON message per line.
func (a *App) runPrint(ctx context.Context, command, inputFormat, outputFormat string) error {
	userText := command
	if inputFormat == formatStreamJSON {
		var msg llm.Message
		if err := json.Unmarshal([]byte(command), &msg); err != nil {
			return fmt.Errorf("parse stream-json input: %w", err)
		}
		if msg.Role != llm.RoleUser {
			return fmt.Errorf("stream-json input must be a user message, got role %q", msg.Role)
		}
		userText = msg.TextContent()
		if userText == "" {
			return fmt.Errorf("stream-json input has no text content")
		}
	}

	result, err := a.core.Run(ctx, userText)
	if err != nil {
		return err
	}

	if outputFormat == formatStreamJSON {
		return json.NewEncoder(a.stdout).Encode(result.Response.Message)
	}
	a.render(result.Response.Message.TextContent())
	return nil
}

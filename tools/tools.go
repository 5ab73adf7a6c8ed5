// Package tools contains the built-in tool implementations and the static
// builder table the agent loader resolves tool names against.
package tools

import (
	"log/slog"

	"github.com/quillhq/quill/agentspec"
	"github.com/quillhq/quill/runtime"
	"github.com/quillhq/quill/toolkit"
)

// Deps carries everything a tool builder may need. Builders take the whole
// struct and pick what they use; an unresolvable dependency is a bug in the
// builder, not a runtime condition.
type Deps struct {
	Runtime *runtime.Runtime
	Spec    *agentspec.Resolved
	Logger  *slog.Logger
}

// Builder constructs one tool. Returning toolkit.ErrSkipTool opts the tool
// out of registration without failing the agent load.
type Builder func(deps Deps) (toolkit.Tool, error)

// Builtins returns the tool name to builder table. Agent specs reference
// tools by these names.
func Builtins() map[string]Builder {
	return map[string]Builder{
		"ReadFile":         NewReadFile,
		"ReadSample":       NewReadSample,
		"WriteFile":        NewWriteFile,
		"SplitToWorkspace": NewSplitToWorkspace,
		"Todo":             NewTodo,
		"Task":             NewTask,
		"Outline":          NewOutline,
		"Rewrite":          NewRewrite,
		"Summarize":        NewSummarize,
		"Search":           NewSearch,
		"Index":            NewIndex,
	}
}

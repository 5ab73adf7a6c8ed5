package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quillhq/quill/toolkit"
)

// TodoInput are the parameters for the Todo tool.
type TodoInput struct {
	Item   string `json:"item" jsonschema_description:"Progress note for internal tracking."`
	Status string `json:"status,omitempty" jsonschema_description:"Status: todo/in_progress/done"`
}

var todoSchema = toolkit.GenerateSchema[TodoInput]()

// Todo is an internal progress log the model uses to track long runs.
type Todo struct{}

// NewTodo builds the Todo tool.
func NewTodo(deps Deps) (toolkit.Tool, error) {
	return &Todo{}, nil
}

func (t *Todo) Name() string { return "Todo" }

func (t *Todo) Description() string {
	return "Internal progress log (not exposed to users). Use to track chapter/status during long runs."
}

func (t *Todo) Schema() map[string]any { return todoSchema }

func (t *Todo) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in TodoInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	if in.Status == "" {
		in.Status = "in_progress"
	}
	return toolkit.Ok(fmt.Sprintf("[todo: %s] %s", in.Status, in.Item), "")
}

// TaskInput are the parameters for the Task tool.
type TaskInput struct {
	Description string `json:"description" jsonschema_description:"Describe the sub-task to delegate."`
}

var taskSchema = toolkit.GenerateSchema[TaskInput]()

// Task delegates a sub-task to a helper agent. Delegation is recorded but
// not yet executed by a separate agent.
type Task struct{}

// NewTask builds the Task tool.
func NewTask(deps Deps) (toolkit.Tool, error) {
	return &Task{}, nil
}

func (t *Task) Name() string { return "Task" }

func (t *Task) Description() string {
	return "Delegate a sub-task to a helper agent. Use for decomposing work like extraction/synthesis."
}

func (t *Task) Schema() map[string]any { return taskSchema }

func (t *Task) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in TaskInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	return toolkit.Ok(fmt.Sprintf("Sub-agent task recorded: %s", in.Description), "Task delegated")
}

// OutlineInput are the parameters for the Outline tool.
type OutlineInput struct {
	Title string `json:"title" jsonschema_description:"Book or chapter title."`
	Focus string `json:"focus,omitempty" jsonschema_description:"Optional focus or audience."`
}

var outlineSchema = toolkit.GenerateSchema[OutlineInput]()

// Outline scaffolds an outline document for a book or section.
type Outline struct{}

// NewOutline builds the Outline tool.
func NewOutline(deps Deps) (toolkit.Tool, error) {
	return &Outline{}, nil
}

func (t *Outline) Name() string { return "Outline" }

func (t *Outline) Description() string {
	return "Generate an outline for the book/section."
}

func (t *Outline) Schema() map[string]any { return outlineSchema }

func (t *Outline) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in OutlineInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	heading := in.Title
	if in.Focus != "" {
		heading = fmt.Sprintf("%s (%s)", in.Title, in.Focus)
	}
	output := fmt.Sprintf("# Outline for %s\n\n- Introduction\n- Main sections\n- Conclusion\n", heading)
	return toolkit.Ok(output, "Outline drafted")
}

// RewriteInput are the parameters for the Rewrite tool.
type RewriteInput struct {
	Draft string `json:"draft" jsonschema_description:"Existing draft or notes to refine."`
	Style string `json:"style,omitempty" jsonschema_description:"Optional target style or audience."`
}

var rewriteSchema = toolkit.GenerateSchema[RewriteInput]()

// Rewrite reshapes a draft into a polished excerpt.
type Rewrite struct{}

// NewRewrite builds the Rewrite tool.
func NewRewrite(deps Deps) (toolkit.Tool, error) {
	return &Rewrite{}, nil
}

func (t *Rewrite) Name() string { return "Rewrite" }

func (t *Rewrite) Description() string {
	return "Rewrite or synthesize a draft into a polished excerpt with citations."
}

func (t *Rewrite) Schema() map[string]any { return rewriteSchema }

func (t *Rewrite) Call(ctx context.Context, args json.RawMessage) toolkit.Result {
	var in RewriteInput
	if err := json.Unmarshal(args, &in); err != nil {
		return toolkit.Fail(fmt.Sprintf("Invalid parameters: %v", err), "Invalid parameters")
	}
	header := "### Rewritten Draft"
	if in.Style != "" {
		header += fmt.Sprintf(" (%s)", in.Style)
	}
	return toolkit.Ok(fmt.Sprintf("%s\n\n%s", header, in.Draft), "Draft rewritten")
}

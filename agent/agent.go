// Package agent turns a resolved agent spec into a runnable Agent: the
// substituted system prompt plus a frozen tool dispatcher.
package agent

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/quillhq/quill/agentspec"
	"github.com/quillhq/quill/runtime"
	"github.com/quillhq/quill/toolkit"
	"github.com/quillhq/quill/tools"
)

// Agent is a loaded agent: name, substituted system prompt, and the tool
// dispatcher built from the spec's tool list.
type Agent struct {
	Name         string
	SystemPrompt string
	Dispatcher   *toolkit.Dispatcher
	Spec         *agentspec.Resolved
}

// Load reads the agent spec, substitutes the system prompt, and builds the
// tool dispatcher from the static builder table. Unknown tool names fail
// the load; builders returning toolkit.ErrSkipTool are logged and omitted.
func Load(agentFile, defaultAgentFile string, rt *runtime.Runtime) (*Agent, error) {
	rt.Logger.Info("loading agent", "file", agentFile)
	spec, err := agentspec.Load(agentFile, defaultAgentFile)
	if err != nil {
		return nil, err
	}

	systemPrompt, err := loadSystemPrompt(spec, rt)
	if err != nil {
		return nil, err
	}

	dispatcher, err := buildDispatcher(spec, rt)
	if err != nil {
		return nil, err
	}
	rt.Logger.Info("loaded agent", "name", spec.Name, "tools", dispatcher.Names())

	return &Agent{
		Name:         spec.Name,
		SystemPrompt: systemPrompt,
		Dispatcher:   dispatcher,
		Spec:         spec,
	}, nil
}

// loadSystemPrompt reads the prompt template and substitutes ${VAR}
// references from the built-in args and the spec's own args. Spec args win
// on conflict; an unresolved variable fails the load.
func loadSystemPrompt(spec *agentspec.Resolved, rt *runtime.Runtime) (string, error) {
	data, err := os.ReadFile(spec.SystemPromptPath)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}

	vars := rt.PromptArgs.Map()
	for k, v := range spec.SystemPromptArgs {
		vars[k] = v
	}

	var missing []string
	prompt := os.Expand(strings.TrimSpace(string(data)), func(name string) string {
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("system prompt references undefined variables: %s", strings.Join(missing, ", "))
	}
	return prompt, nil
}

// buildDispatcher resolves the spec's tool names against the builder table.
func buildDispatcher(spec *agentspec.Resolved, rt *runtime.Runtime) (*toolkit.Dispatcher, error) {
	excluded := make(map[string]bool, len(spec.ExcludeTools))
	for _, name := range spec.ExcludeTools {
		excluded[name] = true
	}

	builders := tools.Builtins()
	deps := tools.Deps{Runtime: rt, Spec: spec, Logger: rt.Logger}

	var built []toolkit.Tool
	var badTools []string
	for _, name := range spec.Tools {
		if excluded[name] {
			rt.Logger.Debug("excluding tool", "tool", name)
			continue
		}
		builder, ok := builders[name]
		if !ok {
			badTools = append(badTools, name)
			continue
		}
		tool, err := builder(deps)
		if errors.Is(err, toolkit.ErrSkipTool) {
			rt.Logger.Info("skipping tool", "tool", name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("build tool %s: %w", name, err)
		}
		built = append(built, tool)
	}
	if len(badTools) > 0 {
		return nil, fmt.Errorf("invalid tools: %s", strings.Join(badTools, ", "))
	}

	return toolkit.NewDispatcher(built)
}

// Package agentspec loads and resolves agent definition files: YAML
// documents naming a system prompt, a tool list, and optional subagents,
// with single-parent extension.
package agentspec

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultAgentName is the extend target that resolves to the installed
// default agent instead of a relative path.
const DefaultAgentName = "default"

// SubagentSpec points at a delegatable agent file.
type SubagentSpec struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
}

// spec is the raw agent block as written in the file. Nil slices and maps
// mean "not specified", which matters for extension merging.
type spec struct {
	Extend           string                  `yaml:"extend"`
	Name             string                  `yaml:"name"`
	SystemPromptPath string                  `yaml:"system_prompt_path"`
	SystemPromptArgs map[string]string       `yaml:"system_prompt_args"`
	Tools            []string                `yaml:"tools"`
	ExcludeTools     []string                `yaml:"exclude_tools"`
	Subagents        map[string]SubagentSpec `yaml:"subagents"`
}

type document struct {
	Version int  `yaml:"version"`
	Agent   spec `yaml:"agent"`
}

// Resolved is a fully resolved agent spec: extension applied, required
// fields present, paths absolute.
type Resolved struct {
	Name             string
	SystemPromptPath string
	SystemPromptArgs map[string]string
	Tools            []string
	ExcludeTools     []string
	Subagents        map[string]SubagentSpec
}

// Load reads and resolves the agent spec at agentFile. defaultAgentFile is
// the path "extend: default" resolves to.
func Load(agentFile, defaultAgentFile string) (*Resolved, error) {
	raw, err := load(agentFile, defaultAgentFile, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("agent spec %s: agent name is required", agentFile)
	}
	if raw.SystemPromptPath == "" {
		return nil, fmt.Errorf("agent spec %s: system prompt path is required", agentFile)
	}
	if raw.Tools == nil {
		return nil, fmt.Errorf("agent spec %s: tools are required", agentFile)
	}

	resolved := &Resolved{
		Name:             raw.Name,
		SystemPromptPath: raw.SystemPromptPath,
		SystemPromptArgs: raw.SystemPromptArgs,
		Tools:            raw.Tools,
		ExcludeTools:     raw.ExcludeTools,
		Subagents:        raw.Subagents,
	}
	if resolved.SystemPromptArgs == nil {
		resolved.SystemPromptArgs = map[string]string{}
	}
	if resolved.Subagents == nil {
		resolved.Subagents = map[string]SubagentSpec{}
	}
	return resolved, nil
}

func load(agentFile, defaultAgentFile string, seen map[string]bool) (*spec, error) {
	key := agentFile
	if abs, err := filepath.Abs(agentFile); err == nil {
		key = abs
	}
	if seen[key] {
		return nil, fmt.Errorf("agent spec %s: extend cycle detected", agentFile)
	}
	seen[key] = true

	info, err := os.Stat(agentFile)
	if err != nil {
		return nil, fmt.Errorf("agent spec file not found: %s", agentFile)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("agent spec path is not a file: %s", agentFile)
	}

	data, err := os.ReadFile(agentFile)
	if err != nil {
		return nil, fmt.Errorf("read agent spec: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML in agent spec file %s: %w", agentFile, err)
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if doc.Version != 1 {
		return nil, fmt.Errorf("unsupported agent spec version: %d", doc.Version)
	}

	current := doc.Agent
	baseDir := filepath.Dir(agentFile)
	if current.SystemPromptPath != "" && !filepath.IsAbs(current.SystemPromptPath) {
		current.SystemPromptPath = filepath.Join(baseDir, current.SystemPromptPath)
	}
	for name, sub := range current.Subagents {
		if !filepath.IsAbs(sub.Path) {
			sub.Path = filepath.Join(baseDir, sub.Path)
			current.Subagents[name] = sub
		}
	}

	if current.Extend == "" {
		return &current, nil
	}

	baseFile := defaultAgentFile
	if current.Extend != DefaultAgentName {
		baseFile = current.Extend
		if !filepath.IsAbs(baseFile) {
			baseFile = filepath.Join(baseDir, baseFile)
		}
	}
	base, err := load(baseFile, defaultAgentFile, seen)
	if err != nil {
		return nil, err
	}
	return merge(base, &current), nil
}

// merge overlays child onto base. Specified child fields replace the
// base's; prompt args merge key by key.
func merge(base, child *spec) *spec {
	out := *base
	out.Extend = ""
	if child.Name != "" {
		out.Name = child.Name
	}
	if child.SystemPromptPath != "" {
		out.SystemPromptPath = child.SystemPromptPath
	}
	if len(child.SystemPromptArgs) > 0 {
		if out.SystemPromptArgs == nil {
			out.SystemPromptArgs = map[string]string{}
		}
		for k, v := range child.SystemPromptArgs {
			out.SystemPromptArgs[k] = v
		}
	}
	if child.Tools != nil {
		out.Tools = child.Tools
	}
	if child.ExcludeTools != nil {
		out.ExcludeTools = child.ExcludeTools
	}
	if child.Subagents != nil {
		out.Subagents = child.Subagents
	}
	return &out
}

// Package runtime assembles the per-process environment the agent runs in:
// the completion client, model limits, loop control, and the built-in
// system prompt arguments derived from the working directory.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/quillhq/quill/config"
	"github.com/quillhq/quill/llm"
	"github.com/quillhq/quill/session"
)

// PromptArgs are the built-in system prompt arguments available to agent
// prompt templates.
type PromptArgs struct {
	Now       string
	WorkDir   string
	WorkDirLS string
	AgentsMD  string
}

// Map returns the args keyed by their template variable names.
func (a PromptArgs) Map() map[string]string {
	return map[string]string{
		"QUILL_NOW":         a.Now,
		"QUILL_WORK_DIR":    a.WorkDir,
		"QUILL_WORK_DIR_LS": a.WorkDirLS,
		"QUILL_AGENTS_MD":   a.AgentsMD,
	}
}

// LLM bundles the configured completion client with the active model's
// identity and limits. A nil LLM means no endpoint is configured; the run
// loop refuses to start in that state.
type LLM struct {
	Client         *llm.Client
	Model          string
	Provider       string
	MaxContextSize int
}

// Runtime is the assembled per-process environment.
type Runtime struct {
	Config     *config.Config
	LLM        *LLM
	Session    *session.Session
	PromptArgs PromptArgs
	Logger     *slog.Logger
}

// New gathers the working-directory facts concurrently and assembles the
// Runtime. The endpoint client is passed in, already configured; the
// runtime never touches credentials itself.
func New(ctx context.Context, cfg *config.Config, endpoint *LLM, sess *session.Session, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		wg       sync.WaitGroup
		lsOutput string
		agentsMD string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		lsOutput = listWorkDir(ctx, sess.WorkDir)
	}()
	go func() {
		defer wg.Done()
		agentsMD = loadAgentsMD(sess.WorkDir, logger)
	}()
	wg.Wait()

	return &Runtime{
		Config:  cfg,
		LLM:     endpoint,
		Session: sess,
		PromptArgs: PromptArgs{
			Now:       time.Now().Format(time.RFC3339),
			WorkDir:   sess.WorkDir,
			WorkDirLS: lsOutput,
			AgentsMD:  agentsMD,
		},
		Logger: logger,
	}, nil
}

// Configured reports whether a completion endpoint is available.
func (r *Runtime) Configured() bool {
	return r.LLM != nil && r.LLM.Client != nil
}

// listWorkDir captures a directory listing for the system prompt.
func listWorkDir(ctx context.Context, workDir string) string {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/c", "dir", workDir)
	} else {
		cmd = exec.CommandContext(ctx, "ls", "-la", workDir)
	}
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// loadAgentsMD reads AGENTS.md (or agents.md) from the working directory.
func loadAgentsMD(workDir string, logger *slog.Logger) string {
	for _, name := range []string{"AGENTS.md", "agents.md"} {
		path := filepath.Join(workDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		logger.Info("loaded agents instructions", "path", path)
		return strings.TrimSpace(string(data))
	}
	return ""
}

// BuildClient constructs the LLM bundle for the active model, or nil when
// the configuration names no usable model. Model context size falls back
// to the catalog when the config omits it.
func BuildClient(cfg *config.Config, modelName string, logger *slog.Logger) (*LLM, error) {
	name := modelName
	if name == "" {
		name = cfg.DefaultModel
	}
	if name == "" {
		return nil, nil
	}
	model, ok := cfg.Models[name]
	if !ok {
		return nil, fmt.Errorf("model %q not found in config", name)
	}
	provider, ok := cfg.Providers[model.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %q not found in config", model.Provider)
	}
	if provider.BaseURL == "" && provider.APIKey == "" {
		return nil, nil
	}
	if model.Model == "" {
		return nil, nil
	}

	adapter, err := llm.NewGollmAdapter(provider.Type, provider.APIKey,
		llm.WithModel(model.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("configure provider %q: %w", model.Provider, err)
	}

	maxContext := model.MaxContextSize
	if maxContext <= 0 {
		if info := llm.GetModelInfo(model.Model); info != nil {
			maxContext = info.ContextWindow
		}
	}

	logger.Info("using model", "model", model.Model, "provider", provider.Type, "max_context_size", maxContext)
	return &LLM{
		Client: llm.NewClient(
			llm.WithProvider(provider.Type, adapter),
			llm.WithDefaultProvider(provider.Type),
		),
		Model:          model.Model,
		Provider:       provider.Type,
		MaxContextSize: maxContext,
	}, nil
}

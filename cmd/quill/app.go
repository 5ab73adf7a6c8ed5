package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"

	"github.com/quillhq/quill/agent"
	"github.com/quillhq/quill/config"
	"github.com/quillhq/quill/core"
	"github.com/quillhq/quill/llm"
	"github.com/quillhq/quill/runtime"
	"github.com/quillhq/quill/session"
)

// App holds everything a single quill invocation needs once setup is done.
type App struct {
	cfg      *config.Config
	rt       *runtime.Runtime
	agent    *agent.Agent
	core     *core.Core
	convo    *core.Context
	shareDir string
	thinking bool
	emitter  *core.EventEmitter
	renderer *glamour.TermRenderer
	stdout   io.Writer
}

func run(ctx context.Context, cmd *cli.Command) error {
	printMode := cmd.Bool("print")
	command := cmd.String("command")
	inputFormat := cmd.String("input-format")
	outputFormat := cmd.String("output-format")

	if printMode && command == "" {
		return fmt.Errorf("--print requires --command")
	}
	if !printMode && (inputFormat != "" || outputFormat != "") {
		return fmt.Errorf("--input-format and --output-format require --print")
	}
	switch inputFormat {
	case "", formatText, formatStreamJSON:
	default:
		return fmt.Errorf("unknown input format %q", inputFormat)
	}
	switch outputFormat {
	case "", formatText, formatStreamJSON:
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}

	app, err := setup(ctx, cmd)
	if err != nil {
		return err
	}

	if printMode {
		err = app.runPrint(ctx, command, inputFormat, outputFormat)
	} else {
		err = app.runChat(ctx, command, cmd.Bool("verbose"))
	}
	if app.emitter != nil {
		app.emitter.Close()
	}
	if err != nil {
		return err
	}

	// Only record the session as resumable once a run finished cleanly.
	return app.rememberSession()
}

func setup(ctx context.Context, cmd *cli.Command) (*App, error) {
	shareDir, err := config.ShareDir()
	if err != nil {
		return nil, err
	}

	logger, err := openLogger(shareDir, cmd.Bool("debug"))
	if err != nil {
		return nil, err
	}

	workDir := cmd.String("work-dir")
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	if info, err := os.Stat(workDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("working directory %s does not exist", workDir)
	}

	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}

	var sess *session.Session
	if cmd.Bool("continue") {
		sess, err = session.Continue(shareDir, workDir)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			return nil, fmt.Errorf("no previous session found for %s", workDir)
		}
	} else {
		sess, err = session.Create(shareDir, workDir)
		if err != nil {
			return nil, err
		}
	}

	thinking := cmd.Bool("thinking")
	if !cmd.IsSet("thinking") {
		if meta, err := session.LoadMetadata(shareDir); err == nil {
			thinking = meta.Thinking
		}
	}

	endpoint, err := runtime.BuildClient(cfg, cmd.String("model"), logger)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.New(ctx, cfg, endpoint, sess, logger)
	if err != nil {
		return nil, err
	}

	defaultAgentFile, err := agent.EnsureDefaultAgent(shareDir)
	if err != nil {
		return nil, err
	}
	agentFile := cmd.String("agent-file")
	if agentFile == "" {
		agentFile = defaultAgentFile
	}
	ag, err := agent.Load(agentFile, defaultAgentFile, rt)
	if err != nil {
		return nil, err
	}

	convo := core.NewContext(session.NewHistoryStore(sess.HistoryFile))
	if err := convo.Restore(); err != nil {
		return nil, fmt.Errorf("restore session history: %w", err)
	}

	opts := core.Options{
		SystemPrompt: ag.SystemPrompt,
		MaxSteps:     cfg.LoopControl.MaxStepsPerRun,
		Logger:       logger,
	}
	var emitter *core.EventEmitter
	if cmd.Bool("verbose") {
		emitter = core.NewEventEmitter(sess.ID, 0)
		go printProgress(emitter.Events())
		opts.Emitter = emitter
	}
	opts.Retry = llm.DefaultRetryPolicy()
	opts.Retry.MaxAttempts = cfg.LoopControl.MaxRetriesPerStep

	var ep core.Endpoint
	if endpoint != nil {
		ep = endpoint.Client
		opts.Model = endpoint.Model
		opts.Provider = endpoint.Provider
		opts.MaxContextSize = endpoint.MaxContextSize
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	return &App{
		cfg:      cfg,
		emitter:  emitter,
		rt:       rt,
		agent:    ag,
		core:     core.New(ep, convo, ag.Dispatcher, opts),
		convo:    convo,
		shareDir: shareDir,
		thinking: thinking,
		renderer: renderer,
		stdout:   os.Stdout,
	}, nil
}

func (a *App) rememberSession() error {
	meta, err := session.LoadMetadata(a.shareDir)
	if err != nil {
		return err
	}
	meta.SetLastSession(a.rt.Session.WorkDir, a.rt.Session.ID)
	meta.Thinking = a.thinking
	return session.SaveMetadata(a.shareDir, meta)
}

// render prints markdown through glamour, falling back to the raw text
// when rendering fails.
func (a *App) render(text string) {
	out, err := a.renderer.Render(text)
	if err != nil {
		fmt.Fprintln(a.stdout, text)
		return
	}
	fmt.Fprint(a.stdout, out)
}

// printProgress writes run-loop progress to stderr so it never mixes
// with rendered output on stdout.
func printProgress(events <-chan core.RunEvent) {
	for ev := range events {
		switch ev.Kind {
		case core.EventToolCallStart:
			fmt.Fprintf(os.Stderr, "* running %v\n", ev.Data["tool"])
		case core.EventRetry:
			fmt.Fprintf(os.Stderr, "* retrying (attempt %v): %v\n", ev.Data["attempt"], ev.Data["error"])
		case core.EventStepLimit:
			fmt.Fprintf(os.Stderr, "* step limit reached after %v steps\n", ev.Data["steps"])
		}
	}
}

func openLogger(shareDir string, debug bool) (*slog.Logger, error) {
	logDir := filepath.Join(shareDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "quill.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), nil
}

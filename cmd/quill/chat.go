package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/quillhq/quill/core"
)

// metaCommand is one slash command in the chat loop. run returns true
// when the loop should exit.
type metaCommand struct {
	name        string
	aliases     []string
	description string
	run         func(a *App, args []string) bool
}

// The help command walks the table, so the table is filled in init to
// avoid an initialization cycle.
var metaCommands []metaCommand

func init() {
	metaCommands = []metaCommand{
		{
			name:        "help",
			aliases:     []string{"h", "?"},
			description: "Show available commands",
			run:         runHelp,
		},
		{
			name:        "status",
			description: "Show session and context status",
			run:         runStatus,
		},
		{
			name:        "tools",
			description: "List the loaded tools",
			run:         runTools,
		},
		{
			name:        "quit",
			aliases:     []string{"exit"},
			description: "End the session",
			run:         func(_ *App, _ []string) bool { return true },
		},
	}
}

func runHelp(a *App, _ []string) bool {
	fmt.Fprintln(a.stdout, "Commands:")
	for _, mc := range metaCommands {
		name := "/" + mc.name
		if len(mc.aliases) > 0 {
			name += " (/" + strings.Join(mc.aliases, ", /") + ")"
		}
		fmt.Fprintf(a.stdout, "  %-24s %s\n", name, mc.description)
	}
	return false
}

func runStatus(a *App, _ []string) bool {
	st := a.core.Status()
	fmt.Fprintf(a.stdout, "Directory:     %s\n", a.rt.Session.WorkDir)
	fmt.Fprintf(a.stdout, "Session:       %s\n", a.rt.Session.ID)
	fmt.Fprintf(a.stdout, "Messages:      %d\n", a.convo.Len())
	fmt.Fprintf(a.stdout, "Context usage: %.1f%%\n", st.ContextUsage*100)
	return false
}

func runTools(a *App, _ []string) bool {
	for _, name := range a.agent.Dispatcher.Names() {
		fmt.Fprintf(a.stdout, "  %s\n", name)
	}
	return false
}

func findMetaCommand(name string) *metaCommand {
	for i := range metaCommands {
		mc := &metaCommands[i]
		if mc.name == name {
			return mc
		}
		for _, alias := range mc.aliases {
			if alias == name {
				return mc
			}
		}
	}
	return nil
}

var exitWords = map[string]bool{"exit": true, "quit": true}

// runChat runs the interactive loop. An optional initial command is
// executed before the first prompt.
func (a *App) runChat(ctx context.Context, initial string, verbose bool) error {
	if verbose {
		fmt.Fprintf(a.stdout, "Directory: %s\n", a.rt.Session.WorkDir)
		fmt.Fprintf(a.stdout, "Session:   %s\n", a.rt.Session.ID)
	}
	fmt.Fprintf(a.stdout, "quill %s. Type /help for commands, /quit to leave.\n", version)

	if initial != "" {
		if err := a.turn(ctx, initial); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(a.stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitWords[line] {
			return nil
		}
		if strings.HasPrefix(line, "/") {
			if a.handleMeta(line) {
				return nil
			}
			continue
		}
		if err := a.turn(ctx, line); err != nil {
			return err
		}
	}
}

// handleMeta dispatches one slash command; unknown names print a hint
// instead of failing the loop.
func (a *App) handleMeta(line string) bool {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return false
	}
	mc := findMetaCommand(strings.ToLower(fields[0]))
	if mc == nil {
		fmt.Fprintf(a.stdout, "Unknown command %q. Type /help for a list.\n", fields[0])
		return false
	}
	return mc.run(a, fields[1:])
}

// turn runs one user turn and prints the result. Run-level failures are
// reported inline so the loop keeps going; only cancellation ends it.
func (a *App) turn(ctx context.Context, text string) error {
	result, err := a.core.Run(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		var stepErr *core.MaxStepsError
		if errors.As(err, &stepErr) {
			fmt.Fprintf(a.stdout, "Stopped after %d steps without a final answer.\n", stepErr.Steps)
			return nil
		}
		fmt.Fprintf(a.stdout, "Error: %v\n", err)
		return nil
	}
	a.render(result.Response.Message.TextContent())
	return nil
}

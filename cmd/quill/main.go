// Command quill is a tool-augmented writing agent for the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	// A missing .env file is fine; explicit environment always wins.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "quill",
		Usage:   "a writing agent that works inside your project directory",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print setup details"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.StringFlag{Name: "agent-file", Usage: "Agent definition file (YAML)"},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "Model name from config to use"},
			&cli.StringFlag{Name: "work-dir", Aliases: []string{"w"}, Usage: "Working directory (default: current)"},
			&cli.BoolFlag{Name: "continue", Aliases: []string{"c"}, Usage: "Continue the previous session for the working directory"},
			&cli.StringFlag{Name: "command", Usage: "Run this command instead of reading interactively"},
			&cli.BoolFlag{Name: "print", Aliases: []string{"p"}, Usage: "Run one turn and print the result (requires --command)"},
			&cli.StringFlag{Name: "input-format", Usage: "Input format for --print: text or stream-json"},
			&cli.StringFlag{Name: "output-format", Usage: "Output format for --print: text or stream-json"},
			&cli.BoolFlag{Name: "thinking", Usage: "Enable thinking mode if supported"},
		},
		Action: run,
	}
}

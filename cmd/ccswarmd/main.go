// Command ccswarmd is the daemon and CLI front-end for a swarm of
// PTY-backed coding-agent sessions.
//
// Usage:
//
//	ccswarmd serve --config ccswarmd.yaml
//	ccswarmd task "add input validation to the signup form" --priority high
//	ccswarmd validate ccswarmd.yaml
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve       ServeCmd       `cmd:"" help:"Start the daemon: session manager, auto-accept gate, IPC server."`
	Task        TaskCmd        `cmd:"" help:"Classify and run a single task through the delegation router and orchestrator."`
	Checkpoints CheckpointsCmd `cmd:"" help:"List or inspect checkpoints recorded for a session."`
	Validate    ValidateCmd    `cmd:"" help:"Validate a configuration file."`
	Version     VersionCmd     `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or custom)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("ccswarmd version %s\n", version)
	return nil
}

func main() {
	// A .env file next to the working directory is optional; missing
	// files are not an error.
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("ccswarmd"),
		kong.Description("ccswarmd - PTY session swarm daemon"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}

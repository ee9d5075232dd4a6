// Package main is the entry point for the hintprefs command, which edits the
// per-language exclusion lists for inline parameter-name hints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/hintprefs/internal/app"
	"github.com/dshills/hintprefs/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	envFile    string
	backend    string
	path       string
	logLevel   string
	version    bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hintprefs", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before HINTPREFS_* variables")
	fs.StringVar(&opts.backend, "backend", "", "Storage backend (toml, yaml, memory, postgres, s3)")
	fs.StringVar(&opts.path, "path", "", "Storage file for the toml and yaml backends")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.version, "version", false, "Show version information")
	fs.BoolVar(&opts.version, "v", false, "Show version information (shorthand)")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "hintprefs %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := lookupCommand(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", rest[0])
		fs.Usage()
		return 2
	}
	if err := cmd.checkArgs(rest[1:]); err != nil {
		fmt.Fprintf(stderr, "Error: %v\nUsage: hintprefs %s\n", err, cmd.usage)
		return 2
	}

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	enableWatch(cfg, cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, app.Options{Config: cfg, LogOutput: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	runErr := cmd.run(ctx, &env{app: application, stdin: stdin, stdout: stdout}, rest[1:])
	shutdownErr := application.Shutdown(context.WithoutCancel(ctx))

	if err := errors.Join(runErr, shutdownErr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// enableWatch turns reloading on for commands that report external changes.
// A configuration that already enables it is left alone.
func enableWatch(cfg *config.Config, cmd command) {
	if cmd.watch {
		cfg.Watch.Enabled = true
	}
}

// loadConfig loads the configuration and applies the flags that were set.
func loadConfig(fs *flag.FlagSet, opts options) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:     opts.configPath,
		EnvFiles: []string{opts.envFile},
	})
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Storage.Backend = opts.backend
		case "path":
			cfg.Storage.Path = opts.path
		case "log-level":
			cfg.Logging.Level = opts.logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "hintprefs - manage parameter hint exclusion lists\n\n")
	fmt.Fprintf(w, "Usage: hintprefs [options] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-34s %s\n", c.usage, c.summary)
	}
	fmt.Fprintf(w, "\nOptions:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  hintprefs show java                       Print the effective Java list\n")
	fmt.Fprintf(w, "  hintprefs add kotlin 'com.acme.*'         Exclude every com.acme call\n")
	fmt.Fprintf(w, "  hintprefs set java < java.txt             Replace the Java list\n")
	fmt.Fprintf(w, "  hintprefs check java 'a.Map.get(key)'     Explain whether hints show\n")
	fmt.Fprintf(w, "  hintprefs options java java.show.for.non.literals=true\n")
	fmt.Fprintf(w, "                                            Turn a Java hint option on\n")
}

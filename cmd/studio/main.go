// Agent Studio - CloudOps agent test console
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ashureev/agent-studio/internal/apiclient"
	"github.com/ashureev/agent-studio/internal/config"
	"github.com/ashureev/agent-studio/internal/convlog"
	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/session"
	"github.com/ashureev/agent-studio/internal/store"
	"github.com/ashureev/agent-studio/internal/studio"
)

// command is one studio subcommand.
type command struct {
	summary string
	// interactive commands keep logs off the terminal unless --log-file is set.
	interactive bool
	run         func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"serve":      {summary: "run the local console API and event stream", run: runServe},
	"chat":       {summary: "open the interactive chat console", interactive: true, run: runChat},
	"accounts":   {summary: "list connected AWS accounts", run: runAccounts},
	"ingest":     {summary: "snapshot an account's resources", run: runIngest},
	"agents":     {summary: "manage custom agents (list|get|apply|publish|versions|memory)", run: runAgents},
	"tools":      {summary: "list the tool catalog", run: runTools},
	"train":      {summary: "launch or list training jobs (start|list)", run: runTrain},
	"feedback":   {summary: "save a feedback example for a custom agent", run: runFeedback},
	"billing":    {summary: "billing pass-through (status|checkout)", run: runBilling},
	"blueprints": {summary: "show the preset agents", run: runBlueprints},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var logFile, accountID string

	flagSet := pflag.NewFlagSet("studio", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&logFile, "log-file", "", "append JSON log records to this file")
	flagSet.StringVarP(&accountID, "account", "a", "", "AWS account under test (overrides STUDIO_DEFAULT_ACCOUNT)")
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(flagSet)
		return errors.New("missing command")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		printUsage(flagSet)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if accountID != "" {
		cfg.DefaultAccountID = accountID
	}

	logger, closeLog, err := newLogger(cfg.LogLevel, logFile, cmd.interactive)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)
	if envErr != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := cmd.run(ctx, a, rest[1:]); err != nil && !errors.Is(err, errHelpShown) {
		return err
	}
	return nil
}

func printUsage(flagSet *pflag.FlagSet) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "Usage: studio [flags] <command> [args]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-11s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprint(os.Stderr, flagSet.FlagUsages())
}

func newLogger(level, logFile string, interactive bool) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid STUDIO_LOG_LEVEL %q: %w", level, err)
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	case interactive:
		out = io.Discard
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})), closeFn, nil
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *apiclient.Client
	studio  *studio.Studio
	out     io.Writer
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, out: os.Stdout}

	repo, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open thread store: %w", err)
	}
	a.closers = append(a.closers, func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Error("Failed to close repository", "error", closeErr)
		}
	})
	if err := repo.Ping(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("thread store health check: %w", err)
	}

	threads := session.NewStore(repo, logger)
	threads.Load(ctx)

	convLogger, err := convlog.New(convlog.Config(cfg.ConversationLog), logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize conversation logger: %w", err)
	}
	a.closers = append(a.closers, func() {
		if closeErr := convLogger.Close(); closeErr != nil {
			logger.Warn("Failed to close conversation logger", "error", closeErr)
		}
	})

	a.client = apiclient.New(apiclient.ClientConfig{BaseURL: cfg.APIURL, Logger: logger})
	a.studio = studio.New(studio.Options{
		Backend:         a.client,
		Threads:         threads,
		ConversationLog: convLogger,
		Logger:          logger,
		DefaultBackend:  domain.Backend(cfg.Backend),
		AccountID:       cfg.DefaultAccountID,
		PollInterval:    cfg.TrainingPollInterval,
	})
	a.closers = append(a.closers, a.studio.Close)

	logger.Debug("Studio initialized", "api_url", cfg.APIURL, "thread_store", cfg.ThreadStore)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) println(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

// newFlagSet builds the flag set of a subcommand.
func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet("studio "+name, pflag.ContinueOnError)
}

// parseFlags parses args and returns the positional arguments. Help is
// reported as errHelpShown so callers exit cleanly.
func parseFlags(fs *pflag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, errHelpShown
		}
		return nil, err
	}
	return fs.Args(), nil
}

var errHelpShown = errors.New("help shown")

func usageError(usage string) error {
	return fmt.Errorf("usage: studio %s", strings.TrimSpace(usage))
}

// Banter is a self-improving conversational agent daemon.
//
// It runs a fixed processing pipeline for every message — clean,
// classify, score sentiment, decide a strategy, respond, persist,
// learn — and exposes the result over an HTTP and WebSocket API.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	banter serve             Start the API server
//	banter ask <message>     Process a single message (for testing)
//	banter stats [days]      Print the analytics report
//	banter insights          Print current health insights
//	banter optimize          Run an optimization pass
//	banter version           Print version and build information
//	banter -o json version   Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/soline/banter/internal/analytics"
	"github.com/soline/banter/internal/api"
	"github.com/soline/banter/internal/buildinfo"
	"github.com/soline/banter/internal/classify"
	"github.com/soline/banter/internal/config"
	"github.com/soline/banter/internal/decision"
	"github.com/soline/banter/internal/genai"
	"github.com/soline/banter/internal/learning"
	"github.com/soline/banter/internal/notify"
	"github.com/soline/banter/internal/pipeline"
	"github.com/soline/banter/internal/respond"
	"github.com/soline/banter/internal/store"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run] so the full
// startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the banter command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which makes it impossible to call run() concurrently from tests, and
// the argument surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: banter ask <message>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "stats":
		days := 7
		if len(cmdArgs) > 0 {
			n, err := strconv.Atoi(cmdArgs[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("usage: banter stats [days]")
			}
			days = n
		}
		return runStats(ctx, stdout, configPath, days)
	case "insights":
		return runInsights(ctx, stdout, configPath, outputFmt)
	case "optimize":
		return runOptimize(ctx, stdout, configPath, outputFmt)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "banter - self-improving conversational agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: banter [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve           Start the API server")
	fmt.Fprintln(w, "  ask <message>   Process a single message (for testing)")
	fmt.Fprintln(w, "  stats [days]    Print the analytics report (default: 7 days)")
	fmt.Fprintln(w, "  insights        Print current health insights")
	fmt.Fprintln(w, "  optimize        Run an optimization pass")
	fmt.Fprintln(w, "  version         Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/banter/config.yaml, /etc/banter/config.yaml")
	return nil
}

func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// loadConfig resolves and loads the config file. A missing file is not
// fatal: the compiled-in defaults cover everything.
func loadConfig(explicit string) (*config.Config, string, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "(defaults)", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// buildAgent assembles the full pipeline from config. The returned
// store must be closed by the caller.
func buildAgent(ctx context.Context, cfg *config.Config, dbPath string, logger *slog.Logger) (*pipeline.Pipeline, *store.Store, error) {
	st, err := store.Open(dbPath, logger)
	if err != nil {
		return nil, nil, err
	}

	classifier := classify.New(cfg.Knowledge.Intents, logger)
	learner := learning.New(st, classifier, cfg.Knowledge.Intents, logger)
	if err := learner.Restore(ctx); err != nil {
		logger.Warn("learning corpus not restored, starting fresh", "error", err)
	}

	var backend *genai.Client
	if cfg.GenAI.APIKey != "" {
		backend = genai.NewClient(genai.Config{
			BaseURL:   cfg.GenAI.BaseURL,
			APIKey:    cfg.GenAI.APIKey,
			Model:     cfg.GenAI.Model,
			MaxTokens: cfg.GenAI.MaxTokens,
			Timeout:   time.Duration(cfg.GenAI.TimeoutSec) * time.Second,
		})
	} else {
		logger.Info("no genai api key configured, generative responses degrade to rules")
	}

	var generator respond.Generator
	if backend != nil {
		generator = backend
	}

	agent := pipeline.New(pipeline.Options{
		Classifier:    classifier,
		Engine:        decision.NewEngine(cfg.Knowledge.FAQ, cfg.Knowledge.KeyTerms),
		Responder:     respond.New(generator, logger),
		Store:         st,
		Learner:       learner,
		Analytics:     analytics.New(st, logger),
		Backend:       backend,
		Logger:        logger,
		MaxHistory:    cfg.Conversation.MaxHistory,
		RetentionDays: cfg.Conversation.RetentionDays,
	})
	return agent, st, nil
}

// runServe is the primary operating mode: build the agent, start the
// API server and optional alert publisher, and block until a shutdown
// signal arrives.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting banter",
		"version", buildinfo.Version, "commit", buildinfo.Commit(), "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Info("config loaded", "path", cfgPath)

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent, st, err := buildAgent(ctx, cfg, filepath.Join(cfg.DataDir, "banter.db"), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var publisher *notify.Publisher
	if cfg.Alerts.Enabled {
		publisher = notify.New(cfg.Alerts, logger)
		go func() {
			if err := publisher.Start(ctx); err != nil {
				logger.Error("mqtt alert publisher failed", "error", err)
			}
		}()
		go alertLoop(ctx, agent, publisher, logger)
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, agent, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api server shutdown", "error", err)
	}
	if publisher != nil {
		if err := publisher.Stop(shutdownCtx); err != nil {
			logger.Warn("mqtt publisher shutdown", "error", err)
		}
	}
	return nil
}

// alertLoop periodically evaluates health insights and pushes the high-
// and medium-priority ones to the MQTT broker.
func alertLoop(ctx context.Context, agent *pipeline.Pipeline, publisher *notify.Publisher, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			insights, err := agent.Insights(ctx)
			if err != nil {
				logger.Warn("insights evaluation failed", "error", err)
				continue
			}
			for _, in := range insights {
				if in.Priority == "low" {
					continue
				}
				publisher.PublishAlert(ctx, notify.Alert{
					Severity: in.Priority,
					Message:  in.Title + ": " + in.Message,
				})
			}
		}
	}
}

// runAsk processes a single message against an in-memory store and
// prints the reply. Useful for smoke tests without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(io.Discard, slog.LevelInfo)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Nothing worth persisting for a one-shot question.
	agent, st, err := buildAgent(ctx, cfg, ":memory:", logger)
	if err != nil {
		return err
	}
	defer st.Close()

	result := agent.Process(ctx, "cli", strings.Join(args, " "))
	fmt.Fprintln(stdout, result.Reply)
	fmt.Fprintf(stdout, "  [intent=%s strategy=%s sentiment=%s]\n",
		result.Intent, result.Strategy, result.Sentiment)
	return nil
}

// openReadOnlyAgent builds an agent over the existing database for the
// offline reporting commands.
func openReadOnlyAgent(ctx context.Context, configPath string) (*pipeline.Pipeline, *store.Store, error) {
	logger := newLogger(io.Discard, slog.LevelWarn)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	return buildAgent(ctx, cfg, filepath.Join(cfg.DataDir, "banter.db"), logger)
}

func runStats(ctx context.Context, stdout io.Writer, configPath string, days int) error {
	agent, st, err := openReadOnlyAgent(ctx, configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := agent.Report(ctx, days)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fmt.Fprintln(stdout, report)
	return nil
}

func runInsights(ctx context.Context, stdout io.Writer, configPath string, outputFmt string) error {
	agent, st, err := openReadOnlyAgent(ctx, configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	insights, err := agent.Insights(ctx)
	if err != nil {
		return fmt.Errorf("insights: %w", err)
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(insights)
	}
	if len(insights) == 0 {
		fmt.Fprintln(stdout, "All health checks passing.")
		return nil
	}
	for _, in := range insights {
		fmt.Fprintf(stdout, "[%s] %s: %s\n", in.Priority, in.Title, in.Message)
	}
	return nil
}

func runOptimize(ctx context.Context, stdout io.Writer, configPath string, outputFmt string) error {
	agent, st, err := openReadOnlyAgent(ctx, configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := agent.Optimize(ctx)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(stdout, "retrained: %v\n", report.Retrained)
	fmt.Fprintf(stdout, "turns expired: %d\n", report.TurnsExpired)
	for _, s := range report.Suggestions {
		fmt.Fprintf(stdout, "[%s] %s: %s\n", s.Priority, s.Category, s.Message)
	}
	return nil
}

// Package main is the entry point for the notedb server.
//
// notedb is a local-first personal workspace server that stores pages,
// databases and completion logs as JSONL files, versions the data directory
// with git, and exposes a RESTful HTTP API. Configuration is read from CLI
// flags, a .env file and config.yaml in the data directory.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/maruel/ksid"
	"github.com/maruel/notedb/internal/config"
	"github.com/maruel/notedb/internal/markdown"
	"github.com/maruel/notedb/internal/server"
	"github.com/maruel/notedb/internal/server/handlers"
	"github.com/maruel/notedb/internal/sharing"
	"github.com/maruel/notedb/internal/storage"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "notedb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	httpAddr := flag.String("http", "", "Address to listen on (e.g., localhost:8080, :8080)")
	dataDir := flag.String("data-dir", "./data", "Data directory")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	noGit := flag.Bool("no-git", false, "Disable git versioning of the data directory")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Drop localhost IPs (not useful in logs).
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			val := a.Value.Any()
			skip := false
			switch t := val.(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case float64:
				skip = t == 0
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg, err := config.Load(*dataDir)
	if err != nil {
		return err
	}
	env, err := config.LoadDotEnv(*dataDir)
	if err != nil {
		return err
	}

	// Precedence: flags, then .env, then config.yaml.
	if *httpAddr == "" {
		if v := env["HTTP"]; v != "" {
			*httpAddr = v
		} else {
			*httpAddr = cfg.Addr
		}
	}
	if *logLevel == "" {
		if v := env["LOG_LEVEL"]; v != "" {
			*logLevel = v
		} else {
			*logLevel = cfg.LogLevel
		}
	}
	if v := env["SHARE_SECRET"]; v != "" {
		cfg.ShareSecret = v
	}

	switch *logLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", *logLevel)
	}

	// Generate and persist a share secret on first run.
	if cfg.ShareSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("failed to generate share secret: %w", err)
		}
		cfg.ShareSecret = hex.EncodeToString(buf)
		if err := cfg.Save(*dataDir); err != nil {
			return fmt.Errorf("failed to persist share secret: %w", err)
		}
		slog.InfoContext(ctx, "Generated share secret", "path", filepath.Join(*dataDir, "config.yaml"))
	}

	// Normalize addr: ":8080" becomes "localhost:8080".
	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	store, err := storage.NewStore(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	var git *storage.Git
	var committer storage.Committer
	if cfg.Git.Enabled && !*noGit {
		git, err = storage.NewGit(*dataDir, cfg.Git.Name, cfg.Git.Email)
		if err != nil {
			return fmt.Errorf("failed to open git repository: %w", err)
		}
		committer = git
	}

	// Watch own executable for modifications (for development restarts).
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	hierarchy := storage.NewHierarchyService(store, committer)
	if len(store.Pages()) == 0 {
		var noParent ksid.ID
		if _, err := hierarchy.CreatePage(ctx, "My Workspace", nil, noParent); err != nil {
			return fmt.Errorf("failed to create initial page: %w", err)
		}
	}

	svc := &handlers.Services{
		Hierarchy:  hierarchy,
		Completion: storage.NewCompletionService(store, committer),
		Calendar:   storage.NewCalendarService(store),
		Sharing:    sharing.NewManager([]byte(cfg.ShareSecret)),
		Markdown:   markdown.NewRenderer(),
		Git:        git,
		Store:      store,
	}
	httpServer := &http.Server{
		Addr: addr,
		Handler: server.NewRouter(svc, &server.Config{
			RateRPS:   cfg.RateLimit.RPS,
			RateBurst: cfg.RateLimit.Burst,
		}),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "dataDir", *dataDir, "git", committer != nil)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("notedb %s\n", version)
	fmt.Printf("  go:       %s\n", goVersion)
	if revision != "" {
		if dirty {
			revision += " (modified)"
		}
		fmt.Printf("  revision: %s\n", revision)
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "dev"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected. This enables seamless
// restarts during development.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}

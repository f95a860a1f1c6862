// Package main is the entry point for the notionrelay server.
//
// notionrelay accepts flat JSON payloads over HTTP, maps them to Notion
// property objects and forwards them to the Notion API, relaying whatever
// Notion answers. Configuration is read from an optional YAML file, a .env
// file, the environment and CLI flags, in increasing order of precedence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/notionrelay/notionrelay/internal/config"
	"github.com/notionrelay/notionrelay/internal/notion"
	"github.com/notionrelay/notionrelay/internal/server"
	"github.com/notionrelay/notionrelay/internal/server/handlers"
	"github.com/notionrelay/notionrelay/internal/server/ipgeo"
	"github.com/notionrelay/notionrelay/internal/server/ratelimit"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "notionrelay: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	def := config.Default()
	version := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	httpAddr := flag.String("http", "", "Address to listen on (e.g., localhost:8080). Overrides -port")
	port := flag.Int("port", def.Port, "Port to listen on, on all interfaces")
	logLevel := flag.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	notionToken := flag.String("notion-token", "", "Notion integration token")
	notionVersion := flag.String("notion-version", def.NotionVersion, "Notion-Version header value")
	notionBaseURL := flag.String("notion-base-url", def.NotionBaseURL, "Notion API base URL")
	notionTimeout := flag.Duration("notion-timeout", def.NotionTimeout, "Timeout of a single Notion call")
	logBodyLimit := flag.Int("log-body-limit", def.LogBodyLimit, "Bytes of Notion response bodies to log, negative for no limit")
	maxBodyBytes := flag.Int64("max-body-bytes", def.MaxBodyBytes, "Maximum request body size, 0 for no limit")
	strictOrder := flag.Bool("strict-order", false, "Reject requests whose Order is not a number")
	rateLimit := flag.Int("rate-limit", 0, "Requests per minute per client IP, 0 to disable")
	geoDB := flag.String("geo-db", "", "Path to MaxMind MMDB file for IP geolocation (optional)")
	watch := flag.Bool("watch", false, "Shut down when the executable is modified (for development restarts)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		fmt.Print(readBuildInfo())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	slog.SetDefault(newLogger(os.Stderr, ll))

	cfg := config.Default()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			return err
		}
	}
	dotenv, err := config.LoadDotEnv(".env")
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(config.EnvLookup(dotenv)); err != nil {
		return err
	}

	// Explicitly set flags win over every other source.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			cfg.HTTP = *httpAddr
		case "port":
			cfg.Port = *port
		case "log-level":
			cfg.LogLevel = *logLevel
		case "notion-token":
			cfg.NotionToken = *notionToken
		case "notion-version":
			cfg.NotionVersion = *notionVersion
		case "notion-base-url":
			cfg.NotionBaseURL = *notionBaseURL
		case "notion-timeout":
			cfg.NotionTimeout = *notionTimeout
		case "log-body-limit":
			cfg.LogBodyLimit = *logBodyLimit
		case "max-body-bytes":
			cfg.MaxBodyBytes = *maxBodyBytes
		case "strict-order":
			cfg.StrictOrder = *strictOrder
		case "rate-limit":
			cfg.RateLimit = *rateLimit
		case "geo-db":
			cfg.GeoDB = *geoDB
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	ll.Set(level)

	if cfg.NotionToken == "" {
		slog.WarnContext(ctx, "No Notion token configured, Notion will answer 401 and the relay passes that on")
	}
	if *watch {
		if err := stopOnRebuild(ctx, stop); err != nil {
			return fmt.Errorf("watch binary: %w", err)
		}
	}

	var geo server.GeoResolver
	if cfg.GeoDB != "" {
		checker, err := ipgeo.Open(cfg.GeoDB)
		if err != nil {
			return err
		}
		defer func() { _ = checker.Close() }()
		geo = checker
		slog.InfoContext(ctx, "Caller country lookup enabled", "db", cfg.GeoDB)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit > 0 {
		limiter = ratelimit.NewLimiter(cfg.RateLimit, time.Minute, max(cfg.RateLimit/6, 1))
		defer limiter.Close()
		slog.InfoContext(ctx, "Inbound rate limit enabled", "perMinute", cfg.RateLimit)
	}

	build := readBuildInfo()
	svc := &handlers.Services{Notion: notion.NewClient(cfg.Notion())}
	hcfg := &handlers.Config{
		Version:             build.Version,
		StrictOrder:         cfg.StrictOrder,
		MaxRequestBodyBytes: cfg.MaxBodyBytes,
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	slog.InfoContext(ctx, "Relaying to Notion", "addr", ln.Addr().String(), "notion", cfg.NotionBaseURL, "notionVersion", cfg.NotionVersion, "version", build.Version)
	srv := server.NewHTTPServer(ctx, server.NewRouter(svc, hcfg, limiter, geo))
	if err := server.Serve(ctx, srv, ln, shutdownGrace); err != nil {
		return err
	}
	slog.Info("Relay stopped")
	return nil
}

// shutdownGrace bounds how long in-flight Notion calls may run after a signal.
const shutdownGrace = 10 * time.Second

// newLogger writes colored output to terminals and plain text elsewhere.
func newLogger(w *os.File, level slog.Leveler) *slog.Logger {
	// journald stamps every line itself.
	journald := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(w.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if journald && len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			if isEmptyAttr(a.Value) {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// isEmptyAttr reports values that would only add noise to access log lines,
// such as the country of a caller when no geo database is loaded.
func isEmptyAttr(v slog.Value) bool {
	switch v.Kind() {
	case slog.KindString:
		return v.String() == ""
	case slog.KindBool:
		return !v.Bool()
	case slog.KindDuration:
		return v.Duration() == 0
	case slog.KindAny:
		return v.Any() == nil
	default:
		return false
	}
}

type buildInfo struct {
	Version  string
	Go       string
	Revision string
	Dirty    bool
}

func readBuildInfo() buildInfo {
	b := buildInfo{Version: "dev", Go: "unknown", Revision: "unknown"}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		b.Version = v
	}
	b.Go = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.Revision = s.Value
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	return b
}

func (b buildInfo) String() string {
	rev := b.Revision
	if b.Dirty {
		rev += " (modified)"
	}
	return fmt.Sprintf("notionrelay %s\n  go:       %s\n  revision: %s\n", b.Version, b.Go, rev)
}

// stopOnRebuild calls stop once the running binary is rebuilt, so a process
// supervisor restarts the relay on the new build. The directory is watched
// rather than the file because go build replaces the binary by rename.
func stopOnRebuild(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(exe)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != exe || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Chmod) == 0 {
					continue
				}
				slog.InfoContext(ctx, "Binary rebuilt, stopping relay", "path", exe, "op", ev.Op.String())
				stop()
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Binary watch error", "err", err)
			}
		}
	}()
	return nil
}

// Package main is the emotags CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/emotags/internal/applier"
	"github.com/hyperjump/emotags/internal/cli"
	"github.com/hyperjump/emotags/internal/config"
	"github.com/hyperjump/emotags/internal/models"
	"github.com/hyperjump/emotags/internal/server"
	"github.com/hyperjump/emotags/internal/storage"
	"github.com/hyperjump/emotags/internal/vault"
	"github.com/hyperjump/emotags/internal/watcher"
	"github.com/hyperjump/emotags/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = config.DefaultPath
	defaultServerURL  = "http://localhost:8181"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// When the default file does not exist either, built-in defaults are returned with
// an empty resolved path. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "apply":
		runBulk(models.OperationApply)
	case "strip":
		runBulk(models.OperationStrip)
	case "decide":
		runDecide()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("emotags version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file events, decisions, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	defer utils.Sync(logger)

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Strings("directories", cfg.Vault.Directories),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apl := components.Applier
	watchSvc := watcher.NewWatcher(
		cfg.Vault.Directories,
		cfg.Vault.Extensions,
		cfg.Vault.RecursiveOrDefault(),
		func(path string) {
			if err := apl.Notify(ctx, path); err != nil {
				logger.Warn("sync on change failed", zap.String("path", path), zap.Error(err))
			}
		},
		watcher.WithLogger(logger),
		watcher.WithDebounce(cfg.Vault.Debounce()),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	components.Vault.SetRoots(watchSvc.Directories())

	if cfg.Vault.ApplyOnStart {
		go func() {
			docs, err := components.Vault.List(ctx)
			if err != nil {
				logger.Warn("apply on start: list notes failed", zap.Error(err))
				return
			}
			apl.ApplyAll(ctx, docs, applier.SyncHeaders, applier.Run{Operation: models.OperationApply})
		}()
	}

	srv := server.NewServer(apl, components.Vault, components.Journal, cfg, resolvedConfigPath, watchSvc, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	watchSvc.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func parseOutput(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fail("%v", err)
	}
	return format
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument, so "emotags decide Old Stuff --tag x" would otherwise
// leave --tag unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

func runBulk(op models.Operation) {
	fs := flag.NewFlagSet(string(op), flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = rename directly in the vault)")
	dryRun := fs.Bool("dry-run", false, "show the renames without performing them")
	outputFormat := fs.String("output", "text", "output format: text, compact (one rename per line), or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	format := parseOutput(*outputFormat)

	var report *applier.Report
	if *serverURL != "" {
		if fs.NArg() > 0 {
			fail("directories cannot be given with --server; the server uses its watched directories")
		}
		target := strings.TrimRight(*serverURL, "/") + "/api/v1/" + string(op)
		if *dryRun {
			target += "?dry_run=true"
		}
		report = &applier.Report{}
		if err := doJSON(http.MethodPost, target, nil, http.StatusOK, report); err != nil {
			fail("%s failed: %v", op, err)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fail("Failed to load config: %v", err)
		}
		if fs.NArg() > 0 {
			cfg.Vault.Directories = absPaths(fs.Args())
		}
		if len(cfg.Vault.Directories) == 0 {
			fail("No vault directories configured; pass directories or set vault.directories")
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fail("Failed to create logger: %v", err)
		}
		defer utils.Sync(logger)

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		docs, err := components.Vault.List(ctx)
		if err != nil {
			fail("Failed to list notes: %v", err)
		}
		decide := applier.SyncHeaders
		if op == models.OperationStrip {
			decide = applier.StripHeaders
		}
		report = components.Applier.ApplyAll(ctx, docs, decide, applier.Run{Operation: op, DryRun: *dryRun})
	}

	if err := cli.WriteReport(os.Stdout, report, format); err != nil {
		fail("Output failed: %v", err)
	}
	if len(report.Failures) > 0 || report.Canceled {
		os.Exit(1)
	}
}

func absPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

func runDecide() {
	fs := flag.NewFlagSet("decide", flag.ExitOnError)
	var tags stringList
	fs.Var(&tags, "tag", "tag of the note (repeatable, or comma separated)")
	outputFormat := fs.String("output", "text", "output format: text, compact (new title only), or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: emotags decide [--tag TAG ...] <title>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	format := parseOutput(*outputFormat)

	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		fs.Usage()
		os.Exit(1)
	}
	if err := cli.WriteDecision(os.Stdout, applier.Describe(tags, title), format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the journal directly)")
	offset := fs.Int("offset", 0, "number of entries to skip")
	limit := fs.Int("limit", 20, "number of entries to show")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	page := &models.RenamesPage{}
	if *serverURL != "" {
		q := url.Values{}
		q.Set("offset", fmt.Sprint(*offset))
		q.Set("limit", fmt.Sprint(*limit))
		target := strings.TrimRight(*serverURL, "/") + "/api/v1/renames?" + q.Encode()
		if err := doJSON(http.MethodGet, target, nil, http.StatusOK, page); err != nil {
			fail("History failed: %v", err)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fail("Failed to load config: %v", err)
		}
		journal, err := storage.NewSQLiteJournal(cfg.Storage.DatabasePath)
		if err != nil {
			fail("Failed to open journal: %v", err)
		}
		defer journal.Close()
		ctx := context.Background()
		recs, err := journal.ListRenames(ctx, *offset, *limit)
		if err != nil {
			fail("List renames failed: %v", err)
		}
		total, err := journal.CountRenames(ctx, "")
		if err != nil {
			fail("Count renames failed: %v", err)
		}
		page = &models.RenamesPage{Renames: recs, Total: total, Offset: *offset, Limit: *limit}
	}
	if err := cli.WriteRenames(os.Stdout, page, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the vault and journal directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	status := &models.Status{}
	if *serverURL != "" {
		if err := doJSON(http.MethodGet, strings.TrimRight(*serverURL, "/")+"/api/v1/status", nil, http.StatusOK, status); err != nil {
			fail("Status failed: %v", err)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fail("Failed to load config: %v", err)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fail("Failed to create logger: %v", err)
		}
		defer utils.Sync(logger)
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		ctx := context.Background()
		docs, err := components.Vault.List(ctx)
		if err != nil {
			fail("Failed to list notes: %v", err)
		}
		status.Notes = len(docs)
		status.Directories = cfg.Vault.Directories
		if status.Renames, err = components.Journal.CountRenames(ctx, ""); err != nil {
			fail("Count renames failed: %v", err)
		}
		if status.FailedRenames, err = components.Journal.CountRenames(ctx, models.RenameFailed); err != nil {
			fail("Count renames failed: %v", err)
		}
		if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath); err == nil {
			status.DiskUsageBytes = &diskBytes
		}
		status.Config = &models.StatusConfig{
			DatabasePath: cfg.Storage.DatabasePath,
			Extensions:   cfg.Vault.Extensions,
			Recursive:    cfg.Vault.RecursiveOrDefault(),
			DebounceMS:   cfg.Vault.DebounceMS,
		}
	}
	if format == cli.OutputCompact {
		format = cli.OutputText
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: emotags watch <add|remove|list> [path]")
		fmt.Println("  emotags watch add <path>     Add a vault directory")
		fmt.Println("  emotags watch remove <path>  Remove a vault directory")
		fmt.Println("  emotags watch list           List vault directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	noSync := fs.Bool("no-sync", false, "do not apply headers to the notes already in an added directory")
	_ = fs.Parse(reorderArgs(os.Args[3:]))
	endpoint := strings.TrimRight(*serverURL, "/") + "/api/v1/watch/directories"

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fail("Usage: emotags watch add <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body := map[string]interface{}{"path": path, "sync": !*noSync}
		if err := doJSON(http.MethodPost, endpoint, body, http.StatusCreated, nil); err != nil {
			fail("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fail("Usage: emotags watch remove <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := doJSON(http.MethodDelete, endpoint+"?path="+url.QueryEscape(path), nil, http.StatusOK, nil); err != nil {
			fail("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := doJSON(http.MethodGet, endpoint, nil, http.StatusOK, &out); err != nil {
			fail("List failed: %v", err)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fail("Unknown watch subcommand: %s", sub)
	}
}

// doJSON sends body (if any) as JSON and decodes the response into out (if any).
// A status other than want is returned as an error carrying the response body.
func doJSON(method, target string, body interface{}, want int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Journal *storage.SQLiteJournal
	Vault   *vault.Vault
	Applier *applier.Applier
}

func (c *Components) Close() {
	if c.Journal != nil {
		_ = c.Journal.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	journal, err := storage.NewSQLiteJournal(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	v := vault.New(cfg.Vault.Directories, cfg.Vault.Extensions, cfg.Vault.RecursiveOrDefault(),
		vault.WithLogger(logger))
	apl := applier.New(v, applier.WithJournal(journal), applier.WithLogger(logger))
	return &Components{Journal: journal, Vault: v, Applier: apl}, nil
}

func printUsage() {
	fmt.Println(`emotags - keep emoji tag headers in note titles

Usage:
  emotags server [flags]               Watch the vault and serve the HTTP API
  emotags apply [flags] [dir...]       Prefix every note title with its tag emoji
  emotags strip [flags] [dir...]       Remove emoji from every note title
  emotags decide [flags] <title>       Show what would happen to one title
  emotags history [flags]              Show the rename journal
  emotags status [flags]               Show vault and journal status
  emotags watch <add|remove|list>      Manage vault directories of a running server
  emotags version                      Show version
  emotags help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/emotags/config.yaml)
  --debug            Enable debug logging

Apply/Strip Flags:
  --config string    Config file path
  --server string    Server URL; empty (default) renames directly in the vault
  --dry-run          Show the renames without performing them
  --output string    Output format: text, compact, or json (default: text)

Decide Flags:
  --tag string       Tag of the note (repeatable)
  --output string    Output format: text, compact, or json (default: text)

History Flags:
  --config string    Config file path (for direct journal access)
  --server string    Server URL; empty (default) reads the journal directly
  --offset int       Entries to skip
  --limit int        Entries to show (default: 20)
  --output string    Output format: text, compact, or json

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8181). Use --server "" for direct mode.
  --output string    Output format: text or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8181)
  --no-sync          Do not apply headers to notes already in an added directory

Examples:
  emotags server
  emotags apply --dry-run ~/Notes
  emotags strip --output json
  emotags decide --tag "#🔥urgent" Old Stuff
  emotags history --limit 50
  emotags watch add ~/Notes/Projects`)
}

// Package main is the tategaki CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/tategaki/internal/config"
	"github.com/hyperjump/tategaki/internal/server"
	"github.com/hyperjump/tategaki/internal/watcher"
	"github.com/hyperjump/tategaki/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tategaki/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if present, and a missing default file yields the built-in
// defaults. Returns the config and the path actually loaded ("" for built-in defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
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
	case "convert":
		runConvert()
	case "watch":
		runWatch()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tategaki version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and creates the logger, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, bool) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger, debugMode
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	watchSvc, err := startInboxWatcher(watchCtx, cfg, components, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}

	srv, err := server.NewServer(components.Generator, components.Storage, cfg, logger, watchSvc, resolvedConfigPath)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	waitForSignal()
	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// startInboxWatcher starts converting the configured watch directories into the output directory.
func startInboxWatcher(ctx context.Context, cfg *config.Config, c *Components, logger *zap.Logger, debug bool) (*watcher.Watcher, error) {
	inbox := watcher.NewInbox(c.Generator, cfg.Storage.OutputDir, watcher.WithInboxLogger(logger))
	onConvert, onRemove := inbox.Callbacks(ctx)
	watchOpts := []watcher.WatcherOption{}
	if debug {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	w := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		onConvert,
		onRemove,
		watchOpts...,
	)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	go w.SyncExistingFiles()
	return w, nil
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}

func runWatch() {
	if len(os.Args) >= 3 {
		switch os.Args[2] {
		case "add", "remove", "list":
			runWatchRemote(os.Args[2], os.Args[3:])
			return
		}
	}
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()
	if fs.NArg() > 0 {
		cfg.Watch.Directories = nil
		for _, d := range fs.Args() {
			abs, _ := filepath.Abs(d)
			cfg.Watch.Directories = append(cfg.Watch.Directories, abs)
		}
	}
	if len(cfg.Watch.Directories) == 0 {
		fmt.Println("Usage: tategaki watch [flags] <dir>...   (or set watch.directories in the config)")
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, debugMode, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := startInboxWatcher(ctx, cfg, components, logger, debugMode); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	fmt.Printf("Watching %v, writing books to %s\n", cfg.Watch.Directories, cfg.Storage.OutputDir)
	waitForSignal()
}

// runWatchRemote manages the watch list of a running server.
func runWatchRemote(sub string, args []string) {
	fs := flag.NewFlagSet("watch "+sub, flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(args)

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: tategaki watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		exitOnHTTPError("Add", resp, err, http.StatusCreated)
		resp.Body.Close()
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: tategaki watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		exitOnHTTPError("Remove", resp, err, http.StatusOK)
		resp.Body.Close()
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		exitOnHTTPError("List", resp, err, http.StatusOK)
		defer resp.Body.Close()
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	}
}

func exitOnHTTPError(action string, resp *http.Response, err error, want int) {
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		fmt.Printf("%s failed (%d): %s\n", action, resp.StatusCode, string(b))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tategaki - Google Docs to vertical-writing EPUB

Usage:
  tategaki server [flags]                 Start the HTTP server (and the inbox watcher)
  tategaki convert [flags] <url|file>     Convert a Google Docs URL or an exported .html file
  tategaki watch [flags] [dir...]         Convert .html files dropped into directories
  tategaki watch <add|remove|list>        Manage the watch list of a running server
  tategaki history [flags]                Show recent generations
  tategaki status [flags]                 Show generation counts and storage usage
  tategaki version                        Show version
  tategaki help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/tategaki/config.yaml)
  --debug            Enable debug logging

Convert Flags:
  --config string      Config file path
  --out string         Output file or directory (default: current directory)
  --title string       Book title (default: the document title)
  --author string      Author
  --publisher string   Publisher
  --issuer string      Issuer (発行)
  --date string        Publication date, free text
  --edition string     Edition
  --notes string       Colophon notes
  --cover string       Cover image (.jpg, .jpeg or .png)
  --tcy-numbers        Set digit runs horizontally (default from config)
  --tcy-latin          Set short Latin runs horizontally (default from config)
  --toc                Include a contents page (default from config)
  --no-history         Do not record the generation

History/Status Flags:
  --config string    Config file path (for direct database access)
  --server string    Server URL; empty reads the database directly (default: "")
  --output string    Output format: text or json (default: text)
  --limit int        Number of records (history only, default: 20)
  --source string    Only records of one source (history only)

Examples:
  tategaki server
  tategaki convert https://docs.google.com/document/d/1AbC.../edit
  tategaki convert --title "夜の章" --author "山田" --tcy-latin chapter.html
  tategaki watch ~/Drafts
  tategaki history --output json
  tategaki status`)
}

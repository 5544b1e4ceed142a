package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/hyperjump/tategaki/internal/cli"
	"github.com/hyperjump/tategaki/internal/config"
	"github.com/hyperjump/tategaki/internal/models"
	"github.com/hyperjump/tategaki/internal/storage"
)

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the database directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	limit := fs.Int("limit", 20, "number of records")
	offset := fs.Int("offset", 0, "records to skip")
	source := fs.String("source", "", "only records of this source id")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var records []*models.GenerationRecord
	if *serverURL != "" {
		records, err = historyViaHTTP(*serverURL, *offset, *limit, *source)
	} else {
		records, err = historyFromStorage(*configPath, *offset, *limit, *source)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteHistory(os.Stdout, records, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func openHistory(configPath string) (*config.Config, *storage.SQLiteStorage, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func historyFromStorage(configPath string, offset, limit int, source string) ([]*models.GenerationRecord, error) {
	_, store, err := openHistory(configPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	ctx := context.Background()
	if source != "" {
		return store.ListBySource(ctx, source, limit)
	}
	return store.ListGenerations(ctx, offset, limit)
}

func historyViaHTTP(serverURL string, offset, limit int, source string) ([]*models.GenerationRecord, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	if source != "" {
		q.Set("source", source)
	}
	var out struct {
		Generations []*models.GenerationRecord `json:"generations"`
	}
	if err := getJSON(serverURL+"/api/v1/history?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Generations, nil
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Generations struct {
		Total     int64 `json:"total"`
		Succeeded int64 `json:"succeeded"`
		Failed    int64 `json:"failed"`
	} `json:"generations"`
	Books         storage.Usage `json:"books"`
	DatabaseBytes int64         `json:"database_bytes"`
	Config        struct {
		DatabasePath     string   `json:"database_path"`
		OutputDir        string   `json:"output_dir"`
		WatchDirectories []string `json:"watch_directories"`
	} `json:"config"`
}

func (s *statusResponse) report() *cli.StatusReport {
	return &cli.StatusReport{
		Total:            s.Generations.Total,
		Succeeded:        s.Generations.Succeeded,
		Failed:           s.Generations.Failed,
		Books:            s.Books,
		DatabaseBytes:    s.DatabaseBytes,
		DatabasePath:     s.Config.DatabasePath,
		OutputDir:        s.Config.OutputDir,
		WatchDirectories: s.Config.WatchDirectories,
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the database directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var report *cli.StatusReport
	if *serverURL != "" {
		var status statusResponse
		if err = getJSON(*serverURL+"/api/v1/status", &status); err == nil {
			report = status.report()
		}
	} else {
		report, err = statusFromStorage(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusFromStorage(configPath string) (*cli.StatusReport, error) {
	cfg, store, err := openHistory(configPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	ctx := context.Background()
	report := &cli.StatusReport{
		DatabasePath:     cfg.Storage.DatabasePath,
		OutputDir:        cfg.Storage.OutputDir,
		WatchDirectories: cfg.Watch.Directories,
	}
	for _, c := range []struct {
		status string
		dst    *int64
	}{
		{"", &report.Total},
		{models.StatusSucceeded, &report.Succeeded},
		{models.StatusFailed, &report.Failed},
	} {
		n, err := store.CountGenerations(ctx, c.status)
		if err != nil {
			return nil, fmt.Errorf("count generations: %w", err)
		}
		*c.dst = n
	}
	if report.Books, err = storage.DiskUsage(".epub", cfg.Storage.OutputDir); err != nil {
		return nil, err
	}
	db, err := storage.DiskUsage("", cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	report.DatabaseBytes = db.Bytes
	return report, nil
}

func getJSON(u string, v interface{}) error {
	resp, err := http.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

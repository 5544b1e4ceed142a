// Package cli formats command output for tategaki.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hyperjump/tategaki/internal/models"
	"github.com/hyperjump/tategaki/internal/storage"
	"github.com/hyperjump/tategaki/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" and "json"; empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OutputText):
		return OutputText, nil
	case string(OutputJSON):
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

var now = time.Now

const titleColumns = 32

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteHistory writes generation records, newest first as given.
func WriteHistory(w io.Writer, records []*models.GenerationRecord, format OutputFormat) error {
	if format == OutputJSON {
		if records == nil {
			records = []*models.GenerationRecord{}
		}
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No generations recorded.")
		return err
	}
	fmt.Fprintf(w, "%-6s %-16s %-10s %-9s %s\n", "ID", "WHEN", "STATUS", "SIZE", "TITLE")
	for _, rec := range records {
		status := rec.Status
		size := "-"
		if rec.Status == models.StatusFailed {
			status = string(rec.ErrorCode)
			if status == "" {
				status = models.StatusFailed
			}
		} else {
			size = humanize.Bytes(uint64(rec.SizeBytes))
		}
		title := rec.Title
		if title == "" {
			title = rec.SourceID
		}
		fmt.Fprintf(w, "%-6d %-16s %-10s %-9s %s\n",
			rec.ID,
			humanize.RelTime(rec.CreatedAt, now(), "ago", "from now"),
			utils.Truncate(status, 10),
			size,
			strings.TrimRight(utils.PadRight(title, titleColumns), " "))
	}
	return nil
}

// StatusReport summarises history and storage.
type StatusReport struct {
	Total            int64         `json:"total"`
	Succeeded        int64         `json:"succeeded"`
	Failed           int64         `json:"failed"`
	Books            storage.Usage `json:"books"`
	DatabaseBytes    int64         `json:"database_bytes"`
	DatabasePath     string        `json:"database_path"`
	OutputDir        string        `json:"output_dir"`
	WatchDirectories []string      `json:"watch_directories"`
}

// WriteStatus writes report to w in the given format.
func WriteStatus(w io.Writer, report *StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Generations:   %s (%s succeeded, %s failed)\n",
		humanize.Comma(report.Total), humanize.Comma(report.Succeeded), humanize.Comma(report.Failed))
	fmt.Fprintf(w, "Books:         %s in %s\n",
		pluralBooks(report.Books.Files), humanize.Bytes(uint64(report.Books.Bytes)))
	fmt.Fprintf(w, "Output dir:    %s\n", report.OutputDir)
	fmt.Fprintf(w, "Database:      %s (%s)\n", report.DatabasePath, humanize.Bytes(uint64(report.DatabaseBytes)))
	if len(report.WatchDirectories) > 0 {
		fmt.Fprintf(w, "Watching:      %s\n", strings.Join(report.WatchDirectories, ", "))
	}
	return nil
}

func pluralBooks(n int) string {
	if n == 1 {
		return "1 book"
	}
	return humanize.Comma(int64(n)) + " books"
}

// WriteConverted reports a book written to path.
func WriteConverted(w io.Writer, path string, title string, size int, digest string) {
	fmt.Fprintf(w, "Wrote %s\n  title:  %s\n  size:   %s\n  blake3: %s\n",
		path, title, humanize.Bytes(uint64(size)), digest)
}

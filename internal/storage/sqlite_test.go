package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/tategaki/internal/models"
)

func openStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_RecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	recs := []*models.GenerationRecord{
		{SourceID: "doc-a", Title: "一", Filename: "一.epub", SizeBytes: 100, Digest: "aa", Status: models.StatusSucceeded, CreatedAt: base},
		{SourceID: "doc-b", Title: "二", Status: models.StatusFailed, ErrorCode: models.ErrNotPublic, CreatedAt: base.Add(time.Minute)},
		{SourceID: "doc-a", Title: "三", Author: "著者", Identifier: "doc-a-1", Status: models.StatusSucceeded, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range recs {
		if err := store.RecordGeneration(ctx, r); err != nil {
			t.Fatal(err)
		}
		if r.ID == 0 {
			t.Error("ID should be set")
		}
	}

	list, err := store.ListGenerations(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 records, got %d", len(list))
	}
	if list[0].Title != "三" || list[2].Title != "一" {
		t.Errorf("not newest first: %s, %s, %s", list[0].Title, list[1].Title, list[2].Title)
	}
	if list[0].Author != "著者" || list[0].Identifier != "doc-a-1" {
		t.Errorf("fields lost: %+v", list[0])
	}
	if list[1].ErrorCode != models.ErrNotPublic || list[1].Status != models.StatusFailed {
		t.Errorf("failure fields lost: %+v", list[1])
	}
	if list[2].SizeBytes != 100 || list[2].Digest != "aa" || !list[2].CreatedAt.Equal(base) {
		t.Errorf("success fields lost: %+v", list[2])
	}

	page, err := store.ListGenerations(ctx, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Title != "二" {
		t.Errorf("offset/limit: got %+v", page)
	}

	bySource, err := store.ListBySource(ctx, "doc-a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(bySource) != 2 || bySource[0].Title != "三" {
		t.Errorf("ListBySource: got %d records", len(bySource))
	}
}

func TestSQLiteStorage_Count(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, status := range []string{models.StatusSucceeded, models.StatusSucceeded, models.StatusFailed} {
		if err := store.RecordGeneration(ctx, &models.GenerationRecord{SourceID: "s", Status: status}); err != nil {
			t.Fatal(err)
		}
	}
	tests := []struct {
		status string
		want   int64
	}{
		{"", 3},
		{models.StatusSucceeded, 2},
		{models.StatusFailed, 1},
	}
	for _, tt := range tests {
		n, err := store.CountGenerations(ctx, tt.status)
		if err != nil {
			t.Fatal(err)
		}
		if n != tt.want {
			t.Errorf("CountGenerations(%q) = %d, want %d", tt.status, n, tt.want)
		}
	}
}

func TestSQLiteStorage_DefaultCreatedAt(t *testing.T) {
	store := openStore(t)
	rec := &models.GenerationRecord{SourceID: "s", Status: models.StatusSucceeded}
	if err := store.RecordGeneration(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordGeneration(context.Background(), &models.GenerationRecord{SourceID: "s", Status: models.StatusSucceeded}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	n, err := store.CountGenerations(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("after reopen: %d records, want 1", n)
	}
}

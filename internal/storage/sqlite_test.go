package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/emotags/internal/models"
)

func TestSQLiteJournal_RecordAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "renames.db")
	journal, err := NewSQLiteJournal(path)
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &models.RenameRecord{
		ID:         "r1",
		DocumentID: "note:1",
		Operation:  models.OperationApply,
		OldPath:    "/v/Old Stuff.md",
		NewPath:    "/v/🔥 Old Stuff.md",
		OldTitle:   "Old Stuff",
		NewTitle:   "🔥 Old Stuff",
		Status:     models.RenameApplied,
		CreatedAt:  base,
	}
	second := &models.RenameRecord{
		ID:         "r2",
		DocumentID: "note:2",
		Operation:  models.OperationStrip,
		OldPath:    "/v/🔥 Groceries.md",
		OldTitle:   "🔥 Groceries",
		NewTitle:   "Groceries",
		Status:     models.RenameFailed,
		Error:      "destination already exists",
		CreatedAt:  base.Add(time.Minute),
	}
	for _, rec := range []*models.RenameRecord{first, second} {
		if err := journal.RecordRename(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	list, err := journal.ListRenames(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
	if list[0].ID != "r2" || list[1].ID != "r1" {
		t.Errorf("expected newest first, got %s, %s", list[0].ID, list[1].ID)
	}
	if list[0].Error != "destination already exists" || list[0].NewPath != "" {
		t.Errorf("failed record round trip: %+v", list[0])
	}
	if list[1].NewTitle != "🔥 Old Stuff" || list[1].Operation != models.OperationApply {
		t.Errorf("applied record round trip: %+v", list[1])
	}

	page, err := journal.ListRenames(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != "r1" {
		t.Errorf("offset page = %+v", page)
	}
}

func TestSQLiteJournal_Counts(t *testing.T) {
	journal, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "count.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()
	ctx := context.Background()

	n, err := journal.CountRenames(ctx, "")
	if err != nil || n != 0 {
		t.Errorf("CountRenames: %v, %d", err, n)
	}
	_ = journal.RecordRename(ctx, &models.RenameRecord{ID: "a", DocumentID: "d", Operation: models.OperationSync,
		OldPath: "p", OldTitle: "t", NewTitle: "u", Status: models.RenameApplied})
	_ = journal.RecordRename(ctx, &models.RenameRecord{ID: "b", DocumentID: "d", Operation: models.OperationSync,
		OldPath: "p", OldTitle: "t", NewTitle: "u", Status: models.RenameFailed})

	if n, _ := journal.CountRenames(ctx, ""); n != 2 {
		t.Errorf("total = %d, want 2", n)
	}
	if n, _ := journal.CountRenames(ctx, models.RenameFailed); n != 1 {
		t.Errorf("failed = %d, want 1", n)
	}
}

func TestSQLiteJournal_RequiresID(t *testing.T) {
	journal, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "id.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()
	if err := journal.RecordRename(context.Background(), &models.RenameRecord{}); err == nil {
		t.Error("expected error for record without id")
	}
}

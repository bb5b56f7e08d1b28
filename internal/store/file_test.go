package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func TestFileCollection_AppendAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.json")

	col, err := NewFileCollection[record](path)
	if err != nil {
		t.Fatalf("NewFileCollection() error = %v", err)
	}

	if err := col.Append(ctx, record{ID: "a", Body: "first"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := col.Append(ctx, record{ID: "b", Body: "second"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// A fresh collection on the same path must see the persisted records.
	reloaded, err := NewFileCollection[record](path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	records, err := reloaded.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("reloaded records = %d, want 2", len(records))
	}
	if records[0].ID != "a" || records[1].ID != "b" {
		t.Errorf("records out of order: %+v", records)
	}
}

func TestFileCollection_Find(t *testing.T) {
	ctx := context.Background()
	col, err := NewFileCollection[record](filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatalf("NewFileCollection() error = %v", err)
	}
	_ = col.Append(ctx, record{ID: "a"})
	_ = col.Append(ctx, record{ID: "b"})

	got, ok, err := col.Find(ctx, func(r record) bool { return r.ID == "b" })
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if !ok || got.ID != "b" {
		t.Errorf("Find() = %+v, %v; want record b", got, ok)
	}

	_, ok, err = col.Find(ctx, func(r record) bool { return r.ID == "z" })
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if ok {
		t.Error("Find() matched a record that does not exist")
	}
}

func TestFileCollection_Remove(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.json")
	col, err := NewFileCollection[record](path)
	if err != nil {
		t.Fatalf("NewFileCollection() error = %v", err)
	}
	_ = col.Append(ctx, record{ID: "a"})
	_ = col.Append(ctx, record{ID: "b"})

	removed, err := col.Remove(ctx, func(r record) bool { return r.ID == "a" })
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !removed {
		t.Fatal("Remove() = false, want true")
	}

	removed, err = col.Remove(ctx, func(r record) bool { return r.ID == "a" })
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if removed {
		t.Error("second Remove() = true, want false")
	}

	// The removal must survive a reload.
	reloaded, err := NewFileCollection[record](path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	count, _ := reloaded.Count(ctx)
	if count != 1 {
		t.Errorf("count after remove = %d, want 1", count)
	}
}

func TestFileCollection_Clear(t *testing.T) {
	ctx := context.Background()
	col, err := NewFileCollection[record](filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatalf("NewFileCollection() error = %v", err)
	}
	_ = col.Append(ctx, record{ID: "a"})
	_ = col.Append(ctx, record{ID: "b"})

	n, err := col.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	count, _ := col.Count(ctx)
	if count != 0 {
		t.Errorf("count after clear = %d, want 0", count)
	}
}

func TestFileCollection_EmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	col, err := NewFileCollection[record](path)
	if err != nil {
		t.Fatalf("NewFileCollection() on empty file error = %v", err)
	}
	count, _ := col.Count(context.Background())
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

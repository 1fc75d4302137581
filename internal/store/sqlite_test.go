package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcliao/heulog/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustStamp(t *testing.T, s string) model.Stamp {
	t.Helper()
	st, err := model.ParseStamp(s)
	if err != nil {
		t.Fatalf("parse stamp: %v", err)
	}
	return st
}

// recordScan archives a small scan: two rows, two events, one diagnostic.
func recordScan(t *testing.T, s *SQLiteStore, serial string) *model.Scan {
	t.Helper()
	ctx := context.Background()
	rec, err := s.BeginScan(ctx, BeginParams{Serial: serial, LogNum: 18, Source: "sn" + serial + "log18.txt"})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	on := model.DefaultSnapshot()
	on.PumpsOn = 1
	on.InletTemp = 24.5
	rec.Row(model.Row{Stamp: mustStamp(t, "08/16/24 14:25:12.34"), Values: model.DefaultSnapshot()})
	rec.Row(model.Row{Stamp: mustStamp(t, "08/16/24 14:25:12.49"), Duplicate: true, Values: model.DefaultSnapshot()})
	rec.Row(model.Row{Stamp: mustStamp(t, "08/16/24 14:25:12.50"), Values: on})
	rec.Event(model.Event{Line: 2, Stamp: mustStamp(t, "08/16/24 14:25:12.50"), Text: "Pumps On"})
	rec.Event(model.Event{Line: 9, Stamp: mustStamp(t, "08/16/24 14:26:02.10"), Text: "Restart without Shutdown!"})
	rec.Diagnostic(model.Diagnostic{Line: 5, Tag: "ZZ", Kind: model.DiagUnrecognized, Text: "Unrecognizable tag: ZZ:13.20"})

	sc, err := rec.Finish(model.Summary{
		First:         mustStamp(t, "08/16/24 14:25:12.34"),
		Last:          mustStamp(t, "08/16/24 14:26:02.10"),
		Lines:         9,
		Records:       8,
		Events:        2,
		Rows:          3,
		DuplicateRows: 1,
		Unrecognized:  1,
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return sc
}

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sc := recordScan(t, s, "1060")
	if sc.ID == "" {
		t.Fatal("expected non-empty ID")
	}

	got, err := s.Get(ctx, sc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Serial != "1060" || got.LogNum != 18 {
		t.Errorf("unexpected unit: %q log %d", got.Serial, got.LogNum)
	}
	if got.Rows != 3 || got.DuplicateRows != 1 || got.Unrecognized != 1 {
		t.Errorf("summary not persisted: %+v", got.Summary)
	}
	if got.First.String() != "08/16/24 14:25:12.34" {
		t.Errorf("expected first stamp, got %q", got.First.String())
	}
	if got.Last.String() != "08/16/24 14:26:02.10" {
		t.Errorf("expected last stamp, got %q", got.Last.String())
	}

	rows, err := s.Rows(ctx, sc.ID)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !rows[1].Duplicate {
		t.Error("expected second row to be a duplicate")
	}
	if rows[2].Values.PumpsOn != 1 || rows[2].Values.InletTemp != 24.5 {
		t.Errorf("snapshot not round-tripped: %+v", rows[2].Values)
	}
	if rows[0].Values.PS24V != " 0.00" {
		t.Errorf("expected padded voltage, got %q", rows[0].Values.PS24V)
	}

	events, err := s.Events(ctx, sc.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 || events[0].Text != "Pumps On" {
		t.Errorf("unexpected events: %+v", events)
	}

	diags, err := s.Diagnostics(ctx, sc.ID)
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diags) != 1 || diags[0].Kind != model.DiagUnrecognized || diags[0].Line != 5 {
		t.Errorf("unexpected diagnostics: %+v", diags)
	}
}

func TestAbortLeavesNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.BeginScan(ctx, BeginParams{Source: "x.txt"})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	rec.Event(model.Event{Line: 1, Text: "Pumps On"})
	if err := rec.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}

	if _, err := s.Get(ctx, rec.ID()); err == nil {
		t.Error("expected aborted scan to be gone")
	}
	list, _ := s.List(ctx, ListParams{})
	if len(list) != 0 {
		t.Errorf("expected no scans, got %d", len(list))
	}

	if _, err := rec.Finish(model.Summary{}); !errors.Is(err, ErrRecorderClosed) {
		t.Errorf("expected ErrRecorderClosed, got %v", err)
	}
}

func TestRecorderAfterFinish(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.BeginScan(ctx, BeginParams{Source: "x.txt"})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := rec.Finish(model.Summary{}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	rec.Event(model.Event{Line: 1, Text: "late"})
	if !errors.Is(rec.Err(), ErrRecorderClosed) {
		t.Errorf("expected ErrRecorderClosed, got %v", rec.Err())
	}
	if err := rec.Abort(); err != nil {
		t.Errorf("abort after finish should be a no-op, got %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	recordScan(t, s, "1060")
	recordScan(t, s, "1060")
	recordScan(t, s, "1110")

	all, _ := s.List(ctx, ListParams{})
	if len(all) != 3 {
		t.Errorf("expected 3, got %d", len(all))
	}

	unit, _ := s.List(ctx, ListParams{Serial: "1060"})
	if len(unit) != 2 {
		t.Errorf("expected 2, got %d", len(unit))
	}

	limited, _ := s.List(ctx, ListParams{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected 1, got %d", len(limited))
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sc := recordScan(t, s, "1060")
	if err := s.Rm(ctx, RmParams{ID: sc.ID}); err != nil {
		t.Fatalf("rm: %v", err)
	}

	if _, err := s.Get(ctx, sc.ID); err == nil {
		t.Error("expected error after soft delete")
	}
	if err := s.Rm(ctx, RmParams{ID: sc.ID}); err == nil {
		t.Error("expected error deleting twice")
	}

	// Soft-deleted rows stay on disk.
	st, _ := s.Stats(ctx, "")
	if st.TotalScans != 1 || st.ActiveScans != 0 || st.TotalRows != 3 {
		t.Errorf("unexpected stats after soft delete: %+v", st)
	}
}

func TestHardDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sc := recordScan(t, s, "1060")
	if err := s.Rm(ctx, RmParams{ID: sc.ID, Hard: true}); err != nil {
		t.Fatalf("rm hard: %v", err)
	}

	st, _ := s.Stats(ctx, "")
	if st.TotalScans != 0 || st.TotalRows != 0 || st.TotalEvents != 0 || st.TotalProblems != 0 {
		t.Errorf("expected empty archive, got %+v", st)
	}
	results, err := s.Search(ctx, SearchParams{Query: "pumps"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected FTS index cleaned up, got %d", len(results))
	}

	if err := s.Rm(ctx, RmParams{ID: "nope", Hard: true}); err == nil {
		t.Error("expected error for unknown scan")
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestReopenKeepsScans(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	sc := recordScan(t, s, "1060")
	s.Close()

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(ctx, sc.ID); err != nil {
		t.Errorf("expected scan after reopen: %v", err)
	}
}

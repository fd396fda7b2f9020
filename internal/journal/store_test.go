package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"recsort/internal/journal"
	"recsort/internal/services"
	"recsort/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournal())
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	run := journal.Run{ID: "0f8e7d6c-1111-2222-3333-444455556666", Source: "/src", Destination: "/dest", StartedAt: started}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != journal.RunRunning || !got.StartedAt.Equal(started) {
		t.Fatalf("unexpected run %+v", got)
	}

	entries := []journal.Entry{
		{Source: "/src/a.jpg", Destination: "/dest/2021/1/a.jpg", Status: "copied", Bytes: 10},
		{Source: "/src/b.txt", Destination: "/dest/txt/b.txt", Status: "skipped"},
		{Source: "/src/c.txt", Status: "failed", Error: "permission denied"},
	}
	if err := store.RecordFiles(ctx, run.ID, entries); err != nil {
		t.Fatalf("RecordFiles: %v", err)
	}

	run.Status = journal.RunCompleted
	run.FinishedAt = started.Add(90 * time.Second)
	run.Total, run.Copied, run.Skipped, run.Failed = 3, 1, 1, 1
	run.BytesCopied = 10
	run.Events = 1
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err = store.GetRun(ctx, "0f8e7d6c")
	if err != nil {
		t.Fatalf("GetRun by prefix: %v", err)
	}
	if got.Status != journal.RunCompleted || got.Copied != 1 || got.Failed != 1 || got.Duration() != 90*time.Second {
		t.Fatalf("unexpected finished run %+v", got)
	}

	stored, err := store.ListEntries(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(stored) != 3 || stored[2].Error != "permission denied" || stored[1].Destination != "/dest/txt/b.txt" {
		t.Fatalf("unexpected entries %+v", stored)
	}
}

func TestGetRunUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournal())
	store := testsupport.MustOpenJournal(t, cfg)
	if _, err := store.GetRun(context.Background(), "nope"); !errors.Is(err, journal.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := store.GetRun(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected services.ErrNotFound, got %v", err)
	}
}

func TestGetRunPrefixIsLiteral(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournal())
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()
	run := journal.Run{ID: "abc_1234", Source: "/src", Destination: "/dest", StartedAt: time.Now()}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	for _, pattern := range []string{"%", "_", "ab%", "a_c"} {
		if _, err := store.GetRun(ctx, pattern); !errors.Is(err, journal.ErrRunNotFound) {
			t.Fatalf("GetRun(%q): expected ErrRunNotFound, got %v", pattern, err)
		}
	}
	got, err := store.GetRun(ctx, "abc_")
	if err != nil || got.ID != run.ID {
		t.Fatalf("GetRun literal prefix: %v %+v", err, got)
	}
	if _, err := store.GetRun(ctx, ""); err == nil {
		t.Fatal("expected empty id to be rejected")
	}
}

func TestListRunsNewestFirstAndPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournal())
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := []string{"run-a", "run-b", "run-c"}
	for i, id := range ids {
		run := journal.Run{ID: id, Source: "/s", Destination: "/d", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.BeginRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		if err := store.RecordFiles(ctx, id, []journal.Entry{{Source: "/s/x", Status: "copied"}}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Fatalf("unexpected listing %+v", runs)
	}

	removed, err := store.Prune(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 runs pruned, got %d", removed)
	}
	entries, err := store.ListEntries(ctx, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected pruned run files to cascade, got %d", len(entries))
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := journal.Open(path); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestBeginRunRequiresID(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournal())
	store := testsupport.MustOpenJournal(t, cfg)
	if err := store.BeginRun(context.Background(), journal.Run{}); err == nil {
		t.Fatal("expected error for missing id")
	}
}

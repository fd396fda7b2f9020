package planner_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recsort/internal/events"
	"recsort/internal/filetype"
	"recsort/internal/planner"
	"recsort/internal/testsupport"
)

func txtRequest(src, name string) planner.Request {
	return planner.Request{Source: src, Kind: filetype.KindOther, TypeFolder: "txt", Candidate: name}
}

func TestPlaceOverflowsIntoOneShard(t *testing.T) {
	dest := t.TempDir()
	p := planner.New(planner.Options{Dest: dest, MaxPerDir: 500, UnsortedDir: "date-unknown"})

	perShard := map[string]int{}
	for i := 0; i < 501; i++ {
		pl, err := p.Place(txtRequest("/src/x", fmt.Sprintf("f%04d.txt", i)))
		if err != nil {
			t.Fatalf("Place %d: %v", i, err)
		}
		perShard[pl.Dir]++
	}
	if len(perShard) != 2 {
		t.Fatalf("expected 2 shard directories, got %v", perShard)
	}
	if perShard[filepath.Join(dest, "txt")] != 500 {
		t.Fatalf("expected 500 files in shard 1, got %d", perShard[filepath.Join(dest, "txt")])
	}
	if perShard[filepath.Join(dest, "txt-2")] != 1 {
		t.Fatalf("expected 1 file in overflow shard, got %d", perShard[filepath.Join(dest, "txt-2")])
	}
	if usage := p.Usage(); usage["txt"] != 500 || usage["txt-2"] != 1 {
		t.Fatalf("unexpected usage %v", usage)
	}
}

func TestPlaceCountsExistingFiles(t *testing.T) {
	dest := t.TempDir()
	for i := 0; i < 4; i++ {
		testsupport.WriteFile(t, filepath.Join(dest, "txt", fmt.Sprintf("old%d.txt", i)), 8)
	}
	testsupport.WriteFile(t, filepath.Join(dest, "txt-2", "older.txt"), 8)

	p := planner.New(planner.Options{Dest: dest, MaxPerDir: 5, UnsortedDir: "date-unknown"})
	var shards []int
	for i := 0; i < 6; i++ {
		pl, err := p.Place(txtRequest("/src/x", fmt.Sprintf("new%d.txt", i)))
		if err != nil {
			t.Fatal(err)
		}
		shards = append(shards, pl.Shard)
	}
	want := []int{1, 2, 2, 2, 2, 3}
	for i := range want {
		if shards[i] != want[i] {
			t.Fatalf("placement %d: shard %d, want %d (all %v)", i, shards[i], want[i], shards)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, "txt-3")); err != nil {
		t.Fatalf("expected third shard directory: %v", err)
	}
}

func TestPlaceDetectsIdenticalExistingCopy(t *testing.T) {
	src := filepath.Join(t.TempDir(), "report.txt")
	testsupport.WriteContent(t, src, "quarterly numbers")
	dest := t.TempDir()
	testsupport.WriteContent(t, filepath.Join(dest, "txt", "report.txt"), "quarterly numbers")

	p := planner.New(planner.Options{Dest: dest, MaxPerDir: 1, UnsortedDir: "date-unknown"})
	pl, err := p.Place(txtRequest(src, "report.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !pl.Existing || pl.Path != filepath.Join(dest, "txt", "report.txt") {
		t.Fatalf("expected existing copy, got %+v", pl)
	}
	if _, err := os.Stat(filepath.Join(dest, "txt-2")); !os.IsNotExist(err) {
		t.Fatalf("skipped file must not open a shard, stat err=%v", err)
	}
}

func TestPlaceNamesUniqueAcrossShards(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	testsupport.WriteContent(t, src, "fresh content")
	dest := t.TempDir()
	testsupport.WriteContent(t, filepath.Join(dest, "txt", "b.txt"), "x")
	testsupport.WriteContent(t, filepath.Join(dest, "txt-2", "a.txt"), "different content")

	p := planner.New(planner.Options{Dest: dest, MaxPerDir: 10, UnsortedDir: "date-unknown"})
	pl, err := p.Place(txtRequest(src, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if pl.Existing || pl.Name != "a(1).txt" || pl.Shard != 1 {
		t.Fatalf("expected a(1).txt in shard 1, got %+v", pl)
	}
}

func TestPlaceReservesNamesWithinRun(t *testing.T) {
	dest := t.TempDir()
	p := planner.New(planner.Options{Dest: dest, MaxPerDir: 10, UnsortedDir: "date-unknown"})
	var names []string
	for i := 0; i < 3; i++ {
		pl, err := p.Place(txtRequest(fmt.Sprintf("/src/%d", i), "same.txt"))
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, pl.Name)
	}
	if names[0] != "same.txt" || names[1] != "same(1).txt" || names[2] != "same(2).txt" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestPlaceRemovesStaleTempFiles(t *testing.T) {
	dest := t.TempDir()
	stale := filepath.Join(dest, "txt", ".recsort-123.tmp")
	testsupport.WriteContent(t, stale, "partial")

	p := planner.New(planner.Options{Dest: dest, MaxPerDir: 1, UnsortedDir: "date-unknown"})
	pl, err := p.Place(txtRequest("/src/a", "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if pl.Shard != 1 {
		t.Fatalf("temp file must not count toward the shard, got shard %d", pl.Shard)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale temp removed, stat err=%v", err)
	}
}

func TestPlaceDryRunTouchesNothing(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "dest")
	p := planner.New(planner.Options{Dest: dest, MaxPerDir: 1, UnsortedDir: "date-unknown", DryRun: true})
	for i := 0; i < 3; i++ {
		if _, err := p.Place(txtRequest("/src/x", fmt.Sprintf("f%d.txt", i))); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("dry run created the destination, stat err=%v", err)
	}
	if usage := p.Usage(); usage["txt-3"] != 1 {
		t.Fatalf("expected planned usage across 3 shards, got %v", usage)
	}
}

func TestBucketKeys(t *testing.T) {
	p := planner.New(planner.Options{Dest: "/d", MaxPerDir: 1, UnsortedDir: "date-unknown"})
	captured := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	dated := planner.Request{Kind: filetype.KindImage, HasCapture: true, Captured: captured, Label: events.Label{Scope: "2021", Number: 3}}
	if got := p.BucketKey(dated); got != "2021/3" {
		t.Fatalf("dated image bucket %q", got)
	}
	undated := planner.Request{Kind: filetype.KindImage, TypeFolder: "jpg"}
	if got := p.BucketKey(undated); got != "date-unknown" {
		t.Fatalf("undated image bucket %q", got)
	}
	other := planner.Request{Kind: filetype.KindOther, TypeFolder: "pdf"}
	if got := p.BucketKey(other); got != "pdf" {
		t.Fatalf("other bucket %q", got)
	}
}

func TestReleaseFreesSlotAndName(t *testing.T) {
	dest := t.TempDir()
	p := planner.New(planner.Options{Dest: dest, MaxPerDir: 1, UnsortedDir: "date-unknown"})
	first, err := p.Place(txtRequest("/src/a", "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	p.Release(first)

	again, err := p.Place(txtRequest("/src/b", "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if again.Name != "a.txt" || again.Shard != 1 {
		t.Fatalf("expected released slot to be reused, got %+v", again)
	}
}

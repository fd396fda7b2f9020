package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"recsort/internal/journal"
	"recsort/internal/sorter"
	"recsort/internal/testsupport"
)

func TestSortCommandCopiesAndSummarises(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.source, "recup_dir.1", "f0001.txt"), 64)
	testsupport.WriteContent(t, filepath.Join(env.source, "recup_dir.1", "f0002.jpg"), "no exif here")

	out, _, err := runCLI(t, []string{"sort", env.source, env.dest, "--no-progress"}, env.configPath)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	requireContains(t, out, "Copied")
	requireContains(t, out, "1 undated")

	files := testsupport.ListFiles(t, env.dest)
	for _, want := range []string{"txt/f0001.txt", "date-unknown/f0002.jpg"} {
		if !slices.Contains(files, want) {
			t.Fatalf("expected %s in %v", want, files)
		}
	}

	out, _, err = runCLI(t, []string{"sort", env.source, env.dest, "--no-progress"}, env.configPath)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	requireContains(t, out, "Already present")
}

func TestSortFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.source, "a.txt"), 10)
	testsupport.WriteFile(t, filepath.Join(env.source, "b.txt"), 10)

	if _, _, err := runCLI(t, []string{"sort", "-n", "1", "--no-progress", env.source, env.dest}, env.configPath); err != nil {
		t.Fatalf("sort: %v", err)
	}
	var got []string
	for _, f := range testsupport.ListFiles(t, env.dest) {
		if f != sorter.LockFileName {
			got = append(got, f)
		}
	}
	want := []string{"txt/a.txt", "txt-2/b.txt"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected layout:\n got %v\nwant %v", got, want)
	}
}

func TestSortDryRunPrintsTree(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.source, "a.txt"), 10)
	testsupport.WriteExifImage(t, filepath.Join(env.source, "p.jpg"), time.Date(2020, 5, 1, 12, 0, 0, 0, time.Local))

	out, _, err := runCLI(t, []string{"sort", "--dry-run", "--tree", env.source, env.dest}, env.configPath)
	if err != nil {
		t.Fatalf("sort --dry-run: %v", err)
	}
	requireContains(t, out, "dry run")
	requireContains(t, out, "txt (1 new)")
	requireContains(t, out, "2020")
	if _, err := os.Stat(env.dest); !os.IsNotExist(err) {
		t.Fatalf("dry run created the destination: %v", err)
	}
}

func TestSortTreeRequiresDryRun(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.source, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"sort", "--tree", env.source, env.dest}, env.configPath); err == nil {
		t.Fatal("expected --tree without --dry-run to fail")
	}
}

func TestSortRejectsMissingSource(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"sort", "--no-progress", env.source, env.dest}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	requireContains(t, err.Error(), "hint:")
}

func TestEventsCommandPrintsTable(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteExifImage(t, filepath.Join(env.source, "a.jpg"), time.Date(2021, 1, 1, 9, 0, 0, 0, time.Local))
	testsupport.WriteExifImage(t, filepath.Join(env.source, "b.jpg"), time.Date(2021, 1, 2, 9, 0, 0, 0, time.Local))
	testsupport.WriteExifImage(t, filepath.Join(env.source, "c.jpg"), time.Date(2021, 1, 10, 9, 0, 0, 0, time.Local))

	out, _, err := runCLI(t, []string{"events", env.source}, env.configPath)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	requireContains(t, out, "3 images, 3 with a capture time, 2 events")
	requireContains(t, out, "2021/1")
	requireContains(t, out, "2021/2")
	requireContains(t, out, "1d 0h")

	out, _, err = runCLI(t, []string{"events", "-d", "10", env.source}, env.configPath)
	if err != nil {
		t.Fatalf("events -d 10: %v", err)
	}
	requireContains(t, out, "1 events")
}

func TestHistoryCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history before any run: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	testsupport.WriteFile(t, filepath.Join(env.source, "a.txt"), 10)
	if _, _, err := runCLI(t, []string{"sort", "--journal", "--no-progress", env.source, env.dest}, env.configPath); err != nil {
		t.Fatalf("sort --journal: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, env.dest)

	store, err := journal.Open(env.cfg.Journal.Path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	runs, err := store.ListRuns(context.Background(), 0)
	store.Close()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run, got %d (%v)", len(runs), err)
	}

	out, _, err = runCLI(t, []string{"history", "show", "--files", shortID(runs[0].ID)}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, runs[0].ID)
	requireContains(t, out, "copied")

	out, _, err = runCLI(t, []string{"history", "prune", "--keep", "0"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 1 run(s)")
}

func TestConfigInitValidateShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "log_dir")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "max_per_dir = 500")
}

func TestGlobalLogLevelFlagIsValidated(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"--log-level", "chatty", "config", "show"}, env.configPath); err == nil {
		t.Fatal("expected unknown log level to be rejected")
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, filepath.Join(t.TempDir(), "missing", "config.toml"))
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "recsort ")
}

func TestCompareDirsOrdersEventsNumerically(t *testing.T) {
	dirs := []string{"2021/10", "txt", "2021/2", "2021", "2021/1", "txt-2"}
	slices.SortFunc(dirs, compareDirs)
	want := []string{"2021", "2021/1", "2021/2", "2021/10", "txt", "txt-2"}
	if !slices.Equal(dirs, want) {
		t.Fatalf("got %v want %v", dirs, want)
	}
}

func TestFormatSpan(t *testing.T) {
	cases := map[time.Duration]string{
		0:                          "0m",
		90 * time.Minute:           "1h 30m",
		50 * time.Hour:             "2d 2h",
		24*time.Hour + time.Minute: "1d 0h",
	}
	for in, want := range cases {
		if got := formatSpan(in); got != want {
			t.Fatalf("formatSpan(%v) = %q, want %q", in, got, want)
		}
	}
}

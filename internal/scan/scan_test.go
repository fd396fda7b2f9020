package scan_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recsort/internal/filetype"
	"recsort/internal/metadata"
	"recsort/internal/scan"
	"recsort/internal/services"
	"recsort/internal/testsupport"
)

func classifier() *filetype.Classifier {
	return filetype.NewClassifier([]string{"jpg", "png"}, "_no_extension", "date-unknown")
}

func TestWalkEnumeratesAndReadsCaptureTimes(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "recup_dir.1", "f0001.jpg"), 10)
	testsupport.WriteFile(t, filepath.Join(root, "recup_dir.1", "f0002.TXT"), 10)
	testsupport.WriteFile(t, filepath.Join(root, "recup_dir.2", "f0003.png"), 10)
	testsupport.WriteFile(t, filepath.Join(root, "recup_dir.2", "f0004.jpg"), 10)
	if err := os.Symlink(filepath.Join(root, "recup_dir.1", "f0001.jpg"), filepath.Join(root, "link.jpg")); err != nil {
		t.Fatal(err)
	}

	captured := time.Date(2020, 8, 1, 10, 0, 0, 0, time.UTC)
	reader := metadata.ReaderFunc(func(path string) (time.Time, bool, error) {
		switch filepath.Base(path) {
		case "f0001.jpg":
			return captured, true, nil
		case "f0004.jpg":
			return time.Time{}, false, errors.New("decode exif: truncated")
		}
		return time.Time{}, false, nil
	})

	files, stats, err := scan.Walk(context.Background(), scan.Options{
		Root:       root,
		Classifier: classifier(),
		Reader:     reader,
		Workers:    3,
	})
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}

	var rels []string
	for _, f := range files {
		rels = append(rels, f.Rel)
	}
	want := "recup_dir.1/f0001.jpg,recup_dir.1/f0002.TXT,recup_dir.2/f0003.png,recup_dir.2/f0004.jpg"
	if got := strings.Join(rels, ","); got != want {
		t.Fatalf("unexpected walk order:\n got %s\nwant %s", got, want)
	}
	if !files[0].HasCapture || !files[0].Captured.Equal(captured) {
		t.Fatalf("expected capture time on first image: %+v", files[0])
	}
	if files[1].Kind != filetype.KindOther || files[1].Folder != "txt" || files[1].Ext != "txt" {
		t.Fatalf("unexpected text classification: %+v", files[1])
	}
	if files[2].HasCapture || files[2].MetaErr != nil {
		t.Fatalf("png without metadata should be undated without error: %+v", files[2])
	}
	if files[3].HasCapture || files[3].MetaErr == nil {
		t.Fatalf("failed read should be recorded: %+v", files[3])
	}
	if stats.Images != 3 || stats.Dated != 1 || stats.Symlinks != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestWalkSkipsExcludedDestination(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "sorted")
	testsupport.WriteFile(t, filepath.Join(root, "a.txt"), 4)
	testsupport.WriteFile(t, filepath.Join(dest, "txt", "a.txt"), 4)

	files, stats, err := scan.Walk(context.Background(), scan.Options{
		Root:       root,
		Exclude:    []string{dest},
		Classifier: classifier(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Rel != "a.txt" {
		t.Fatalf("expected only the source file, got %+v", files)
	}
	if stats.Excluded != 1 {
		t.Fatalf("expected one excluded dir, got %+v", stats)
	}
}

func TestWalkMissingRootIsConfigurationError(t *testing.T) {
	_, _, err := scan.Walk(context.Background(), scan.Options{
		Root:       filepath.Join(t.TempDir(), "absent"),
		Classifier: classifier(),
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWalkRootMustBeDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	testsupport.WriteFile(t, path, 1)
	_, _, err := scan.Walk(context.Background(), scan.Options{Root: path, Classifier: classifier()})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWalkHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a.jpg"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := scan.Walk(ctx, scan.Options{Root: root, Classifier: classifier()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsWithin(t *testing.T) {
	cases := []struct {
		path, dir string
		want      bool
	}{
		{"/a/b", "/a", true},
		{"/a", "/a", true},
		{"/ab", "/a", false},
		{"/", "/a", false},
		{"/a/..b", "/a", true},
	}
	for _, tc := range cases {
		if got := scan.IsWithin(tc.path, tc.dir); got != tc.want {
			t.Errorf("IsWithin(%q, %q) = %v, want %v", tc.path, tc.dir, got, tc.want)
		}
	}
}

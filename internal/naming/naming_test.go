package naming_test

import (
	"errors"
	"testing"
	"time"

	"recsort/internal/naming"
)

func TestCandidate(t *testing.T) {
	captured := time.Date(2021, 6, 12, 8, 30, 5, 0, time.UTC)
	tests := []struct {
		name string
		file naming.File
		opts naming.Options
		want string
	}{
		{"original lowers extension", naming.File{Name: "IMG_0001.JPG", Ext: "jpg"}, naming.Options{}, "IMG_0001.jpg"},
		{"no extension", naming.File{Name: "README"}, naming.Options{}, "README"},
		{"metadata name", naming.File{Name: "f123.JPG", Ext: "jpg", Captured: captured, HasCapture: true}, naming.Options{FromMetadata: true}, "20210612_083005.jpg"},
		{"keep wins over metadata", naming.File{Name: "f123.JPG", Ext: "jpg", Captured: captured, HasCapture: true}, naming.Options{FromMetadata: true, KeepOriginal: true}, "f123.jpg"},
		{"metadata without capture", naming.File{Name: "f123.JPG", Ext: "jpg"}, naming.Options{FromMetadata: true}, "f123.jpg"},
		{"capture without request", naming.File{Name: "f123.jpg", Ext: "jpg", Captured: captured, HasCapture: true}, naming.Options{}, "f123.jpg"},
		{"nfc normalised", naming.File{Name: "café.JPG", Ext: "jpg"}, naming.Options{}, "café.jpg"},
		{"unsafe stem", naming.File{Name: "???.txt", Ext: "txt"}, naming.Options{}, "unnamed.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := naming.Candidate(tt.file, tt.opts); got != tt.want {
				t.Fatalf("Candidate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithSuffix(t *testing.T) {
	cases := map[string]string{
		"a.jpg":   "a(3).jpg",
		"a":       "a(3)",
		"a.b.txt": "a.b(3).txt",
	}
	for in, want := range cases {
		if got := naming.WithSuffix(in, 3); got != want {
			t.Errorf("WithSuffix(%q, 3) = %q, want %q", in, got, want)
		}
	}
	if got := naming.WithSuffix("a.jpg", 0); got != "a.jpg" {
		t.Errorf("suffix 0 should keep the name, got %q", got)
	}
}

func TestResolveSuffixesDistinctCollisions(t *testing.T) {
	reserved := map[string]bool{}
	lookup := func(name string) (naming.Slot, string) {
		if reserved[name] {
			return naming.SlotReserved, ""
		}
		return naming.SlotFree, ""
	}

	var got []string
	for i := 0; i < 3; i++ {
		res, err := naming.Resolve("20210612_083005.jpg", lookup, nil)
		if err != nil {
			t.Fatal(err)
		}
		reserved[res.Name] = true
		got = append(got, res.Name)
	}
	want := []string{"20210612_083005.jpg", "20210612_083005(1).jpg", "20210612_083005(2).jpg"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resolution %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestResolveSkipsIdenticalExisting(t *testing.T) {
	occupied := map[string]string{
		"a.jpg":    "/dest/a.jpg",
		"a(1).jpg": "/dest/a(1).jpg",
	}
	lookup := func(name string) (naming.Slot, string) {
		if p, ok := occupied[name]; ok {
			return naming.SlotOccupied, p
		}
		return naming.SlotFree, ""
	}
	same := func(path string) (bool, error) { return path == "/dest/a(1).jpg", nil }

	res, err := naming.Resolve("a.jpg", lookup, same)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Existing || res.Name != "a(1).jpg" || res.Path != "/dest/a(1).jpg" {
		t.Fatalf("unexpected resolution %+v", res)
	}

	different := func(string) (bool, error) { return false, nil }
	res, err = naming.Resolve("a.jpg", lookup, different)
	if err != nil {
		t.Fatal(err)
	}
	if res.Existing || res.Name != "a(2).jpg" {
		t.Fatalf("expected first free suffix, got %+v", res)
	}
}

func TestResolvePropagatesCompareError(t *testing.T) {
	boom := errors.New("boom")
	lookup := func(string) (naming.Slot, string) { return naming.SlotOccupied, "/x" }
	_, err := naming.Resolve("a.jpg", lookup, func(string) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped compare error, got %v", err)
	}
}

package metadata_test

import (
	"path/filepath"
	"testing"
	"time"

	"recsort/internal/metadata"
	"recsort/internal/testsupport"
)

func fixedPolicy(now time.Time) metadata.Policy {
	p := metadata.NewPolicy(1990, 24*time.Hour)
	p.Earliest = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return now }
	return p
}

func TestCaptureTimePrefersEarliestPlausibleTag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f0001.tif")
	testsupport.WriteExifTIFF(t, path, testsupport.ExifDates{
		DateTime:          "2021:06:14 12:00:00",
		DateTimeOriginal:  "2021:06:12 08:30:15",
		DateTimeDigitized: "2021:06:13 09:00:00",
	})

	reader := metadata.NewExifReader(fixedPolicy(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))).WithLocation(time.UTC)
	got, ok, err := reader.CaptureTime(path)
	if err != nil {
		t.Fatalf("CaptureTime returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a capture time")
	}
	want := time.Date(2021, 6, 12, 8, 30, 15, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCaptureTimeFallsBackToDateTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f0002.tif")
	testsupport.WriteExifTIFF(t, path, testsupport.ExifDates{DateTime: "2019:03:01 10:11:12"})

	reader := metadata.NewExifReader(fixedPolicy(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))).WithLocation(time.UTC)
	got, ok, err := reader.CaptureTime(path)
	if err != nil || !ok {
		t.Fatalf("expected capture time, ok=%v err=%v", ok, err)
	}
	if got.Year() != 2019 || got.Month() != time.March {
		t.Fatalf("unexpected capture time %v", got)
	}
}

func TestCaptureTimeRejectsImplausibleDates(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]testsupport.ExifDates{
		"zeroed":      {DateTimeOriginal: "0000:00:00 00:00:00"},
		"before 1990": {DateTimeOriginal: "1980:01:01 00:00:00"},
		"future":      {DateTimeOriginal: "2030:05:05 05:05:05"},
		"garbage":     {DateTimeOriginal: "not a date at all"},
	}
	for name, dates := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "img.tif")
			testsupport.WriteExifTIFF(t, path, dates)

			reader := metadata.NewExifReader(fixedPolicy(now)).WithLocation(time.UTC)
			_, ok, err := reader.CaptureTime(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				t.Fatal("expected no capture time")
			}
		})
	}
}

func TestCaptureTimeNonExifFileReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	testsupport.WriteContent(t, path, "definitely not a jpeg")

	reader := metadata.NewExifReader(metadata.NewPolicy(1990, 24*time.Hour))
	_, ok, err := reader.CaptureTime(path)
	if ok {
		t.Fatal("expected no capture time")
	}
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCaptureTimeMissingFile(t *testing.T) {
	reader := metadata.NewExifReader(metadata.NewPolicy(1990, 24*time.Hour))
	if _, _, err := reader.CaptureTime(filepath.Join(t.TempDir(), "absent.jpg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseExifTime(t *testing.T) {
	got, ok := metadata.ParseExifTime("2020:02:29 23:59:58\x00  ", time.UTC)
	if !ok {
		t.Fatal("expected parse success")
	}
	if !got.Equal(time.Date(2020, 2, 29, 23, 59, 58, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
	if _, ok := metadata.ParseExifTime("    ", time.UTC); ok {
		t.Fatal("blank value should not parse")
	}
	if _, ok := metadata.ParseExifTime("2020-02-29 23:59:58", time.UTC); !ok {
		t.Fatal("dashed layout should parse")
	}
}

func TestPolicyPlausible(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := fixedPolicy(now)

	if p.Plausible(time.Time{}) {
		t.Fatal("zero time must be implausible")
	}
	if p.Plausible(time.Unix(0, 0).UTC()) {
		t.Fatal("epoch must be implausible")
	}
	if !p.Plausible(p.Earliest) {
		t.Fatal("earliest bound is inclusive")
	}
	if !p.Plausible(now.Add(23 * time.Hour)) {
		t.Fatal("slack should tolerate near-future times")
	}
	if p.Plausible(now.Add(25 * time.Hour)) {
		t.Fatal("beyond slack must be implausible")
	}
}

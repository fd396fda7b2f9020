package metadata

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Reader extracts an optional capture time from a file. ok is false when the
// file has no usable timestamp; err is set only when reading failed.
type Reader interface {
	CaptureTime(path string) (t time.Time, ok bool, err error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(path string) (time.Time, bool, error)

func (f ReaderFunc) CaptureTime(path string) (time.Time, bool, error) { return f(path) }

// exifLayouts covers the standard EXIF layout and the dashed variant some
// phone firmwares write.
var exifLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006:01:02 15:04",
}

// dateFields are consulted together; the earliest plausible value wins.
var dateFields = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.DateTimeDigitized,
	exif.DateTime,
}

// ExifReader reads capture times with goexif.
type ExifReader struct {
	policy   Policy
	location *time.Location
}

// NewExifReader returns a reader that interprets EXIF wall-clock times in
// the local zone and filters them through policy.
func NewExifReader(policy Policy) *ExifReader {
	return &ExifReader{policy: policy, location: time.Local}
}

// WithLocation returns a copy interpreting EXIF times in loc.
func (r *ExifReader) WithLocation(loc *time.Location) *ExifReader {
	clone := *r
	clone.location = loc
	return &clone
}

// CaptureTime implements Reader.
func (r *ExifReader) CaptureTime(path string) (time.Time, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return time.Time{}, false, fmt.Errorf("decode exif: %w", err)
	}

	var best time.Time
	for _, field := range dateFields {
		t, ok := r.fieldTime(x, field)
		if !ok || !r.policy.Plausible(t) {
			continue
		}
		if best.IsZero() || t.Before(best) {
			best = t
		}
	}
	if best.IsZero() {
		return time.Time{}, false, nil
	}
	return best, true, nil
}

func (r *ExifReader) fieldTime(x *exif.Exif, field exif.FieldName) (time.Time, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return time.Time{}, false
	}
	raw, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	return ParseExifTime(raw, r.location)
}

// ParseExifTime parses an EXIF date string in loc. Zeroed placeholders such as
// "0000:00:00 00:00:00" fail to parse and report false.
func ParseExifTime(raw string, loc *time.Location) (time.Time, bool) {
	value := strings.Trim(raw, " \t\r\n\x00")
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range exifLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

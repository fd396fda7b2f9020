package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ExifDates selects which EXIF date tags WriteExifTIFF emits. Empty strings
// are omitted.
type ExifDates struct {
	DateTime          string
	DateTimeOriginal  string
	DateTimeDigitized string
}

// ExifStamp formats t the way cameras write EXIF dates.
func ExifStamp(t time.Time) string {
	return t.Format("2006:01:02 15:04:05")
}

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32
	data  []byte
}

const (
	tiffASCII = 2
	tiffLong  = 4
)

// WriteExifTIFF writes a minimal little-endian TIFF carrying the requested
// EXIF date tags. goexif decodes raw TIFF directly, so the file stands in for
// a JPEG or camera raw in tests. Values must be at least four bytes long.
func WriteExifTIFF(t testing.TB, path string, dates ExifDates) {
	t.Helper()

	var ifd0, exifIFD []tiffEntry
	if dates.DateTime != "" {
		ifd0 = append(ifd0, asciiEntry(0x0132, dates.DateTime))
	}
	if dates.DateTimeOriginal != "" {
		exifIFD = append(exifIFD, asciiEntry(0x9003, dates.DateTimeOriginal))
	}
	if dates.DateTimeDigitized != "" {
		exifIFD = append(exifIFD, asciiEntry(0x9004, dates.DateTimeDigitized))
	}
	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, tiffEntry{tag: 0x8769, typ: tiffLong, count: 1})
	}

	ifdSize := func(n int) uint32 { return uint32(2 + 12*n + 4) }
	ifd0Offset := uint32(8)
	exifOffset := ifd0Offset + ifdSize(len(ifd0))
	dataOffset := exifOffset
	if len(exifIFD) > 0 {
		dataOffset += ifdSize(len(exifIFD))
	}

	var blob []byte
	place := func(entries []tiffEntry) {
		for i := range entries {
			if entries[i].data == nil {
				continue
			}
			entries[i].value = dataOffset + uint32(len(blob))
			blob = append(blob, entries[i].data...)
		}
	}
	place(ifd0)
	place(exifIFD)
	for i := range ifd0 {
		if ifd0[i].tag == 0x8769 {
			ifd0[i].value = exifOffset
		}
	}

	le := binary.LittleEndian
	out := []byte{'I', 'I'}
	out = le.AppendUint16(out, 42)
	out = le.AppendUint32(out, ifd0Offset)
	writeIFD := func(entries []tiffEntry) {
		out = le.AppendUint16(out, uint16(len(entries)))
		for _, e := range entries {
			out = le.AppendUint16(out, e.tag)
			out = le.AppendUint16(out, e.typ)
			out = le.AppendUint32(out, e.count)
			out = le.AppendUint32(out, e.value)
		}
		out = le.AppendUint32(out, 0)
	}
	writeIFD(ifd0)
	if len(exifIFD) > 0 {
		writeIFD(exifIFD)
	}
	out = append(out, blob...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteExifImage writes a TIFF whose DateTimeOriginal is captured, padded
// with the file name so two images with equal timestamps still differ.
func WriteExifImage(t testing.TB, path string, captured time.Time) {
	t.Helper()

	WriteExifTIFF(t, path, ExifDates{DateTimeOriginal: ExifStamp(captured)})
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(filepath.Base(path)); err != nil {
		t.Fatalf("append %s: %v", path, err)
	}
}

func asciiEntry(tag uint16, value string) tiffEntry {
	data := append([]byte(value), 0)
	if len(data)%2 == 1 {
		data = append(data, 0)
	}
	return tiffEntry{tag: tag, typ: tiffASCII, count: uint32(len(value) + 1), data: data}
}

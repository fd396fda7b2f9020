package fileutil

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	tempPrefix = ".recsort-"
	tempSuffix = ".tmp"
)

// ErrExists is returned when the destination appeared before the copy could
// be committed.
var ErrExists = errors.New("destination already exists")

// IsTempName reports whether name is an in-flight copy written by CopyAtomic.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}

// CopyOptions tunes CopyAtomic.
type CopyOptions struct {
	// Verify re-reads the written file and compares its SHA256 with the
	// source stream before committing.
	Verify bool
}

// CopyAtomic copies src to dst through a temp file in dst's directory, then
// commits it with a no-replace rename. The source modification time and
// permission bits are preserved. On any failure the temp file is removed and
// dst is left untouched. Returns the number of bytes copied.
func CopyAtomic(ctx context.Context, src, dst string, opts CopyOptions) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPrefix+"*"+tempSuffix)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	srcHasher := sha256.New()
	var reader io.Reader = &contextReader{ctx: ctx, r: in}
	if opts.Verify {
		reader = io.TeeReader(reader, srcHasher)
	}

	written, err := io.Copy(tmp, reader)
	if err != nil {
		return 0, err
	}
	if written != srcInfo.Size() {
		return 0, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if opts.Verify {
		if err := tmp.Sync(); err != nil {
			return 0, fmt.Errorf("sync temp file: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}

	if opts.Verify {
		dstHasher := sha256.New()
		if err := hashFile(tmpPath, dstHasher); err != nil {
			return 0, fmt.Errorf("verify copy: %w", err)
		}
		if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
			return 0, fmt.Errorf("copy hash mismatch: file corrupted during copy")
		}
	}

	if err := os.Chmod(tmpPath, srcInfo.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Chtimes(tmpPath, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return 0, fmt.Errorf("preserve mtime: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := renameNoReplace(tmpPath, dst); err != nil {
		return 0, err
	}
	committed = true
	return written, nil
}

// SameContent reports whether a and b hold identical bytes. Sizes are
// compared first; the contents are streamed only when they match.
func SameContent(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if ai.Size() != bi.Size() {
		return false, nil
	}

	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	const chunkSize = 64 * 1024
	bufA := make([]byte, chunkSize)
	bufB := make([]byte, chunkSize)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA := errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		doneB := errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		if errA != nil && !doneA {
			return false, errA
		}
		if errB != nil && !doneB {
			return false, errB
		}
		if doneA || doneB {
			return doneA && doneB, nil
		}
	}
}

func hashFile(path string, h hash.Hash) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// renameFallback commits without kernel no-replace support. The existence
// check and rename are not atomic; the destination lock keeps other recsort
// runs out of the window.
func renameFallback(oldpath, newpath string) error {
	if _, err := os.Lstat(newpath); err == nil {
		return fmt.Errorf("%s: %w", newpath, ErrExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(oldpath, newpath)
}

package fileutil

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func renameNoReplace(oldpath, newpath string) error {
	err := unix.Renameat2(unix.AT_FDCWD, oldpath, unix.AT_FDCWD, newpath, unix.RENAME_NOREPLACE)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EEXIST):
		return fmt.Errorf("%s: %w", newpath, ErrExists)
	case errors.Is(err, unix.EINVAL), errors.Is(err, unix.ENOSYS), errors.Is(err, unix.ENOTSUP):
		// vfat, exfat and some FUSE mounts reject the flag.
		return renameFallback(oldpath, newpath)
	default:
		return fmt.Errorf("rename %s: %w", newpath, err)
	}
}

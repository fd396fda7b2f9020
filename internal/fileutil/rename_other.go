//go:build !linux

package fileutil

func renameNoReplace(oldpath, newpath string) error {
	return renameFallback(oldpath, newpath)
}

// Package fileutil copies files into the destination tree without ever
// exposing a partial file or replacing an existing one.
//
// CopyAtomic writes to a hidden temp file in the target directory and
// commits it with a no-replace rename. Leftover temp files are recognised by
// IsTempName.
package fileutil

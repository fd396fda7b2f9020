// Package naming derives output file names and resolves collisions with
// "(n)" suffixes.
package naming

// Package filetype classifies recovered files by extension and names the
// destination folder for each type.
package filetype

// Package sorter runs a complete sort of a recovered-files tree.
//
// A run has three phases. Scan enumerates the source and reads capture times
// for images. Segment groups every dated image into events once, before any
// file is placed. Copy walks the files in enumeration order, plans each
// destination sequentially, and hands the copies to a bounded worker pool.
//
// The destination tree is the only state consulted: a file whose planned
// name already holds identical bytes is skipped, so rerunning an interrupted
// or completed sort copies only what is missing.
package sorter

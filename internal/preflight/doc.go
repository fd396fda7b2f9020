// Package preflight checks the filesystem before a sort run copies anything.
//
// The sorter runs RunAll after scanning: a source it cannot read or a
// destination it cannot write aborts the run; too little free space is
// reported but does not abort, since a resumed run copies only what is
// missing. The CLI "config validate" command prints the same results.
package preflight

// Package scan enumerates the source tree and extracts capture times for
// images.
//
// Walk visits entries in lexical order and returns files in that order; the
// order drives deterministic planning later in a run.
package scan

// Package textutil provides filename text utilities.
//
// Recovered files arrive with names from whatever filesystem the recovery tool
// read, so names are normalized to Unicode NFC before they are compared or
// written, and characters that common destination filesystems reject are
// replaced.
package textutil

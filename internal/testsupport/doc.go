// Package testsupport holds fixtures shared by package tests: temp configs,
// patterned files, minimal EXIF-bearing TIFFs, and an opened journal.
package testsupport

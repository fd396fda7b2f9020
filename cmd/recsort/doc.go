// Package main hosts the recsort CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, applies
// explicit flag overrides on top of it, and hands the work to the sorter,
// journal, and preflight packages. Output meant for people (tables, trees,
// the progress bar) goes to the command's writers; structured logs go to
// stderr and the log file.
package main

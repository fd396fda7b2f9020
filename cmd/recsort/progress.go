package main

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"recsort/internal/sorter"
)

// progressObserver drives a terminal progress bar over the copy phase.
type progressObserver struct {
	out    io.Writer
	dryRun bool
	bar    *progressbar.ProgressBar
}

func newProgressObserver(out io.Writer, dryRun bool) *progressObserver {
	return &progressObserver{out: out, dryRun: dryRun}
}

func (p *progressObserver) OnStart(total int) {
	description := "copying"
	if p.dryRun {
		description = "planning"
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionFullWidth(),
	)
}

func (p *progressObserver) OnFile(sorter.FileResult) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progressObserver) OnPhase(name string, _ time.Duration) {
	if name == "copy" && p.bar != nil {
		_ = p.bar.Finish()
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

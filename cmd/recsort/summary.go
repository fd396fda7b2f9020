package main

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"recsort/internal/sorter"
)

func renderSummary(r *sorter.Report) string {
	mode := "copy"
	if r.DryRun {
		mode = "dry run"
	}
	status := "completed"
	if r.Cancelled {
		status = "interrupted"
	}
	pairs := [][2]string{
		{"Run", r.RunID},
		{"Source", r.Source},
		{"Destination", r.Dest},
		{"Mode", mode},
		{"Status", status},
		{"Files found", strconv.Itoa(r.Total)},
	}
	if r.DryRun {
		pairs = append(pairs, [2]string{"Planned", strconv.Itoa(r.Planned)})
	} else {
		pairs = append(pairs,
			[2]string{"Copied", strconv.Itoa(r.Copied)},
			[2]string{"Bytes copied", humanize.IBytes(uint64(r.BytesCopied))},
		)
	}
	pairs = append(pairs,
		[2]string{"Already present", strconv.Itoa(r.Skipped)},
		[2]string{"Failed", strconv.Itoa(r.Failed)},
		[2]string{"Images", fmt.Sprintf("%d (%d undated)", r.Images, r.Undated)},
		[2]string{"Events", strconv.Itoa(r.Events)},
		[2]string{"Duration", r.Duration().Round(time.Millisecond).String()},
	)
	if skipped := r.Scan.Symlinks + r.Scan.Irregular + r.Scan.Unreadable; skipped > 0 {
		pairs = append(pairs, [2]string{"Not scanned", fmt.Sprintf("%d (%d symlinks, %d special, %d unreadable)",
			skipped, r.Scan.Symlinks, r.Scan.Irregular, r.Scan.Unreadable)})
	}

	var b strings.Builder
	b.WriteString(renderKeyValues(pairs))
	if types := renderTypeCounts(r.ByType); types != "" {
		b.WriteString("\n")
		b.WriteString(types)
	}
	return b.String()
}

// renderTypeCounts lists type folders by descending file count.
func renderTypeCounts(byType map[string]int) string {
	if len(byType) == 0 {
		return ""
	}
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(byType))
	for name, count := range byType {
		entries = append(entries, entry{name, count})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.name, strconv.Itoa(e.count)})
	}
	return renderTable([]string{"Type", "Files"}, rows, []columnAlignment{alignLeft, alignRight})
}

// renderFailures lists up to limit failed files; "" when none failed.
func renderFailures(r *sorter.Report, limit int) string {
	var rows [][]string
	extra := 0
	for _, f := range r.Files {
		if f.Status != sorter.StatusFailed {
			continue
		}
		if len(rows) >= limit {
			extra++
			continue
		}
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		rows = append(rows, []string{f.Rel, msg})
	}
	if len(rows) == 0 {
		return ""
	}
	out := renderTable([]string{"Failed file", "Error"}, rows, nil)
	if extra > 0 {
		out += fmt.Sprintf("\n... and %d more (see the log file)", extra)
	}
	return out
}

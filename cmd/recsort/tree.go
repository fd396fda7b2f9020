package main

import (
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/disiqueira/gotree/v3"

	"recsort/internal/sorter"
)

type dirCounts struct {
	planned  int
	existing int
}

// renderPlanTree draws the destination directories a run touches, with the
// number of new and already present files in each.
func renderPlanTree(root string, files []sorter.FileResult) string {
	counts := make(map[string]*dirCounts)
	for _, f := range files {
		if f.DestRel == "" {
			continue
		}
		dir := path.Dir(f.DestRel)
		c := counts[dir]
		if c == nil {
			c = &dirCounts{}
			counts[dir] = c
		}
		switch f.Status {
		case sorter.StatusSkipped:
			c.existing++
		case sorter.StatusPlanned, sorter.StatusCopied:
			c.planned++
		}
	}

	dirs := make([]string, 0, len(counts))
	for dir := range counts {
		dirs = append(dirs, dir)
	}
	slices.SortFunc(dirs, compareDirs)

	tree := gotree.New(root)
	nodes := map[string]gotree.Tree{".": tree}
	var node func(dir string) gotree.Tree
	node = func(dir string) gotree.Tree {
		if n, ok := nodes[dir]; ok {
			return n
		}
		n := node(path.Dir(dir)).Add(path.Base(dir) + countLabel(counts[dir]))
		nodes[dir] = n
		return n
	}
	for _, dir := range dirs {
		node(dir)
	}
	return strings.TrimRight(tree.Print(), "\n")
}

func countLabel(c *dirCounts) string {
	if c == nil {
		return ""
	}
	switch {
	case c.existing == 0:
		return fmt.Sprintf(" (%d new)", c.planned)
	case c.planned == 0:
		return fmt.Sprintf(" (%d present)", c.existing)
	default:
		return fmt.Sprintf(" (%d new, %d present)", c.planned, c.existing)
	}
}

// compareDirs orders slash paths segment by segment, comparing numeric
// segments by value so event 10 sorts after event 9.
func compareDirs(a, b string) int {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

func compareSegment(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil && an != bn {
		return an - bn
	}
	return strings.Compare(a, b)
}

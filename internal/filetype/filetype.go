package filetype

import (
	"strings"

	"recsort/internal/textutil"
)

// Kind distinguishes images, which may carry a capture time, from all other files.
type Kind int

const (
	KindOther Kind = iota
	KindImage
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "other"
}

// Info is the classification of one file name.
type Info struct {
	// Ext is the case-folded extension without the dot; "" when absent.
	Ext  string
	Kind Kind
	// Folder is the type folder name used for non-image files.
	Folder string
}

// Classifier maps extensions to kinds. It is safe for concurrent use.
type Classifier struct {
	images   map[string]struct{}
	noExtDir string
	reserved map[string]struct{}
}

// NewClassifier builds a classifier treating imageExts as images. Files
// without an extension are foldered under noExtensionDir. An extension whose
// folder would equal noExtensionDir or one of reserved gets a "_" prefix.
func NewClassifier(imageExts []string, noExtensionDir string, reserved ...string) *Classifier {
	images := make(map[string]struct{}, len(imageExts))
	for _, ext := range imageExts {
		if folded := textutil.FoldExtension(ext); folded != "" {
			images[folded] = struct{}{}
		}
	}
	taken := map[string]struct{}{noExtensionDir: {}}
	for _, name := range reserved {
		taken[name] = struct{}{}
	}
	return &Classifier{images: images, noExtDir: noExtensionDir, reserved: taken}
}

// Classify returns the classification of a base file name.
func (c *Classifier) Classify(name string) Info {
	_, rawExt := SplitExt(name)
	ext := textutil.FoldExtension(rawExt)
	info := Info{Ext: ext, Kind: KindOther, Folder: c.folderFor(ext)}
	if _, ok := c.images[ext]; ok && ext != "" {
		info.Kind = KindImage
	}
	return info
}

func (c *Classifier) folderFor(ext string) string {
	if ext == "" {
		return c.noExtDir
	}
	folder := textutil.SanitizeFileName(ext)
	if folder == "" || folder == "." || folder == ".." {
		return c.noExtDir
	}
	// Shard directories are named "<folder>-<n>".
	if IsShardSuffixed(folder) {
		idx := strings.LastIndexByte(folder, '-')
		folder = folder[:idx] + "_" + folder[idx+1:]
	}
	// All-digit extensions would sit beside the year folders.
	if isDigits(folder) {
		return "_" + folder
	}
	for {
		if _, clash := c.reserved[folder]; !clash {
			return folder
		}
		folder = "_" + folder
	}
}

// IsShardSuffixed reports whether name ends in "-<digits>", the shape of an
// overflow shard directory.
func IsShardSuffixed(name string) bool {
	idx := strings.LastIndexByte(name, '-')
	return idx >= 0 && isDigits(name[idx+1:])
}

// SplitExt splits a base name into stem and extension (without the dot).
// Leading dots mark hidden files, not extensions, and a trailing dot yields
// no extension.
func SplitExt(name string) (string, string) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || strings.Trim(name[:idx], ".") == "" {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

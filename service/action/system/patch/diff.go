package patch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffStats summarises a unified diff.
type DiffStats struct {
	FilesChanged int `json:"filesChanged,omitempty"`
	Insertions   int `json:"insertions,omitempty"`
	Deletions    int `json:"deletions,omitempty"`
	Hunks        int `json:"hunks,omitempty"`
}

// DiffResult is a generated unified diff with its statistics.
type DiffResult struct {
	Patch string    `json:"patch,omitempty"`
	Stats DiffStats `json:"stats,omitempty"`
}

// ErrNoChange indicates old and new content are identical.
var ErrNoChange = errors.New("no change between old and new")

// GenerateDiff produces a unified diff between two revisions of a document.
func GenerateDiff(old, new []byte, path string, contextLines int) (DiffResult, error) {
	if bytes.Equal(old, new) {
		return DiffResult{}, ErrNoChange
	}
	if path == "" {
		path = "file"
	}
	if contextLines <= 0 {
		contextLines = 3
	}
	unified := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(old)),
		B:        difflib.SplitLines(string(new)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  contextLines,
	}
	text, err := difflib.GetUnifiedDiffString(unified)
	if err != nil {
		return DiffResult{}, fmt.Errorf("diff generation: %w", err)
	}
	stats := patchStats(text)
	stats.FilesChanged = 1
	return DiffResult{Patch: text, Stats: stats}, nil
}

// patchStats extracts basic statistics from unified-diff text.
func patchStats(patch string) DiffStats {
	stats := DiffStats{}
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			stats.Hunks++
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			stats.Insertions++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			stats.Deletions++
		}
	}
	if patch != "" && stats.FilesChanged == 0 {
		stats.FilesChanged = 1
	}
	return stats
}

package patch

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	sgdiff "github.com/sourcegraph/go-diff/diff"
)

// ApplyPatch applies a unified diff to the filesystem within the session.
// Added, deleted, moved and updated files all become rollback entries.
func (s *Session) ApplyPatch(patchText string) error {
	fileDiffs, err := sgdiff.ParseMultiFileDiff([]byte(patchText))
	if err != nil {
		return fmt.Errorf("parse patch: %w", err)
	}
	for _, fileDiff := range fileDiffs {
		orig := strings.TrimPrefix(fileDiff.OrigName, "a/")
		newer := strings.TrimPrefix(fileDiff.NewName, "b/")
		switch {
		case fileDiff.NewName != "/dev/null" && fileDiff.OrigName == "/dev/null":
			var buf bytes.Buffer
			if err := applyHunks(nil, fileDiff.Hunks, &buf); err != nil {
				return err
			}
			if err := s.Add(newer, buf.Bytes()); err != nil {
				return err
			}
		case fileDiff.NewName == "/dev/null" && fileDiff.OrigName != "/dev/null":
			if err := s.Delete(orig); err != nil {
				return err
			}
		case orig != newer && len(fileDiff.Hunks) == 0:
			if err := s.Move(orig, newer); err != nil {
				return err
			}
		default:
			oldData, err := os.ReadFile(orig)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := applyHunks(oldData, fileDiff.Hunks, &buf); err != nil {
				return err
			}
			target := orig
			if orig != newer {
				if err := s.Move(orig, newer); err != nil {
					return err
				}
				target = newer
			}
			if err := s.Update(target, buf.Bytes()); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyHunks walks the original lines sequentially, verifies every context
// and delete line, and emits additions. Any mismatch aborts.
func applyHunks(oldData []byte, hunks []*sgdiff.Hunk, w io.Writer) error {
	oldLines := strings.SplitAfter(string(oldData), "\n")
	origIdx := 0

	linesEqual := func(a, b string) bool {
		if a == b {
			return true
		}
		// SplitAfter leaves a trailing empty element where the diff encodes
		// the final newline as a "\n" context line
		return (a == "" && b == "\n") || (a == "\n" && b == "")
	}

	for _, hunk := range hunks {
		targetIdx := int(hunk.OrigStartLine) - 1
		for origIdx < targetIdx && origIdx < len(oldLines) {
			if _, err := io.WriteString(w, oldLines[origIdx]); err != nil {
				return err
			}
			origIdx++
		}
		for _, hunkLine := range strings.SplitAfter(string(hunk.Body), "\n") {
			if hunkLine == "" {
				continue
			}
			tag := hunkLine[0]
			line := hunkLine[1:]
			switch tag {
			case ' ':
				if origIdx >= len(oldLines) || !linesEqual(oldLines[origIdx], line) {
					return fmt.Errorf("patch failed: context mismatch at original line %d", origIdx+1)
				}
				// implicit newline terminating the file was already emitted
				if !(oldLines[origIdx] == "" && line == "\n") {
					if _, err := io.WriteString(w, line); err != nil {
						return err
					}
				}
				origIdx++
			case '-':
				if origIdx >= len(oldLines) || !linesEqual(oldLines[origIdx], line) {
					return fmt.Errorf("patch failed: delete mismatch at original line %d", origIdx+1)
				}
				origIdx++
			case '+':
				if _, err := io.WriteString(w, line); err != nil {
					return err
				}
			case '\\':
				continue
			default:
				return fmt.Errorf("patch failed: unexpected hunk tag %q", tag)
			}
		}
	}
	for origIdx < len(oldLines) {
		if _, err := io.WriteString(w, oldLines[origIdx]); err != nil {
			return err
		}
		origIdx++
	}
	return nil
}

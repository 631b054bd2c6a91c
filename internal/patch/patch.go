// Package patch applies unified-diff documents to files on disk.
//
// Parsing of the diff grammar (file headers, hunk headers, line prefixes)
// is delegated to sourcegraph/go-diff; application is a strict cursor walk
// over the original content that refuses to write anything when a context
// or deletion line no longer matches the file.
package patch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

var (
	// ErrNoFiles is returned for a diff document with no file blocks.
	ErrNoFiles = errors.New("diff contains no file blocks")

	// ErrContextMismatch means a context line no longer matches the file.
	ErrContextMismatch = errors.New("context mismatch")

	// ErrRemovalMismatch means a deletion line no longer matches the file.
	ErrRemovalMismatch = errors.New("removal mismatch")
)

// Apply parses diffText and applies every file block to the corresponding
// file under rootDir. A missing target file is treated as empty, so
// file-creation patches work. All files are reconstructed and verified in
// memory first; nothing is written unless every hunk of every file applies
// cleanly.
func Apply(diffText string, rootDir string) error {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(diffText)).ReadAllFiles()
	if err != nil {
		return fmt.Errorf("parse diff: %w", err)
	}
	if len(fileDiffs) == 0 {
		return ErrNoFiles
	}

	type pendingWrite struct {
		path    string
		content string
	}

	writes := make([]pendingWrite, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		rel := targetPath(fd)
		if rel == "" {
			return fmt.Errorf("diff block has no usable file path (old=%q new=%q)", fd.OrigName, fd.NewName)
		}
		// Diffs come from an external collaborator; a path that resolves
		// outside rootDir is never applied.
		rel = filepath.Clean(rel)
		if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("diff path %q escapes the work tree", rel)
		}
		abs := filepath.Join(rootDir, rel)

		original := ""
		if b, readErr := os.ReadFile(abs); readErr == nil {
			original = string(b)
		} else if !os.IsNotExist(readErr) {
			return fmt.Errorf("read %s: %w", rel, readErr)
		}

		content, applyErr := applyHunks(original, fd.Hunks)
		if applyErr != nil {
			return fmt.Errorf("%s: %w", rel, applyErr)
		}
		writes = append(writes, pendingWrite{path: abs, content: content})
	}

	for _, w := range writes {
		if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
			return fmt.Errorf("create directory for %s: %w", w.path, err)
		}
		if err := os.WriteFile(w.path, []byte(w.content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", w.path, err)
		}
	}
	return nil
}

// targetPath picks the path a file block applies to, preferring the new
// path and stripping VCS-style a/ and b/ prefixes.
func targetPath(fd *diff.FileDiff) string {
	path := fd.NewName
	if path == "" || path == "/dev/null" {
		path = fd.OrigName
	}
	if path == "/dev/null" {
		return ""
	}
	path = strings.TrimPrefix(path, "a/")
	path = strings.TrimPrefix(path, "b/")
	return path
}

// applyHunks reconstructs the new file content from original and the
// ordered hunks. The cursor tracks the next unconsumed original line;
// lines between hunks are carried through verbatim. A missing target
// reads as a single empty line, so created files end with a trailing
// newline unless the diff's no-newline marker says otherwise.
func applyHunks(original string, hunks []*diff.Hunk) (string, error) {
	lines := strings.Split(original, "\n")

	var out []string
	cursor := 0
	noTrailingNewline := false

	for _, h := range hunks {
		start := int(h.OrigStartLine) - 1
		if start < 0 {
			// @@ -0,0 ... @@ for file creation.
			start = 0
		}
		if start > len(lines) {
			return "", fmt.Errorf("hunk @@ -%d,%d @@ starts beyond end of file (%d lines): %w",
				h.OrigStartLine, h.OrigLines, len(lines), ErrContextMismatch)
		}
		for cursor < start {
			out = append(out, lines[cursor])
			cursor++
		}

		body := strings.TrimSuffix(string(h.Body), "\n")
		prevAdded := false
		for _, bodyLine := range strings.Split(body, "\n") {
			if strings.HasPrefix(bodyLine, `\`) {
				// "\ No newline at end of file": trailing an added line,
				// it means the new content ends without a newline.
				if prevAdded {
					noTrailingNewline = true
				}
				continue
			}
			switch {
			case strings.HasPrefix(bodyLine, "+"):
				out = append(out, bodyLine[1:])
				prevAdded = true
			case strings.HasPrefix(bodyLine, "-"):
				want := bodyLine[1:]
				if cursor >= len(lines) || lines[cursor] != want {
					return "", mismatchErr(ErrRemovalMismatch, cursor, want, lines)
				}
				cursor++
				prevAdded = false
			default:
				// Context: a leading space, or an entirely empty line
				// (some generators drop the space on blank context lines).
				want := strings.TrimPrefix(bodyLine, " ")
				if cursor >= len(lines) || lines[cursor] != want {
					return "", mismatchErr(ErrContextMismatch, cursor, want, lines)
				}
				out = append(out, lines[cursor])
				cursor++
				prevAdded = false
			}
		}
	}

	out = append(out, lines[cursor:]...)
	content := strings.Join(out, "\n")
	if noTrailingNewline {
		content = strings.TrimSuffix(content, "\n")
	}
	return content, nil
}

func mismatchErr(kind error, cursor int, want string, lines []string) error {
	have := "<end of file>"
	if cursor < len(lines) {
		have = fmt.Sprintf("%q", lines[cursor])
	}
	return fmt.Errorf("line %d: %w: want %q, have %s", cursor+1, kind, want, have)
}

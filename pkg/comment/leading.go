// SPDX-License-Identifier: MPL-2.0

// Package comment extracts a short description from the comment block at the
// top of a text file.
//
// The heuristic looks only at the first line to decide the comment style:
// a Python triple-quoted string, a C block comment, or a run of line
// comments introduced by #, // or --. Decoration such as the leading "*" on
// block comment continuation lines is stripped.
package comment

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// MaxHeadBytes bounds how much of a file is inspected.
const MaxHeadBytes = 64 * 1024

var (
	tripleQuotes = []string{`"""`, "'''"}
	lineMarkers  = []string{"#", "//", "--"}
)

// Leading returns the leading comment of the file at path, or "" when the
// file is unreadable, is not UTF-8 text, or does not start with a comment.
func Leading(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, MaxHeadBytes+1))
	if err != nil {
		return ""
	}
	if len(head) > MaxHeadBytes {
		// Drop the partial final line rather than misjudge a split rune.
		head = head[:MaxHeadBytes]
		if i := bytes.LastIndexByte(head, '\n'); i >= 0 {
			head = head[:i]
		}
	}
	if !utf8.Valid(head) {
		return ""
	}
	return FromText(string(head))
}

// FromText returns the leading comment of text.
func FromText(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return FromLines(lines)
}

// FromLines returns the leading comment found at the start of lines.
func FromLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	first := strings.TrimSpace(lines[0])

	for _, delim := range tripleQuotes {
		if strings.HasPrefix(first, delim) {
			return quoted(first[len(delim):], lines[1:], delim)
		}
	}

	if strings.HasPrefix(first, "/*") {
		return block(first[len("/*"):], lines[1:])
	}

	for _, marker := range lineMarkers {
		if strings.HasPrefix(first, marker) {
			return lineRun(lines, marker)
		}
	}
	return ""
}

// quoted handles a docstring opened on the first line.
func quoted(afterOpen string, rest []string, delim string) string {
	if end := strings.Index(afterOpen, delim); end >= 0 {
		return strings.TrimSpace(afterOpen[:end])
	}

	parts := []string{afterOpen}
	for _, line := range rest {
		if end := strings.Index(line, delim); end >= 0 {
			parts = append(parts, line[:end])
			return strings.TrimSpace(strings.Join(parts, "\n"))
		}
		parts = append(parts, line)
	}
	return ""
}

// block handles a /* */ comment opened on the first line.
func block(afterOpen string, rest []string) string {
	if end := strings.Index(afterOpen, "*/"); end >= 0 {
		return strings.TrimSpace(afterOpen[:end])
	}

	raw := []string{afterOpen}
	closed := false
	for _, line := range rest {
		if end := strings.Index(line, "*/"); end >= 0 {
			raw = append(raw, line[:end])
			closed = true
			break
		}
		raw = append(raw, line)
	}
	if !closed {
		return ""
	}

	var cleaned []string
	if first := strings.TrimSpace(raw[0]); first != "" {
		cleaned = append(cleaned, first)
	}
	for _, line := range raw[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if after, ok := strings.CutPrefix(trimmed, "*"); ok {
			after = strings.TrimPrefix(after, " ")
			cleaned = append(cleaned, strings.TrimRight(after, " \t"))
			continue
		}
		cleaned = append(cleaned, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// lineRun collects consecutive lines that start with marker.
func lineRun(lines []string, marker string) string {
	var parts []string
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, marker) {
			break
		}
		parts = append(parts, strings.TrimSpace(trimmed[len(marker):]))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

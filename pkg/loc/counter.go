// SPDX-License-Identifier: MPL-2.0

// Package loc counts logical lines of code with a comment-aware state machine.
//
// A physical line counts when non-whitespace text remains after every comment
// span on it is removed. The scanner recognizes block comments delimited by
// /* */, """ """ and ''' ''', and line comments introduced by // or #. It is
// driven purely by textual patterns and does not depend on the file type.
package loc

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Unreadable is returned by the reader and file helpers when input cannot be
// read or is not valid UTF-8 text.
const Unreadable = -1

const (
	// StateCode scans ordinary text looking for comment openers.
	StateCode State = iota
	// StateLineComment consumes the remainder of the current physical line.
	StateLineComment
	// StateBlockComment persists across lines until its closer is found.
	StateBlockComment
)

type (
	// State is a scanner state.
	State int

	// Counter is the line-counting state machine. Feed it physical lines in
	// order; Count reports the logical lines seen so far. The zero value is
	// ready to use.
	Counter struct {
		state  State
		closer string
		count  int
	}

	token struct {
		open  string
		close string // empty for line comments
	}
)

// tokens lists every recognized opener. When several occur on a line the
// earliest position wins.
var tokens = []token{
	{open: "/*", close: "*/"},
	{open: `"""`, close: `"""`},
	{open: "'''", close: "'''"},
	{open: "//"},
	{open: "#"},
}

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCode:
		return "CODE"
	case StateLineComment:
		return "LINE_COMMENT"
	case StateBlockComment:
		return "BLOCK_COMMENT"
	default:
		return "UNKNOWN"
	}
}

// State returns the current scanner state and, inside a block comment, the
// closer being searched for.
func (c *Counter) State() (State, string) {
	return c.state, c.closer
}

// Count returns the number of logical lines fed so far.
func (c *Counter) Count() int {
	return c.count
}

// Feed consumes one physical line. A trailing newline is ignored.
func (c *Counter) Feed(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}

	hasCode := false
	rest := line
	for rest != "" {
		switch c.state {
		case StateBlockComment:
			i := strings.Index(rest, c.closer)
			if i < 0 {
				rest = ""
				continue
			}
			rest = rest[i+len(c.closer):]
			c.state, c.closer = StateCode, ""

		case StateLineComment:
			rest = ""

		default:
			pos, tok := nextToken(rest)
			if pos < 0 {
				if strings.TrimSpace(rest) != "" {
					hasCode = true
				}
				rest = ""
				continue
			}
			if strings.TrimSpace(rest[:pos]) != "" {
				hasCode = true
			}
			rest = rest[pos+len(tok.open):]
			if tok.close == "" {
				c.state = StateLineComment
			} else {
				c.state, c.closer = StateBlockComment, tok.close
			}
		}
	}

	// Line comments never outlive their physical line.
	if c.state == StateLineComment {
		c.state = StateCode
	}
	if hasCode {
		c.count++
	}
}

// nextToken returns the position and kind of the earliest opener in s, or -1.
func nextToken(s string) (int, token) {
	best := -1
	var found token
	for _, tok := range tokens {
		i := strings.Index(s, tok.open)
		if i >= 0 && (best < 0 || i < best) {
			best, found = i, tok
		}
	}
	return best, found
}

// CountLines counts logical lines in a slice of physical lines. An unterminated
// block comment is not an error: lines after its opener simply do not count.
func CountLines(lines []string) int {
	var c Counter
	for _, line := range lines {
		c.Feed(line)
	}
	return c.Count()
}

// CountString splits text on newlines and counts its logical lines.
func CountString(text string) int {
	return CountLines(strings.Split(text, "\n"))
}

// CountReader streams r line by line. It returns Unreadable when r fails or
// yields invalid UTF-8.
func CountReader(r io.Reader) int {
	br := bufio.NewReader(r)
	var c Counter
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if !utf8.ValidString(line) {
				return Unreadable
			}
			c.Feed(line)
		}
		if errors.Is(err, io.EOF) {
			return c.Count()
		}
		if err != nil {
			return Unreadable
		}
	}
}

// CountFile counts the logical lines of the file at path, or returns
// Unreadable.
func CountFile(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return Unreadable
	}
	defer f.Close()
	return CountReader(f)
}

// Package stream rebuilds generated text from the fragment lines of a service response.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMarker prefixes event lines in the service response.
	DefaultMarker = "data: "
	// DefaultNewlineToken stands in for a literal newline inside a fragment.
	DefaultNewlineToken = "[h_newline]"

	newline               = "\n"
	initialScanBufferSize = 64 * 1024
	maximumFragmentSize   = 16 * 1024 * 1024
)

// Reassembler strips the event marker from each fragment and expands newline tokens.
type Reassembler struct {
	marker       string
	newlineToken string
}

// NewReassembler constructs a Reassembler. Empty arguments select the defaults.
func NewReassembler(marker string, newlineToken string) Reassembler {
	if marker == "" {
		marker = DefaultMarker
	}
	if newlineToken == "" {
		newlineToken = DefaultNewlineToken
	}
	return Reassembler{marker: marker, newlineToken: newlineToken}
}

// Fragment processes one fragment: the first marker occurrence is removed and every
// newline token becomes "\n".
func (reassembler Reassembler) Fragment(fragment string) string {
	stripped := strings.Replace(fragment, reassembler.marker, "", 1)
	return strings.ReplaceAll(stripped, reassembler.newlineToken, newline)
}

// Reassemble concatenates processed fragments in arrival order without separators.
// An empty sequence yields the empty string.
func (reassembler Reassembler) Reassemble(fragments iter.Seq[string]) string {
	var builder strings.Builder
	for fragment := range fragments {
		builder.WriteString(reassembler.Fragment(fragment))
	}
	return builder.String()
}

// ReadAll reassembles a response body, treating each line as one fragment.
func (reassembler Reassembler) ReadAll(reader io.Reader) (string, error) {
	var scanErr error
	text := reassembler.Reassemble(func(yield func(string) bool) {
		scanner := newFragmentScanner(reader)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
		scanErr = scanner.Err()
	})
	if scanErr != nil {
		return "", fmt.Errorf("read response fragments: %w", scanErr)
	}
	return text, nil
}

// Lines splits text into fragments the same way ReadAll does.
func Lines(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		scanner := newFragmentScanner(strings.NewReader(text))
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}
}

func newFragmentScanner(reader io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, initialScanBufferSize), maximumFragmentSize)
	scanner.Split(splitFragments)
	return scanner
}

// splitFragments breaks on "\r\n", "\n", "\r", "\v", "\f", the file/group/record
// separators, NEL, and the Unicode line and paragraph separators. Boundaries are dropped.
func splitFragments(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for index := 0; index < len(data); {
		character, size := utf8.DecodeRune(data[index:])
		if character == '\r' {
			if index+1 < len(data) {
				if data[index+1] == '\n' {
					return index + 2, data[:index], nil
				}
				return index + 1, data[:index], nil
			}
			if !atEOF {
				return 0, nil, nil
			}
			return index + 1, data[:index], nil
		}
		if isFragmentBoundary(character) {
			return index + size, data[:index], nil
		}
		index += size
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func isFragmentBoundary(character rune) bool {
	switch character {
	case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

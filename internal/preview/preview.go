// Package preview renders the change a documentation run would make as a unified line diff.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContextLines is the number of unchanged lines shown around each change.
const DefaultContextLines = 3

// LineKind classifies a diff line.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// Line is one line of the line-level diff. Positions are 0-based indexes of the
// line in the original and updated text; the side a line is absent from holds
// the index the next line on that side would have.
type Line struct {
	Kind        LineKind
	Text        string
	OldPosition int
	NewPosition int
}

// Hunk is a run of changed lines with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

var linePrefixes = map[LineKind]string{
	LineContext: " ",
	LineAdded:   "+",
	LineRemoved: "-",
}

// Lines computes the line-level diff between original and updated.
func Lines(original string, updated string) []Line {
	matcher := diffmatchpatch.New()
	matcher.DiffTimeout = 0
	oldChars, newChars, lineArray := matcher.DiffLinesToChars(original, updated)
	diffs := matcher.DiffCharsToLines(matcher.DiffMain(oldChars, newChars, false), lineArray)

	var lines []Line
	oldPosition, newPosition := 0, 0
	for _, diff := range diffs {
		for text := range strings.Lines(diff.Text) {
			line := Line{Text: strings.TrimSuffix(text, "\n"), OldPosition: oldPosition, NewPosition: newPosition}
			switch diff.Type {
			case diffmatchpatch.DiffEqual:
				line.Kind = LineContext
				oldPosition++
				newPosition++
			case diffmatchpatch.DiffDelete:
				line.Kind = LineRemoved
				oldPosition++
			case diffmatchpatch.DiffInsert:
				line.Kind = LineAdded
				newPosition++
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// Hunks groups the changes between original and updated, keeping contextLines of
// unchanged text around each. Overlapping or touching hunks are merged.
func Hunks(original string, updated string, contextLines int) []Hunk {
	if contextLines < 0 {
		contextLines = 0
	}
	lines := Lines(original, updated)

	var hunks []Hunk
	hunkStart, hunkEnd := -1, -1
	for lineIndex, line := range lines {
		if line.Kind == LineContext {
			continue
		}
		start := max(0, lineIndex-contextLines)
		end := min(len(lines), lineIndex+contextLines+1)
		if hunkStart >= 0 && start <= hunkEnd {
			hunkEnd = end
			continue
		}
		if hunkStart >= 0 {
			hunks = append(hunks, newHunk(lines[hunkStart:hunkEnd]))
		}
		hunkStart, hunkEnd = start, end
	}
	if hunkStart >= 0 {
		hunks = append(hunks, newHunk(lines[hunkStart:hunkEnd]))
	}
	return hunks
}

func newHunk(lines []Line) Hunk {
	hunk := Hunk{Lines: lines, OldStart: lines[0].OldPosition, NewStart: lines[0].NewPosition}
	for _, line := range lines {
		if line.Kind != LineAdded {
			hunk.OldCount++
		}
		if line.Kind != LineRemoved {
			hunk.NewCount++
		}
	}
	if hunk.OldCount > 0 {
		hunk.OldStart++
	}
	if hunk.NewCount > 0 {
		hunk.NewStart++
	}
	return hunk
}

// Render writes a unified diff of original and updated for path to writer.
// Nothing is written when the texts are equal.
func Render(writer io.Writer, path string, original string, updated string) error {
	hunks := Hunks(original, updated, DefaultContextLines)
	if len(hunks) == 0 {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "--- %s\n+++ %s\n", path, path)
	for _, hunk := range hunks {
		fmt.Fprintf(&builder, "@@ -%d,%d +%d,%d @@\n", hunk.OldStart, hunk.OldCount, hunk.NewStart, hunk.NewCount)
		for _, line := range hunk.Lines {
			builder.WriteString(linePrefixes[line.Kind])
			builder.WriteString(line.Text)
			builder.WriteString("\n")
		}
	}
	if _, err := io.WriteString(writer, builder.String()); err != nil {
		return fmt.Errorf("write preview for %s: %w", path, err)
	}
	return nil
}

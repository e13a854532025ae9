// Package splice inserts doc comments into declaration text and applies the
// merged declarations back onto the file buffer.
package splice

import (
	"strings"

	"github.com/temirov/jdoc/internal/types"
)

const (
	lineFeed          = "\n"
	carriageReturnLF  = "\r\n"
	carriageReturn    = "\r"
	leadingWhitespace = " \t\v\f\r"
)

// InsertDocComment places comment immediately above the first non-blank line of
// declaration. Every non-blank comment line is prefixed with that line's indentation;
// blank comment lines are kept as they are. Lines of declaration are not altered.
func InsertDocComment(declaration string, comment string) string {
	terminator := lineTerminator(declaration)
	var lines []string
	if declaration != "" {
		lines = strings.Split(strings.TrimSuffix(declaration, terminator), terminator)
	}

	anchorIndex := 0
	indent := ""
	for lineIndex, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		anchorIndex = lineIndex
		indent = line[:len(line)-len(strings.TrimLeft(line, leadingWhitespace))]
		break
	}

	commentLines := splitCommentLines(comment)
	for lineIndex, commentLine := range commentLines {
		if strings.TrimSpace(commentLine) == "" {
			continue
		}
		commentLines[lineIndex] = indent + commentLine
	}

	var builder strings.Builder
	if anchorIndex > 0 {
		builder.WriteString(strings.Join(lines[:anchorIndex], terminator))
		builder.WriteString(terminator)
	}
	builder.WriteString(strings.Join(commentLines, terminator))
	builder.WriteString(terminator)
	builder.WriteString(strings.Join(lines[anchorIndex:], terminator))
	if len(lines) > 0 && strings.HasSuffix(declaration, terminator) {
		builder.WriteString(terminator)
	}
	return builder.String()
}

// Merge builds the MergeResult for span and comment.
func Merge(span types.DeclarationSpan, comment string) types.MergeResult {
	return types.MergeResult{
		Span:         span,
		OriginalText: span.SourceText,
		MergedText:   InsertDocComment(span.SourceText, comment),
	}
}

// ApplyReport describes what Apply did with each merge.
type ApplyReport struct {
	Applied []types.MergeResult
	Missing []types.MergeResult
}

// Apply replaces, for each merge in order, the first occurrence of its original
// text in buffer with the merged text. A merge whose original text is no longer
// present is skipped and listed in the report's Missing slice.
//
// Matching is by text, not offsets: when two declarations share identical text
// only the first occurrence in the buffer is ever replaced.
func Apply(buffer string, merges []types.MergeResult) (string, ApplyReport) {
	var report ApplyReport
	for _, merge := range merges {
		updated, replaced := ReplaceFirst(buffer, merge.OriginalText, merge.MergedText)
		if !replaced {
			report.Missing = append(report.Missing, merge)
			continue
		}
		buffer = updated
		report.Applied = append(report.Applied, merge)
	}
	return buffer, report
}

// ReplaceFirst substitutes the first occurrence of original in buffer.
func ReplaceFirst(buffer string, original string, replacement string) (string, bool) {
	position := strings.Index(buffer, original)
	if position < 0 || original == "" {
		return buffer, false
	}
	return buffer[:position] + replacement + buffer[position+len(original):], true
}

func lineTerminator(text string) string {
	if strings.Contains(text, carriageReturnLF) {
		return carriageReturnLF
	}
	return lineFeed
}

func splitCommentLines(comment string) []string {
	if comment == "" {
		return []string{""}
	}
	lines := strings.Split(strings.TrimSuffix(comment, lineFeed), lineFeed)
	for lineIndex, line := range lines {
		lines[lineIndex] = strings.TrimSuffix(line, carriageReturn)
	}
	return lines
}

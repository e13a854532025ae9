// Package locator finds documentable declarations in a parsed source file.
package locator

import (
	"iter"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/temirov/jdoc/internal/syntax"
	"github.com/temirov/jdoc/internal/types"
)

const (
	// lookbackLineLimit bounds how many lines above a declaration are searched for a doc comment.
	lookbackLineLimit = 5
	docCommentOpener  = "/**"
	commentCloser     = "*/"
	blockCommentStart = "/*"
	horizontalSpace   = " \t"
	trailingSpace     = " \t\r\n"
	continuationStar  = "*"
	lineCommentPrefix = "//"
)

// singleLineDocPattern matches a complete doc comment on one line.
var singleLineDocPattern = regexp.MustCompile(`/\*\*.*\*/`)

// Options configures which declarations are reported and how existing docs are detected.
type Options struct {
	Kinds     []string
	Detection string
}

// Locator walks syntax trees and reports documentable declarations.
type Locator struct {
	kinds     map[string]struct{}
	detection string
}

// New constructs a Locator. Empty options select the default kinds and heuristic detection.
func New(options Options) *Locator {
	kinds := options.Kinds
	if len(kinds) == 0 {
		kinds = types.DefaultDeclarationKinds
	}
	kindSet := make(map[string]struct{}, len(kinds))
	for _, kind := range kinds {
		trimmed := strings.TrimSpace(kind)
		if trimmed == "" {
			continue
		}
		kindSet[trimmed] = struct{}{}
	}
	detection := options.Detection
	if detection != types.DetectionStructural {
		detection = types.DetectionHeuristic
	}
	return &Locator{kinds: kindSet, detection: detection}
}

// Declarations yields one span per documentable node of root in pre-order, so an
// enclosing class is reported before its members. The sequence re-walks the tree
// each time it is ranged over.
//
// In heuristic mode a doc comment is only recognized when "/**" and "*/" share a
// line within the five lines above the declaration; multi-line comments whose
// opener is further up are reported as undocumented.
func (locator *Locator) Declarations(root syntax.Node, source string) iter.Seq[types.DeclarationSpan] {
	return func(yield func(types.DeclarationSpan) bool) {
		if root == nil {
			return
		}
		index := newLineIndex(source)
		var visit func(node syntax.Node) bool
		visit = func(node syntax.Node) bool {
			if _, documentable := locator.kinds[node.Kind()]; documentable {
				if span, ok := locator.describe(node, source, index); ok {
					if !yield(span) {
						return false
					}
				}
			}
			for _, child := range node.Children() {
				if !visit(child) {
					return false
				}
			}
			return true
		}
		visit(root)
	}
}

// Locate collects Declarations into a slice.
func (locator *Locator) Locate(root syntax.Node, source string) []types.DeclarationSpan {
	return slices.Collect(locator.Declarations(root, source))
}

func (locator *Locator) describe(node syntax.Node, source string, index lineIndex) (types.DeclarationSpan, bool) {
	nodeStart := node.StartByte()
	nodeEnd := node.EndByte()
	if nodeStart < 0 || nodeEnd > len(source) || nodeStart > nodeEnd {
		return types.DeclarationSpan{}, false
	}
	startLine := index.lineOf(nodeStart)

	var hasDoc bool
	if locator.detection == types.DetectionStructural {
		hasDoc = precededByDocComment(source[:nodeStart])
	} else {
		hasDoc = docCommentAbove(index.lines, startLine)
	}

	spanStart := widenToLineStart(source, nodeStart)
	return types.DeclarationSpan{
		StartOffset: spanStart,
		EndOffset:   nodeEnd,
		StartLine:   startLine,
		Kind:        node.Kind(),
		SourceText:  source[spanStart:nodeEnd],
		HasDoc:      hasDoc,
	}, true
}

// docCommentAbove scans at most lookbackLineLimit lines above startLine. Blank
// lines and comment continuations are passed over; anything else ends the search.
func docCommentAbove(lines []string, startLine int) bool {
	for lineIndex := startLine - 1; lineIndex > startLine-1-lookbackLineLimit && lineIndex >= 0; lineIndex-- {
		line := lines[lineIndex]
		if singleLineDocPattern.MatchString(line) {
			return true
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, continuationStar) && !strings.HasPrefix(trimmed, lineCommentPrefix) {
			return false
		}
	}
	return false
}

// precededByDocComment reports whether the text before a declaration ends with a /** ... */ block.
func precededByDocComment(before string) bool {
	trimmed := strings.TrimRight(before, trailingSpace)
	if !strings.HasSuffix(trimmed, commentCloser) {
		return false
	}
	openerIndex := strings.LastIndex(trimmed, blockCommentStart)
	if openerIndex < 0 {
		return false
	}
	block := trimmed[openerIndex:]
	return strings.HasPrefix(block, docCommentOpener) && len(block) > len(docCommentOpener)+1
}

// widenToLineStart moves offset back to the start of its line when only
// horizontal whitespace precedes it, keeping the declaration's indentation in the span.
func widenToLineStart(source string, offset int) int {
	lineStart := strings.LastIndexByte(source[:offset], '\n') + 1
	if strings.Trim(source[lineStart:offset], horizontalSpace) != "" {
		return offset
	}
	return lineStart
}

type lineIndex struct {
	lines      []string
	lineStarts []int
}

func newLineIndex(source string) lineIndex {
	lines := strings.Split(source, "\n")
	lineStarts := make([]int, len(lines))
	offset := 0
	for lineNumber, line := range lines {
		lineStarts[lineNumber] = offset
		offset += len(line) + 1
	}
	return lineIndex{lines: lines, lineStarts: lineStarts}
}

// lineOf returns the zero-based line containing offset.
func (index lineIndex) lineOf(offset int) int {
	return sort.Search(len(index.lineStarts), func(position int) bool {
		return index.lineStarts[position] > offset
	}) - 1
}

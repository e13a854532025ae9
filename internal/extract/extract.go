// Package extract isolates the doc comment from generated text.
package extract

import (
	"errors"
	"strings"

	"github.com/temirov/jdoc/internal/types"
)

const (
	docCommentOpener = "/**"
	commentCloser    = "*/"
	horizontalSpace  = " \t"
)

// ErrMalformedComment reports generated text without a /** ... */ pair.
var ErrMalformedComment = errors.New("generated text has no doc comment delimiters")

// Policy selects how text without comment delimiters is handled.
type Policy int

const (
	// PolicyLenient falls back to the whole text.
	PolicyLenient Policy = iota
	// PolicyStrict rejects the text with ErrMalformedComment.
	PolicyStrict
)

// DocComment returns the last /** ... */ block of text including the indentation
// in front of the opener. The closer is the first "*/" at or after that opener,
// so "/**/" counts as a block.
// The boolean is false when either delimiter is missing, in which case text is returned unchanged.
func DocComment(text string) (string, bool) {
	opener := strings.LastIndex(text, docCommentOpener)
	if opener < 0 {
		return text, false
	}
	closerOffset := strings.Index(text[opener:], commentCloser)
	if closerOffset < 0 {
		return text, false
	}
	start := len(strings.TrimRight(text[:opener], horizontalSpace))
	end := opener + closerOffset + len(commentCloser)
	return text[start:end], true
}

// Extract applies policy to raw generated text.
func Extract(rawText string, policy Policy) (types.GeneratedComment, error) {
	comment, delimited := DocComment(rawText)
	if !delimited && policy == PolicyStrict {
		return types.GeneratedComment{RawText: rawText}, ErrMalformedComment
	}
	return types.GeneratedComment{
		RawText:    rawText,
		DocComment: comment,
		Delimited:  delimited,
	}, nil
}

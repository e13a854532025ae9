//go:build !cgo

package syntax

import (
	"context"
	"fmt"
)

// Context is unusable without cgo; NewJavaContext always fails so startup can
// report the missing parser instead of failing mid-run.
type Context struct{}

// NewJavaContext reports ErrParserUnavailable when cgo is disabled.
func NewJavaContext() (*Context, error) {
	return nil, fmt.Errorf("%w: built without cgo", ErrParserUnavailable)
}

// Language returns the grammar name.
func (parserContext *Context) Language() string {
	return "java"
}

// Parse always fails without cgo.
func (parserContext *Context) Parse(ctx context.Context, source []byte) (Tree, error) {
	return nil, fmt.Errorf("%w: built without cgo", ErrParserUnavailable)
}

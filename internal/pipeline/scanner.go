package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/jdoc/internal/locator"
	"github.com/temirov/jdoc/internal/syntax"
	"github.com/temirov/jdoc/internal/types"
)

// Parser produces a syntax tree for a source buffer.
type Parser interface {
	Parse(ctx context.Context, source []byte) (syntax.Tree, error)
}

// TreeScanner parses a source buffer and collects its documentable declarations.
type TreeScanner struct {
	parser  Parser
	locator *locator.Locator
	logger  *zap.Logger
}

// NewTreeScanner pairs a parser with a locator.
func NewTreeScanner(parser Parser, declarationLocator *locator.Locator, logger *zap.Logger) TreeScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return TreeScanner{parser: parser, locator: declarationLocator, logger: logger}
}

// Scan returns the declarations of source in document order.
func (scanner TreeScanner) Scan(ctx context.Context, source string) ([]types.DeclarationSpan, error) {
	tree, err := scanner.parser.Parse(ctx, []byte(source))
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	defer tree.Close()
	if tree.HasError() {
		scanner.logger.Warn("syntax errors in source, declarations may be incomplete")
	}
	return scanner.locator.Locate(tree.Root(), source), nil
}

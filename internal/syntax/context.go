//go:build cgo

package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	java "github.com/smacker/go-tree-sitter/java"
)

const javaLanguageName = "java"

// Context holds the compiled grammar shared by every parse in the process.
// Build it once at startup with NewJavaContext.
type Context struct {
	language *sitter.Language
	name     string
}

// NewJavaContext initializes the Java grammar.
func NewJavaContext() (*Context, error) {
	language := java.GetLanguage()
	if language == nil {
		return nil, fmt.Errorf("%w: %s grammar did not load", ErrParserUnavailable, javaLanguageName)
	}
	return &Context{language: language, name: javaLanguageName}, nil
}

// Language returns the grammar name.
func (parserContext *Context) Language() string {
	return parserContext.name
}

// Parse builds a syntax tree for source. The caller must Close the returned tree.
func (parserContext *Context) Parse(ctx context.Context, source []byte) (Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s parse canceled before start: %w", parserContext.name, err)
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(parserContext.language)

	tree, parseErr := parser.ParseCtx(ctx, nil, source)
	if parseErr != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", parseErr)
	}
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned no tree for %s source", parserContext.name)
	}
	return &sitterTree{tree: tree}, nil
}

type sitterTree struct {
	tree *sitter.Tree
}

func (tree *sitterTree) Root() Node {
	return sitterNode{node: tree.tree.RootNode()}
}

func (tree *sitterTree) HasError() bool {
	return tree.tree.RootNode().HasError()
}

func (tree *sitterTree) Close() {
	tree.tree.Close()
}

type sitterNode struct {
	node *sitter.Node
}

func (wrapped sitterNode) Kind() string {
	return wrapped.node.Type()
}

func (wrapped sitterNode) StartByte() int {
	return int(wrapped.node.StartByte())
}

func (wrapped sitterNode) EndByte() int {
	return int(wrapped.node.EndByte())
}

func (wrapped sitterNode) Children() []Node {
	childCount := int(wrapped.node.ChildCount())
	children := make([]Node, 0, childCount)
	for childIndex := 0; childIndex < childCount; childIndex++ {
		child := wrapped.node.Child(childIndex)
		if child == nil {
			continue
		}
		children = append(children, sitterNode{node: child})
	}
	return children
}

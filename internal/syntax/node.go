// Package syntax owns the tree-sitter parser context used to scan Java sources.
package syntax

import "errors"

// ErrParserUnavailable reports that the Java grammar could not be initialized.
var ErrParserUnavailable = errors.New("java parser unavailable")

// Node is the view of a syntax tree node needed by declaration scanning.
type Node interface {
	Kind() string
	StartByte() int
	EndByte() int
	Children() []Node
}

// Tree is a parsed source file. Close releases the native tree.
type Tree interface {
	Root() Node
	HasError() bool
	Close()
}

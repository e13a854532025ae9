// Package types defines every cross‑package data structure used by the jdoc CLI.
package types

const (
	CommandGenerate = "generate"
	CommandScan     = "scan"
	CommandFormat   = "format"
	CommandInit     = "init"

	FormatRaw  = "raw"
	FormatJSON = "json"

	// Java grammar node types that can carry a doc comment.
	KindMethod      = "method_declaration"
	KindConstructor = "constructor_declaration"
	KindClass       = "class_declaration"
	KindInterface   = "interface_declaration"
	KindEnum        = "enum_declaration"
	KindRecord      = "record_declaration"

	DetectionHeuristic  = "heuristic"
	DetectionStructural = "structural"
)

// DefaultDeclarationKinds lists the node types documented when configuration does not override them.
var DefaultDeclarationKinds = []string{
	KindMethod,
	KindConstructor,
	KindClass,
	KindInterface,
	KindEnum,
	KindRecord,
}

// DeclarationSpan is one documentable declaration found by a single scan of a file.
// StartOffset and EndOffset are byte offsets into the scanned source and together identify the span.
type DeclarationSpan struct {
	StartOffset int    `json:"start"`
	EndOffset   int    `json:"end"`
	StartLine   int    `json:"line"`
	Kind        string `json:"kind"`
	SourceText  string `json:"-"`
	HasDoc      bool   `json:"documented"`
}

// GeneratedComment holds the reassembled service response and the comment isolated from it.
// Delimited is false when no /** ... */ pair was found and DocComment fell back to RawText.
type GeneratedComment struct {
	RawText    string
	DocComment string
	Delimited  bool
}

// MergeResult pairs a declaration's original text with the text carrying its new doc comment.
type MergeResult struct {
	Span         DeclarationSpan
	OriginalText string
	MergedText   string
}

// ValidatedPath is an absolute input path that already passed existence checks.
type ValidatedPath struct {
	AbsolutePath string
	IsDir        bool
}

package splice

import (
	"strings"
	"testing"

	"github.com/temirov/jdoc/internal/types"
)

func TestInsertDocComment(t *testing.T) {
	testCases := []struct {
		name        string
		declaration string
		comment     string
		expected    string
	}{
		{
			name:        "indented method",
			declaration: "    public void run() {\n    }",
			comment:     "/**\n * Runs.\n */",
			expected:    "    /**\n     * Runs.\n     */\n    public void run() {\n    }",
		},
		{
			name:        "unindented declaration",
			declaration: "class A {}",
			comment:     "/** A. */",
			expected:    "/** A. */\nclass A {}",
		},
		{
			name:        "leading blank lines stay above comment",
			declaration: "\n\n\tvoid run() {}",
			comment:     "/** Runs. */",
			expected:    "\n\n\t/** Runs. */\n\tvoid run() {}",
		},
		{
			name:        "blank comment lines are not padded",
			declaration: "  void run() {}",
			comment:     "/**\n\n * Runs.\n */",
			expected:    "  /**\n\n   * Runs.\n   */\n  void run() {}",
		},
		{
			name:        "empty declaration",
			declaration: "",
			comment:     "/** x */",
			expected:    "/** x */\n",
		},
		{
			name:        "blank declaration",
			declaration: "   ",
			comment:     "/** x */",
			expected:    "/** x */\n   ",
		},
		{
			name:        "crlf declaration",
			declaration: "  void run() {\r\n  }",
			comment:     "/**\n * Runs.\n */",
			expected:    "  /**\r\n   * Runs.\r\n   */\r\n  void run() {\r\n  }",
		},
		{
			name:        "trailing newline preserved",
			declaration: "void run() {}\n",
			comment:     "/** x */",
			expected:    "/** x */\nvoid run() {}\n",
		},
		{
			name:        "comment keeps its own relative indentation",
			declaration: "    void run() {}",
			comment:     "  /** x\n   */",
			expected:    "      /** x\n       */\n    void run() {}",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := InsertDocComment(testCase.declaration, testCase.comment)
			if result != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

func TestInsertDocCommentIndentationProperty(t *testing.T) {
	indent := "        "
	declaration := indent + "int size() {\n" + indent + "    return 0;\n" + indent + "}"
	comment := "/**\n * Returns the size.\n\n * @return zero\n */"
	merged := InsertDocComment(declaration, comment)

	mergedLines := strings.Split(merged, "\n")
	commentLines := strings.Split(comment, "\n")
	for lineIndex, commentLine := range commentLines {
		mergedLine := mergedLines[lineIndex]
		if strings.TrimSpace(commentLine) == "" {
			if mergedLine != commentLine {
				t.Fatalf("blank comment line %d gained whitespace: %q", lineIndex, mergedLine)
			}
			continue
		}
		if mergedLine != indent+commentLine {
			t.Fatalf("line %d: expected %q, got %q", lineIndex, indent+commentLine, mergedLine)
		}
	}
	if !strings.HasSuffix(merged, declaration) {
		t.Fatalf("declaration text must follow the comment unchanged")
	}
}

func TestApplyReplacesFirstOccurrenceOnly(t *testing.T) {
	declaration := "    void noop() {}"
	buffer := "class A {\n" + declaration + "\n" + declaration + "\n}\n"
	merge := Merge(types.DeclarationSpan{SourceText: declaration}, "/** Does nothing. */")

	result, report := Apply(buffer, []types.MergeResult{merge})
	expected := "class A {\n    /** Does nothing. */\n" + declaration + "\n" + declaration + "\n}\n"
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
	if len(report.Applied) != 1 || len(report.Missing) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestApplySkipsMissingOriginals(t *testing.T) {
	buffer := "class A {\n    void a() {}\n}\n"
	merges := []types.MergeResult{
		{OriginalText: "    void gone() {}", MergedText: "replacement"},
		Merge(types.DeclarationSpan{SourceText: "    void a() {}"}, "/** A. */"),
	}
	result, report := Apply(buffer, merges)
	if !strings.Contains(result, "    /** A. */\n    void a() {}") {
		t.Fatalf("expected second merge applied, got %q", result)
	}
	if strings.Contains(result, "replacement") {
		t.Fatalf("missing original must not be replaced")
	}
	if len(report.Missing) != 1 || report.Missing[0].OriginalText != "    void gone() {}" {
		t.Fatalf("expected one missing merge, got %+v", report.Missing)
	}
}

func TestApplyNestedDeclarationsInDocumentOrder(t *testing.T) {
	method := "    void a() {}"
	class := "class A {\n" + method + "\n}"
	buffer := "package p;\n\n" + class + "\n"
	merges := []types.MergeResult{
		Merge(types.DeclarationSpan{SourceText: class}, "/** Class A. */"),
		Merge(types.DeclarationSpan{SourceText: method}, "/** Method a. */"),
	}
	result, report := Apply(buffer, merges)
	expected := "package p;\n\n/** Class A. */\nclass A {\n    /** Method a. */\n    void a() {}\n}\n"
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
	if len(report.Applied) != 2 {
		t.Fatalf("expected both merges applied, got %+v", report)
	}
}

func TestReplaceFirstEmptyOriginal(t *testing.T) {
	result, replaced := ReplaceFirst("abc", "", "x")
	if replaced || result != "abc" {
		t.Fatalf("empty original must not match, got %q %v", result, replaced)
	}
}

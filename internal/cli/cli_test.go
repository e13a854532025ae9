package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/temirov/jdoc/internal/config"
	"github.com/temirov/jdoc/internal/formatter"
	"github.com/temirov/jdoc/internal/generation"
	"github.com/temirov/jdoc/internal/pipeline"
	"github.com/temirov/jdoc/internal/syntax"
	"github.com/temirov/jdoc/internal/types"
)

const greeterSource = `public class Greeter {
    public String greet(String name) {
        return "Hello " + name;
    }
}
`

const documentedGreeterSource = `/**
 * Generated.
 */
public class Greeter {
    /**
     * Generated.
     */
    public String greet(String name) {
        return "Hello " + name;
    }
}
`

type fakeNode struct {
	kind     string
	start    int
	end      int
	children []syntax.Node
}

func (node fakeNode) Kind() string            { return node.kind }
func (node fakeNode) StartByte() int          { return node.start }
func (node fakeNode) EndByte() int            { return node.end }
func (node fakeNode) Children() []syntax.Node { return node.children }

type fakeTree struct {
	root syntax.Node
}

func (tree fakeTree) Root() syntax.Node { return tree.root }
func (tree fakeTree) HasError() bool    { return false }
func (tree fakeTree) Close()            {}

// greeterParser reports the class and its method the way the Java grammar would.
type greeterParser struct{}

func (greeterParser) Parse(ctx context.Context, source []byte) (syntax.Tree, error) {
	text := string(source)
	classStart := strings.Index(text, "public class")
	methodStart := strings.Index(text, "public String")
	methodEnd := strings.Index(text, "\n    }\n") + len("\n    }")
	classEnd := strings.LastIndex(text, "}") + 1
	method := fakeNode{kind: types.KindMethod, start: methodStart, end: methodEnd}
	class := fakeNode{kind: types.KindClass, start: classStart, end: classEnd, children: []syntax.Node{method}}
	return fakeTree{root: fakeNode{kind: "program", end: len(text), children: []syntax.Node{class}}}, nil
}

// lastGreeterParser positions the method at its last occurrence in the source.
type lastGreeterParser struct{}

func (lastGreeterParser) Parse(ctx context.Context, source []byte) (syntax.Tree, error) {
	text := string(source)
	classStart := strings.Index(text, "public class")
	methodStart := strings.LastIndex(text, "public String")
	methodEnd := strings.LastIndex(text, "\n    }\n") + len("\n    }")
	classEnd := strings.LastIndex(text, "}") + 1
	method := fakeNode{kind: types.KindMethod, start: methodStart, end: methodEnd}
	class := fakeNode{kind: types.KindClass, start: classStart, end: classEnd, children: []syntax.Node{method}}
	return fakeTree{root: fakeNode{kind: "program", end: len(text), children: []syntax.Node{class}}}, nil
}

type fakeFormatter struct {
	checkErr  error
	formatErr error
	formatted []string
}

func (formatter *fakeFormatter) Check() error {
	return formatter.checkErr
}

func (formatter *fakeFormatter) Format(ctx context.Context, path string) error {
	formatter.formatted = append(formatter.formatted, path)
	return formatter.formatErr
}

type fakeCopier struct {
	copied []string
}

func (copier *fakeCopier) Copy(text string) error {
	copier.copied = append(copier.copied, text)
	return nil
}

type testHarness struct {
	env       environment
	stdout    *bytes.Buffer
	formatter *fakeFormatter
	copier    *fakeCopier
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	homeDirectory := t.TempDir()
	t.Setenv("HOME", homeDirectory)
	t.Setenv("USERPROFILE", homeDirectory)

	harness := &testHarness{stdout: &bytes.Buffer{}, formatter: &fakeFormatter{}, copier: &fakeCopier{}}
	harness.env = environment{
		logger:     zaptest.NewLogger(t),
		logLevel:   zap.NewAtomicLevel(),
		stdout:     harness.stdout,
		httpClient: &http.Client{},
		newParser: func() (pipeline.Parser, error) {
			return greeterParser{}, nil
		},
		newFormatter: func(settings config.Settings) sourceFormatter {
			return harness.formatter
		},
		copier:    harness.copier,
		lookupEnv: func(string) (string, bool) { return "", false },
	}
	return harness
}

func (harness *testHarness) run(arguments ...string) error {
	rootCommand := createRootCommand(harness.env)
	rootCommand.SetArgs(normalizeToggleArguments(rootCommand, arguments))
	return rootCommand.ExecuteContext(context.Background())
}

func newGenerationServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requests.Add(1)
		if status != http.StatusOK {
			http.Error(writer, "unavailable", status)
			return
		}
		_, _ = writer.Write([]byte("data: Sure.[h_newline]/**[h_newline] * Generated.[h_newline] */\n"))
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func writeSourceFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Greeter.java")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(content)
}

func TestGenerateWritesDocumentedFile(t *testing.T) {
	harness := newTestHarness(t)
	server, requests := newGenerationServer(t, http.StatusOK)
	path := writeSourceFile(t, greeterSource)

	if err := harness.run("generate", "--api-key", "secret", "--endpoint", server.URL, "--copy", path); err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if content := readFile(t, path); content != documentedGreeterSource {
		t.Fatalf("unexpected file content:\n%s", content)
	}
	if requests.Load() != 2 {
		t.Fatalf("expected two generation requests, got %d", requests.Load())
	}
	if len(harness.formatter.formatted) != 1 || harness.formatter.formatted[0] != path {
		t.Fatalf("expected formatter to run on %s, got %v", path, harness.formatter.formatted)
	}
	if len(harness.copier.copied) != 1 || harness.copier.copied[0] != documentedGreeterSource {
		t.Fatalf("expected the written text on the clipboard")
	}
}

func TestGenerateOutputFlagAndEnvironmentKey(t *testing.T) {
	harness := newTestHarness(t)
	harness.env.lookupEnv = func(name string) (string, bool) {
		if name == "JDOC_API_KEY" {
			return "from-environment", true
		}
		return "", false
	}
	server, _ := newGenerationServer(t, http.StatusOK)
	path := writeSourceFile(t, greeterSource)
	outputPath := filepath.Join(t.TempDir(), "Documented.java")

	if err := harness.run("g", "--endpoint", server.URL, "--no-format", "-o", outputPath, path); err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if content := readFile(t, path); content != greeterSource {
		t.Fatalf("input must stay untouched when -o is given")
	}
	if content := readFile(t, outputPath); content != documentedGreeterSource {
		t.Fatalf("unexpected output content:\n%s", content)
	}
	if len(harness.formatter.formatted) != 0 {
		t.Fatalf("--no-format must skip the formatter")
	}
}

func TestGenerateDryRunPrintsDiff(t *testing.T) {
	harness := newTestHarness(t)
	server, _ := newGenerationServer(t, http.StatusOK)
	path := writeSourceFile(t, greeterSource)

	if err := harness.run("generate", "--api-key", "secret", "--endpoint", server.URL, "--dry-run", path); err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if content := readFile(t, path); content != greeterSource {
		t.Fatalf("dry run must not write")
	}
	if !strings.Contains(harness.stdout.String(), "+     * Generated.") {
		t.Fatalf("expected diff on stdout, got:\n%s", harness.stdout.String())
	}
	if len(harness.formatter.formatted) != 0 {
		t.Fatalf("dry run must not format")
	}
}

func TestGenerateFailures(t *testing.T) {
	testCases := []struct {
		name             string
		status           int
		checkErr         error
		removeInput      bool
		omitKey          bool
		expectedErr      error
		expectedRequests int32
	}{
		{name: "missing input", status: http.StatusOK, removeInput: true, expectedErr: errInputNotFound},
		{name: "formatter unavailable", status: http.StatusOK, checkErr: formatter.ErrUnavailable, expectedErr: formatter.ErrUnavailable},
		{name: "service failure", status: http.StatusInternalServerError, expectedErr: generation.ErrServiceCall, expectedRequests: 1},
		{name: "missing credential", status: http.StatusOK, omitKey: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newTestHarness(t)
			harness.formatter.checkErr = testCase.checkErr
			server, requests := newGenerationServer(t, testCase.status)
			path := writeSourceFile(t, greeterSource)
			if testCase.removeInput {
				if err := os.Remove(path); err != nil {
					t.Fatalf("remove: %v", err)
				}
			}
			arguments := []string{"generate", "--endpoint", server.URL}
			if !testCase.omitKey {
				arguments = append(arguments, "--api-key", "secret")
			}
			err := harness.run(append(arguments, path)...)
			if err == nil {
				t.Fatalf("expected error")
			}
			if testCase.expectedErr != nil && !errors.Is(err, testCase.expectedErr) {
				t.Fatalf("expected %v, got %v", testCase.expectedErr, err)
			}
			if requests.Load() != testCase.expectedRequests {
				t.Fatalf("expected %d requests, got %d", testCase.expectedRequests, requests.Load())
			}
			if !testCase.removeInput && readFile(t, path) != greeterSource {
				t.Fatalf("failed run must leave the file untouched")
			}
		})
	}
}

func TestGenerateFormatterFailureIsWarning(t *testing.T) {
	harness := newTestHarness(t)
	harness.formatter.formatErr = errors.New("vim exited 1")
	server, _ := newGenerationServer(t, http.StatusOK)
	path := writeSourceFile(t, greeterSource)

	if err := harness.run("generate", "--api-key", "secret", "--endpoint", server.URL, path); err != nil {
		t.Fatalf("formatter failure must not fail the run: %v", err)
	}
	if content := readFile(t, path); content != documentedGreeterSource {
		t.Fatalf("written file must stay after formatter failure")
	}
}

func TestScanReportsDeclarations(t *testing.T) {
	harness := newTestHarness(t)
	path := writeSourceFile(t, "/** Greets. */\n"+greeterSource)

	if err := harness.run("scan", "--format", "json", path); err != nil {
		t.Fatalf("scan error: %v", err)
	}
	var entries []scanEntry
	if err := json.Unmarshal(harness.stdout.Bytes(), &entries); err != nil {
		t.Fatalf("decode scan output: %v\n%s", err, harness.stdout.String())
	}
	if len(entries) != 2 {
		t.Fatalf("expected two declarations, got %+v", entries)
	}
	if entries[0].Kind != types.KindClass || !entries[0].Documented || entries[0].StartLine != 2 || entries[0].EndLine != 6 {
		t.Fatalf("unexpected class entry %+v", entries[0])
	}
	if entries[1].Kind != types.KindMethod || entries[1].Documented || entries[1].StartLine != 3 || entries[1].EndLine != 5 {
		t.Fatalf("unexpected method entry %+v", entries[1])
	}

	harness.stdout.Reset()
	if err := harness.run("s", path); err != nil {
		t.Fatalf("scan raw error: %v", err)
	}
	if !strings.Contains(harness.stdout.String(), "skip: documented") || !strings.Contains(harness.stdout.String(), "generate") {
		t.Fatalf("unexpected raw scan output:\n%s", harness.stdout.String())
	}
}

func TestScanReportsUnreachableDeclarations(t *testing.T) {
	harness := newTestHarness(t)
	harness.env.newParser = func() (pipeline.Parser, error) {
		return lastGreeterParser{}, nil
	}
	quoted := "/*\n    public String greet(String name) {\n        return \"Hello \" + name;\n    }\n*/\n"
	path := writeSourceFile(t, quoted+greeterSource)

	if err := harness.run("scan", "--format", "json", path); err != nil {
		t.Fatalf("scan error: %v", err)
	}
	var entries []scanEntry
	if err := json.Unmarshal(harness.stdout.Bytes(), &entries); err != nil {
		t.Fatalf("decode scan output: %v\n%s", err, harness.stdout.String())
	}
	if len(entries) != 2 || entries[0].Duplicate || !entries[1].Duplicate {
		t.Fatalf("expected only the method to be reported as a duplicate, got %+v", entries)
	}

	harness.stdout.Reset()
	if err := harness.run("scan", path); err != nil {
		t.Fatalf("scan raw error: %v", err)
	}
	if !strings.Contains(harness.stdout.String(), "skip: duplicate") {
		t.Fatalf("expected a duplicate status in raw output:\n%s", harness.stdout.String())
	}
}

func TestScanRejectsUnknownFormat(t *testing.T) {
	harness := newTestHarness(t)
	path := writeSourceFile(t, greeterSource)
	if err := harness.run("scan", "--format", "xml", path); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestFormatCommandRunsFormatter(t *testing.T) {
	harness := newTestHarness(t)
	path := writeSourceFile(t, greeterSource)
	if err := harness.run("f", path); err != nil {
		t.Fatalf("format error: %v", err)
	}
	if len(harness.formatter.formatted) != 1 || harness.formatter.formatted[0] != path {
		t.Fatalf("expected formatter run on %s, got %v", path, harness.formatter.formatted)
	}
}

func TestInitCommandWritesGlobalConfiguration(t *testing.T) {
	harness := newTestHarness(t)
	if err := harness.run("init", "--global"); err != nil {
		t.Fatalf("init error: %v", err)
	}
	expectedPath := filepath.Join(os.Getenv("HOME"), ".jdoc", "config.yaml")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Fatalf("expected configuration at %s: %v", expectedPath, err)
	}
	if !strings.Contains(harness.stdout.String(), expectedPath) {
		t.Fatalf("expected path in output, got %q", harness.stdout.String())
	}
	if err := harness.run("init", "--global"); err == nil {
		t.Fatalf("second init without --force must fail")
	}
	if err := harness.run("init", "--global", "--force"); err != nil {
		t.Fatalf("forced init error: %v", err)
	}
}

func TestVersionFlag(t *testing.T) {
	harness := newTestHarness(t)
	if err := harness.run("--version"); err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(harness.stdout.String(), "jdoc version: ") {
		t.Fatalf("unexpected version output %q", harness.stdout.String())
	}
}

func TestVerboseRaisesLogLevel(t *testing.T) {
	harness := newTestHarness(t)
	path := writeSourceFile(t, greeterSource)
	if err := harness.run("scan", "--verbose", path); err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if harness.env.logLevel.Level() != zap.DebugLevel {
		t.Fatalf("expected debug level, got %s", harness.env.logLevel.Level())
	}
}

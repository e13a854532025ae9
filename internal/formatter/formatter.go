// Package formatter re-indents a written source file with vim.
package formatter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// DefaultCommand is the editor binary used for auto-indentation.
	DefaultCommand = "vim"
	// DefaultTabStop is the tab stop passed to the editor.
	DefaultTabStop = 4
	// DefaultShiftWidth is the shift width passed to the editor.
	DefaultShiftWidth = 4

	commandFlag       = "-c"
	cleanFlag         = "--clean"
	tabStopFormat     = "set tabstop=%d"
	shiftWidthFormat  = "set shiftwidth=%d"
	expandTabSetting  = "set expandtab"
	reindentCommand   = "normal gg=G"
	writeQuitCommand  = "wq"
	stderrExcerptSize = 512
)

// ErrUnavailable reports that the formatter binary cannot be found.
var ErrUnavailable = errors.New("formatter is not available")

type commandRunner func(ctx context.Context, name string, arguments ...string) ([]byte, error)

// Formatter runs the editor in batch mode over a single file.
type Formatter struct {
	command    string
	tabStop    int
	shiftWidth int
	expandTab  bool
	lookPath   func(string) (string, error)
	run        commandRunner
}

// New returns a Formatter with the default vim settings.
func New() Formatter {
	return Formatter{
		command:    DefaultCommand,
		tabStop:    DefaultTabStop,
		shiftWidth: DefaultShiftWidth,
		expandTab:  true,
		lookPath:   exec.LookPath,
		run:        runCombined,
	}
}

func (formatter Formatter) WithCommand(command string) Formatter {
	if strings.TrimSpace(command) == "" {
		return formatter
	}
	formatter.command = strings.TrimSpace(command)
	return formatter
}

func (formatter Formatter) WithTabStop(width int) Formatter {
	if width > 0 {
		formatter.tabStop = width
	}
	return formatter
}

func (formatter Formatter) WithShiftWidth(width int) Formatter {
	if width > 0 {
		formatter.shiftWidth = width
	}
	return formatter
}

func (formatter Formatter) WithExpandTab(expand bool) Formatter {
	formatter.expandTab = expand
	return formatter
}

// Command returns the configured binary name.
func (formatter Formatter) Command() string {
	return formatter.command
}

// Check verifies that the binary is on PATH.
func (formatter Formatter) Check() error {
	if _, err := formatter.lookPath(formatter.command); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, formatter.command, err)
	}
	return nil
}

// Arguments builds the editor argument list for path.
func (formatter Formatter) Arguments(path string) []string {
	arguments := []string{
		cleanFlag,
		commandFlag, fmt.Sprintf(tabStopFormat, formatter.tabStop),
		commandFlag, fmt.Sprintf(shiftWidthFormat, formatter.shiftWidth),
	}
	if formatter.expandTab {
		arguments = append(arguments, commandFlag, expandTabSetting)
	}
	return append(arguments,
		commandFlag, reindentCommand,
		commandFlag, writeQuitCommand,
		path,
	)
}

// Format re-indents path in place.
func (formatter Formatter) Format(ctx context.Context, path string) error {
	if err := formatter.Check(); err != nil {
		return err
	}
	output, err := formatter.run(ctx, formatter.command, formatter.Arguments(path)...)
	if err != nil {
		return fmt.Errorf("format %s with %s: %w%s", path, formatter.command, err, excerpt(output))
	}
	return nil
}

func runCombined(ctx context.Context, name string, arguments ...string) ([]byte, error) {
	// #nosec G204
	command := exec.CommandContext(ctx, name, arguments...)
	var combined bytes.Buffer
	command.Stdout = &combined
	command.Stderr = &combined
	err := command.Run()
	return combined.Bytes(), err
}

func excerpt(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return ""
	}
	if len(trimmed) > stderrExcerptSize {
		trimmed = trimmed[:stderrExcerptSize]
	}
	return ": " + strconv.Quote(trimmed)
}

// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/jdoc/internal/config"
	"github.com/temirov/jdoc/internal/formatter"
	"github.com/temirov/jdoc/internal/pipeline"
	"github.com/temirov/jdoc/internal/services/clipboard"
	"github.com/temirov/jdoc/internal/syntax"
	"github.com/temirov/jdoc/internal/types"
	"github.com/temirov/jdoc/internal/utils"
)

const (
	rootUse              = "jdoc"
	rootShortDescription = "jdoc writes missing Javadoc comments"
	rootLongDescription  = `jdoc finds undocumented Java methods, constructors, and types in a source file,
asks a text-generation service for a doc comment for each, and inserts the comments
with the declaration's indentation. All other text is left byte-identical.`
	versionTemplate = "jdoc version: {{.Version}}\n"

	configFlagName         = "config"
	configFlagDescription  = "configuration file overriding ./" + utils.LocalConfigFileName
	verboseFlagName        = "verbose"
	verboseFlagDescription = "log generation input and output"

	errorAbsolutePathFormat = "resolve path '%s': %w"
	errorStatFormat         = "stat failed for '%s': %w"
	errorInputDirectory     = "input '%s' is a directory, expected a Java source file"
)

var errInputNotFound = errors.New("input file not found")

type sourceFormatter interface {
	Check() error
	Format(ctx context.Context, path string) error
}

// environment carries process collaborators so commands can be exercised in tests.
type environment struct {
	logger       *zap.Logger
	logLevel     zap.AtomicLevel
	stdout       io.Writer
	httpClient   *http.Client
	newParser    func() (pipeline.Parser, error)
	newFormatter func(settings config.Settings) sourceFormatter
	copier       clipboard.Copier
	lookupEnv    func(string) (string, bool)
}

// rootOptions holds persistent flag values.
type rootOptions struct {
	configPath string
	verbose    bool
}

func defaultEnvironment(logger *zap.Logger, logLevel zap.AtomicLevel) environment {
	return environment{
		logger:     logger,
		logLevel:   logLevel,
		stdout:     os.Stdout,
		httpClient: &http.Client{},
		newParser: func() (pipeline.Parser, error) {
			return syntax.NewJavaContext()
		},
		newFormatter: func(settings config.Settings) sourceFormatter {
			return newConfiguredFormatter(settings)
		},
		copier:    clipboard.NewService(),
		lookupEnv: os.LookupEnv,
	}
}

func newConfiguredFormatter(settings config.Settings) formatter.Formatter {
	return formatter.New().
		WithCommand(settings.FormatterCommand).
		WithTabStop(settings.TabStop).
		WithShiftWidth(settings.ShiftWidth).
		WithExpandTab(settings.ExpandTab)
}

// Execute runs the jdoc application. Cancelling ctx interrupts a generation run.
func Execute(ctx context.Context, logger *zap.Logger, logLevel zap.AtomicLevel) error {
	rootCommand := createRootCommand(defaultEnvironment(logger, logLevel))
	rootCommand.SetArgs(normalizeToggleArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand(env environment) *cobra.Command {
	var options rootOptions

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Version:       utils.GetApplicationVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if options.verbose {
				env.logLevel.SetLevel(zap.DebugLevel)
			}
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)
	rootCommand.SetOut(env.stdout)
	rootCommand.PersistentFlags().StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	registerToggleFlag(rootCommand.PersistentFlags(), &options.verbose, verboseFlagName, false, verboseFlagDescription)
	rootCommand.AddCommand(
		createGenerateCommand(env, &options),
		createScanCommand(env, &options),
		createFormatCommand(env, &options),
		createInitCommand(env),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// loadSettings reads configuration files and applies overrides from flags.
func loadSettings(options *rootOptions, overrides config.ApplicationConfiguration) (config.Settings, error) {
	loaded, loadErr := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: options.configPath})
	if loadErr != nil {
		return config.Settings{}, loadErr
	}
	return loaded.Merge(overrides).Resolve()
}

// resolveInputFile converts a path argument to an absolute path of an existing regular file.
func resolveInputFile(inputPath string) (types.ValidatedPath, error) {
	absolutePath, absoluteErr := filepath.Abs(inputPath)
	if absoluteErr != nil {
		return types.ValidatedPath{}, fmt.Errorf(errorAbsolutePathFormat, inputPath, absoluteErr)
	}
	cleanPath := filepath.Clean(absolutePath)
	info, statErr := os.Stat(cleanPath)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return types.ValidatedPath{}, fmt.Errorf("%w: %s", errInputNotFound, inputPath)
		}
		return types.ValidatedPath{}, fmt.Errorf(errorStatFormat, inputPath, statErr)
	}
	if info.IsDir() {
		return types.ValidatedPath{}, fmt.Errorf(errorInputDirectory, inputPath)
	}
	return types.ValidatedPath{AbsolutePath: cleanPath}, nil
}

// readSource loads the input file as text.
func readSource(path types.ValidatedPath) (string, error) {
	content, err := os.ReadFile(path.AbsolutePath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path.AbsolutePath, err)
	}
	return string(content), nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/jdoc/internal/config"
	"github.com/temirov/jdoc/internal/extract"
	"github.com/temirov/jdoc/internal/generation"
	"github.com/temirov/jdoc/internal/locator"
	"github.com/temirov/jdoc/internal/pipeline"
	"github.com/temirov/jdoc/internal/preview"
	"github.com/temirov/jdoc/internal/stream"
	"github.com/temirov/jdoc/internal/tokenizer"
	"github.com/temirov/jdoc/internal/types"
	"github.com/temirov/jdoc/internal/utils"
)

const (
	generateUse              = "generate <file>"
	generateAlias            = "g"
	generateShortDescription = "add missing doc comments to a Java file (" + generateAlias + ")"
	generateLongDescription  = `Scan a Java source file, request a doc comment for every undocumented declaration,
and write the file back once all comments are merged. The file is then re-indented with vim.
Interrupting the run sends a stop request to the service and leaves the file untouched.`
	generateUsageExample = `  # Document a file in place
  jdoc generate --api-key $KEY src/Main.java

  # Preview the changes without writing
  jdoc generate --dry-run src/Main.java

  # Write to another file and skip vim
  jdoc g -o Documented.java --no-format src/Main.java`

	outputFlagName             = "output"
	outputFlagShorthand        = "o"
	apiKeyFlagName             = "api-key"
	dryRunFlagName             = "dry-run"
	copyFlagName               = "copy"
	noFormatFlagName           = "no-format"
	maxTokensFlagName          = "max-tokens"
	tokenizerFlagName          = "tokenizer"
	detectionFlagName          = "detection"
	strictFlagName             = "strict"
	endpointFlagName           = "endpoint"
	modelFlagName              = "model"
	outputFlagDescription      = "write the result to this file instead of the input"
	apiKeyFlagDescription      = "generation service credential (default $" + utils.APIKeyEnvironmentVariable + ")"
	dryRunFlagDescription      = "print a diff instead of writing"
	copyFlagDescription        = "copy the resulting source to the clipboard"
	noFormatFlagDescription    = "skip the vim re-indent step"
	maxTokensFlagDescription   = "skip declarations larger than this many tokens"
	tokenizerFlagDescription   = "token counter: approximate or a tiktoken model/encoding"
	detectionFlagDescription   = "existing doc detection: heuristic or structural"
	strictFlagDescription      = "skip declarations whose generated text has no /** */ block"
	endpointFlagDescription    = "generation service base URL"
	modelFlagDescription       = "generation model name"
	errorMissingAPIKey         = "a generation service credential is required: pass --" + apiKeyFlagName + " or set " + utils.APIKeyEnvironmentVariable
	warningFormatFailedMessage = "formatter failed, file left as written"
)

type generateOptions struct {
	outputPath string
	apiKey     string
	dryRun     bool
	copy       bool
	noFormat   bool
	maxTokens  int
	tokenizer  string
	detection  string
	strict     bool
	endpoint   string
	model      string
}

// overrides turns explicitly set flags into a configuration layer.
func (options generateOptions) overrides(command *cobra.Command) config.ApplicationConfiguration {
	var layer config.ApplicationConfiguration
	flags := command.Flags()
	if flags.Changed(maxTokensFlagName) {
		maxTokens := options.maxTokens
		layer.Generation.MaxTokens = &maxTokens
	}
	if flags.Changed(tokenizerFlagName) {
		layer.Generation.Tokenizer = options.tokenizer
	}
	if flags.Changed(detectionFlagName) {
		layer.Generation.Detection = options.detection
	}
	if flags.Changed(strictFlagName) {
		strict := options.strict
		layer.Generation.Strict = &strict
	}
	if flags.Changed(endpointFlagName) {
		layer.Service.Endpoint = options.endpoint
	}
	if flags.Changed(modelFlagName) {
		layer.Service.Model = options.model
	}
	if options.noFormat {
		disabled := false
		layer.Formatter.Enabled = &disabled
	}
	return layer
}

func createGenerateCommand(env environment, root *rootOptions) *cobra.Command {
	var options generateOptions

	generateCommand := &cobra.Command{
		Use:     generateUse,
		Aliases: []string{generateAlias},
		Short:   generateShortDescription,
		Long:    generateLongDescription,
		Example: generateUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			settings, settingsErr := loadSettings(root, options.overrides(command))
			if settingsErr != nil {
				return settingsErr
			}
			return runGenerate(command.Context(), env, settings, options, arguments[0])
		},
	}

	flags := generateCommand.Flags()
	flags.StringVarP(&options.outputPath, outputFlagName, outputFlagShorthand, "", outputFlagDescription)
	flags.StringVar(&options.apiKey, apiKeyFlagName, "", apiKeyFlagDescription)
	registerToggleFlag(flags, &options.dryRun, dryRunFlagName, false, dryRunFlagDescription)
	registerToggleFlag(flags, &options.copy, copyFlagName, false, copyFlagDescription)
	registerToggleFlag(flags, &options.noFormat, noFormatFlagName, false, noFormatFlagDescription)
	flags.IntVar(&options.maxTokens, maxTokensFlagName, pipeline.DefaultMaxTokens, maxTokensFlagDescription)
	flags.StringVar(&options.tokenizer, tokenizerFlagName, tokenizer.ApproximateModel, tokenizerFlagDescription)
	flags.StringVar(&options.detection, detectionFlagName, types.DetectionHeuristic, detectionFlagDescription)
	registerToggleFlag(flags, &options.strict, strictFlagName, false, strictFlagDescription)
	flags.StringVar(&options.endpoint, endpointFlagName, generation.DefaultEndpoint, endpointFlagDescription)
	flags.StringVar(&options.model, modelFlagName, generation.DefaultModel, modelFlagDescription)
	return generateCommand
}

func runGenerate(ctx context.Context, env environment, settings config.Settings, options generateOptions, inputArgument string) error {
	inputPath, inputErr := resolveInputFile(inputArgument)
	if inputErr != nil {
		return inputErr
	}
	apiKey := strings.TrimSpace(options.apiKey)
	if apiKey == "" {
		apiKey, _ = env.lookupEnv(utils.APIKeyEnvironmentVariable)
		apiKey = strings.TrimSpace(apiKey)
	}
	if apiKey == "" {
		return errors.New(errorMissingAPIKey)
	}

	outputPath := inputPath.AbsolutePath
	if options.outputPath != "" {
		absoluteOutput, absoluteErr := filepath.Abs(options.outputPath)
		if absoluteErr != nil {
			return fmt.Errorf(errorAbsolutePathFormat, options.outputPath, absoluteErr)
		}
		outputPath = absoluteOutput
	}

	formatEnabled := settings.FormatterEnabled && !options.dryRun
	var reindenter sourceFormatter
	if formatEnabled {
		reindenter = env.newFormatter(settings)
		if checkErr := reindenter.Check(); checkErr != nil {
			return checkErr
		}
	}

	driver, driverErr := newDriver(env, settings, apiKey)
	if driverErr != nil {
		return driverErr
	}
	source, readErr := readSource(inputPath)
	if readErr != nil {
		return readErr
	}

	result, runErr := driver.Run(ctx, source)
	if runErr != nil {
		return runErr
	}

	if options.dryRun {
		if renderErr := preview.Render(env.stdout, inputArgument, source, result.Output); renderErr != nil {
			return renderErr
		}
		return copyResult(env, options, result.Output)
	}

	if writeErr := utils.WriteFileAtomic(outputPath, []byte(result.Output)); writeErr != nil {
		return writeErr
	}
	env.logger.Info("file written", zap.String("path", outputPath), zap.Int("comments", len(result.Report.Applied)))

	finalText := result.Output
	if formatEnabled {
		if formatErr := reindenter.Format(ctx, outputPath); formatErr != nil {
			env.logger.Warn(warningFormatFailedMessage, zap.String("path", outputPath), zap.Error(formatErr))
		} else if formatted, rereadErr := os.ReadFile(outputPath); rereadErr == nil {
			finalText = string(formatted)
		}
	}
	return copyResult(env, options, finalText)
}

// newDriver wires the parser, locator, token counter, and generation client into a pipeline driver.
func newDriver(env environment, settings config.Settings, apiKey string) (*pipeline.Driver, error) {
	counter, counterName, counterErr := tokenizer.NewCounter(tokenizer.Config{Model: settings.Tokenizer})
	if counterErr != nil {
		return nil, counterErr
	}
	env.logger.Debug("token counter selected", zap.String("tokenizer", counterName))

	parser, parserErr := env.newParser()
	if parserErr != nil {
		return nil, parserErr
	}
	declarationLocator := locator.New(locator.Options{Kinds: settings.Kinds, Detection: settings.Detection})
	scanner := pipeline.NewTreeScanner(parser, declarationLocator, env.logger)

	client, clientErr := generation.NewClient(env.httpClient, apiKey)
	if clientErr != nil {
		return nil, clientErr
	}
	client = client.
		WithEndpoint(settings.Endpoint).
		WithModel(settings.Model).
		WithTemperature(settings.Temperature).
		WithTimeout(settings.Timeout).
		WithStopTimeout(settings.StopTimeout).
		WithReassembler(stream.NewReassembler(settings.StreamMarker, settings.NewlineToken))

	policy := extract.PolicyLenient
	if settings.Strict {
		policy = extract.PolicyStrict
	}
	return pipeline.NewDriver(scanner, client, pipeline.Options{
		MaxTokens: settings.MaxTokens,
		Counter:   counter,
		Policy:    policy,
	}, env.logger)
}

func copyResult(env environment, options generateOptions, text string) error {
	if !options.copy {
		return nil
	}
	if err := env.copier.Copy(text); err != nil {
		env.logger.Warn("clipboard copy failed", zap.Error(err))
		return nil
	}
	env.logger.Info("result copied to clipboard")
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/temirov/jdoc/internal/config"
	"github.com/temirov/jdoc/internal/locator"
	"github.com/temirov/jdoc/internal/pipeline"
	"github.com/temirov/jdoc/internal/tokenizer"
	"github.com/temirov/jdoc/internal/types"
)

const (
	scanUse              = "scan <file>"
	scanAlias            = "s"
	scanShortDescription = "list documentable declarations (" + scanAlias + ")"
	scanLongDescription  = `List every declaration jdoc would consider, with its line range, token count,
and whether a doc comment was detected. No generation service is contacted.`
	scanUsageExample = `  # Show declarations as a table
  jdoc scan src/Main.java

  # Use structural detection and JSON output
  jdoc scan --detection structural --format json src/Main.java`

	formatFlagName        = "format"
	formatFlagDescription = "output format: raw or json"
	invalidFormatMessage  = "invalid format value '%s'"
	scanTableHeader       = "LINES\tKIND\tTOKENS\tDOCUMENTED\tSTATUS"
	scanStatusDocumented  = "skip: documented"
	scanStatusTooLarge    = "skip: too large"
	scanStatusDuplicate   = "skip: duplicate"
	scanStatusPending     = "generate"
)

type scanOptions struct {
	format    string
	detection string
	tokenizer string
	maxTokens int
}

// scanEntry is one reported declaration. Lines are 1-based.
type scanEntry struct {
	Kind       string `json:"kind"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Tokens     int    `json:"tokens"`
	Documented bool   `json:"documented"`
	TooLarge   bool   `json:"too_large"`
	Duplicate  bool   `json:"duplicate"`
}

func createScanCommand(env environment, root *rootOptions) *cobra.Command {
	var options scanOptions

	scanCommand := &cobra.Command{
		Use:     scanUse,
		Aliases: []string{scanAlias},
		Short:   scanShortDescription,
		Long:    scanLongDescription,
		Example: scanUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			format := strings.ToLower(options.format)
			if format != types.FormatRaw && format != types.FormatJSON {
				return fmt.Errorf(invalidFormatMessage, options.format)
			}
			var layer config.ApplicationConfiguration
			if command.Flags().Changed(detectionFlagName) {
				layer.Generation.Detection = options.detection
			}
			if command.Flags().Changed(tokenizerFlagName) {
				layer.Generation.Tokenizer = options.tokenizer
			}
			if command.Flags().Changed(maxTokensFlagName) {
				maxTokens := options.maxTokens
				layer.Generation.MaxTokens = &maxTokens
			}
			settings, settingsErr := loadSettings(root, layer)
			if settingsErr != nil {
				return settingsErr
			}
			entries, scanErr := scanFile(command.Context(), env, settings, arguments[0])
			if scanErr != nil {
				return scanErr
			}
			if format == types.FormatJSON {
				return renderScanJSON(env.stdout, entries)
			}
			return renderScanRaw(env.stdout, entries)
		},
	}

	flags := scanCommand.Flags()
	flags.StringVar(&options.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	flags.StringVar(&options.detection, detectionFlagName, types.DetectionHeuristic, detectionFlagDescription)
	flags.StringVar(&options.tokenizer, tokenizerFlagName, tokenizer.ApproximateModel, tokenizerFlagDescription)
	flags.IntVar(&options.maxTokens, maxTokensFlagName, pipeline.DefaultMaxTokens, maxTokensFlagDescription)
	return scanCommand
}

func scanFile(ctx context.Context, env environment, settings config.Settings, inputArgument string) ([]scanEntry, error) {
	inputPath, inputErr := resolveInputFile(inputArgument)
	if inputErr != nil {
		return nil, inputErr
	}
	source, readErr := readSource(inputPath)
	if readErr != nil {
		return nil, readErr
	}
	counter, _, counterErr := tokenizer.NewCounter(tokenizer.Config{Model: settings.Tokenizer})
	if counterErr != nil {
		return nil, counterErr
	}
	parser, parserErr := env.newParser()
	if parserErr != nil {
		return nil, parserErr
	}
	scanner := pipeline.NewTreeScanner(parser, locator.New(locator.Options{Kinds: settings.Kinds, Detection: settings.Detection}), env.logger)
	declarations, scanErr := scanner.Scan(ctx, source)
	if scanErr != nil {
		return nil, scanErr
	}

	entries := make([]scanEntry, 0, len(declarations))
	for _, declaration := range declarations {
		tokens, countErr := counter.CountString(declaration.SourceText)
		if countErr != nil {
			return nil, fmt.Errorf("count tokens with %s: %w", counter.Name(), countErr)
		}
		entries = append(entries, scanEntry{
			Kind:       declaration.Kind,
			StartLine:  declaration.StartLine + 1,
			EndLine:    declaration.StartLine + 1 + strings.Count(strings.TrimRight(declaration.SourceText, "\r\n"), "\n"),
			Start:      declaration.StartOffset,
			End:        declaration.EndOffset,
			Tokens:     tokens,
			Documented: declaration.HasDoc,
			TooLarge:   tokens > settings.MaxTokens,
			Duplicate:  !pipeline.Reachable(source, declaration),
		})
	}
	return entries, nil
}

func renderScanJSON(writer io.Writer, entries []scanEntry) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("encode scan results: %w", err)
	}
	return nil
}

func renderScanRaw(writer io.Writer, entries []scanEntry) error {
	table := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, scanTableHeader)
	for _, entry := range entries {
		status := scanStatusPending
		switch {
		case entry.Documented:
			status = scanStatusDocumented
		case entry.TooLarge:
			status = scanStatusTooLarge
		case entry.Duplicate:
			status = scanStatusDuplicate
		}
		fmt.Fprintf(table, "%d-%d\t%s\t%d\t%t\t%s\n", entry.StartLine, entry.EndLine, entry.Kind, entry.Tokens, entry.Documented, status)
	}
	if err := table.Flush(); err != nil {
		return fmt.Errorf("write scan results: %w", err)
	}
	return nil
}

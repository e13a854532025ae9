// Package pipeline drives one documentation run over a source buffer: scan,
// filter, generate, and merge.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/jdoc/internal/extract"
	"github.com/temirov/jdoc/internal/splice"
	"github.com/temirov/jdoc/internal/tokenizer"
	"github.com/temirov/jdoc/internal/types"
)

// DefaultMaxTokens is the largest declaration sent for generation.
const DefaultMaxTokens = 2048

// Skip reasons.
const (
	SkipDocumented = "documented"
	SkipTooLarge   = "too_large"
	SkipDuplicate  = "duplicate"
	SkipMalformed  = "malformed"
)

const (
	logFieldStart  = "start"
	logFieldEnd    = "end"
	logFieldKind   = "kind"
	logFieldLine   = "line"
	logFieldTokens = "tokens"
)

// ErrCancelled reports that the run was interrupted before the merge step.
var ErrCancelled = errors.New("documentation run cancelled")

// Scanner lists the declarations of a source buffer.
type Scanner interface {
	Scan(ctx context.Context, source string) ([]types.DeclarationSpan, error)
}

// Generator produces raw doc comment text for declaration source and can be told to stop.
type Generator interface {
	Generate(ctx context.Context, declaration string) (string, error)
	Stop(ctx context.Context) error
}

// Options tunes the driver. Zero values select the defaults.
type Options struct {
	MaxTokens int
	Counter   tokenizer.Counter
	Policy    extract.Policy
}

// Skip records a declaration that was not sent for generation or not merged.
type Skip struct {
	Span   types.DeclarationSpan
	Reason string
	Tokens int
}

// Result is the outcome of a completed run. Output is the source with every
// applicable merge applied; nothing has been written anywhere yet.
type Result struct {
	Declarations []types.DeclarationSpan
	Merges       []types.MergeResult
	Skips        []Skip
	Output       string
	Report       splice.ApplyReport
}

// Driver runs declarations through generation one at a time in document order.
type Driver struct {
	scanner   Scanner
	generator Generator
	counter   tokenizer.Counter
	maxTokens int
	policy    extract.Policy
	logger    *zap.Logger
}

// NewDriver constructs a Driver.
func NewDriver(scanner Scanner, generator Generator, options Options, logger *zap.Logger) (*Driver, error) {
	if scanner == nil {
		return nil, errors.New("pipeline requires a scanner")
	}
	if generator == nil {
		return nil, errors.New("pipeline requires a generator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	counter := options.Counter
	if counter == nil {
		approximate, _, err := tokenizer.NewCounter(tokenizer.Config{})
		if err != nil {
			return nil, err
		}
		counter = approximate
	}
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Driver{
		scanner:   scanner,
		generator: generator,
		counter:   counter,
		maxTokens: maxTokens,
		policy:    options.Policy,
		logger:    logger,
	}, nil
}

// Run documents source. On cancellation it notifies the generator to stop and
// returns ErrCancelled with no output. A generation failure aborts the run.
func (driver *Driver) Run(ctx context.Context, source string) (Result, error) {
	declarations, scanErr := driver.scanner.Scan(ctx, source)
	if scanErr != nil {
		if ctx.Err() != nil {
			return Result{}, driver.abort(ctx)
		}
		return Result{}, scanErr
	}
	driver.logger.Info("declarations found", zap.Int("count", len(declarations)))

	result := Result{Declarations: declarations}
	for _, declaration := range declarations {
		if ctx.Err() != nil {
			return Result{}, driver.abort(ctx)
		}
		fields := spanFields(declaration)

		if declaration.HasDoc {
			result.Skips = append(result.Skips, Skip{Span: declaration, Reason: SkipDocumented})
			driver.logger.Debug("already documented", fields...)
			continue
		}

		tokenCount, countErr := driver.counter.CountString(declaration.SourceText)
		if countErr != nil {
			return Result{}, fmt.Errorf("count tokens with %s: %w", driver.counter.Name(), countErr)
		}
		fields = append(fields, zap.Int(logFieldTokens, tokenCount))
		if tokenCount > driver.maxTokens {
			result.Skips = append(result.Skips, Skip{Span: declaration, Reason: SkipTooLarge, Tokens: tokenCount})
			driver.logger.Warn("declaration too large, skipping", fields...)
			continue
		}

		if !Reachable(source, declaration) {
			result.Skips = append(result.Skips, Skip{Span: declaration, Reason: SkipDuplicate, Tokens: tokenCount})
			driver.logger.Warn("declaration text occurs earlier in the file, skipping", fields...)
			continue
		}

		driver.logger.Info("generating doc comment", fields...)
		driver.logger.Debug("generation input", zap.String("declaration", declaration.SourceText))
		rawText, generateErr := driver.generator.Generate(ctx, declaration.SourceText)
		if generateErr != nil {
			if ctx.Err() != nil {
				return Result{}, driver.abort(ctx)
			}
			return Result{}, fmt.Errorf("generate doc comment for %s at line %d: %w", declaration.Kind, declaration.StartLine+1, generateErr)
		}
		driver.logger.Debug("generation output", zap.String("text", rawText))

		comment, extractErr := extract.Extract(rawText, driver.policy)
		if extractErr != nil {
			result.Skips = append(result.Skips, Skip{Span: declaration, Reason: SkipMalformed, Tokens: tokenCount})
			driver.logger.Warn("generated text has no doc comment, skipping", append(fields, zap.Error(extractErr))...)
			continue
		}
		if !comment.Delimited {
			driver.logger.Warn("generated text has no doc comment delimiters, inserting it verbatim", fields...)
		}
		result.Merges = append(result.Merges, splice.Merge(declaration, comment.DocComment))
	}

	result.Output, result.Report = splice.Apply(source, result.Merges)
	for _, missing := range result.Report.Missing {
		driver.logger.Warn("declaration text no longer present in buffer, merge dropped", spanFields(missing.Span)...)
	}
	driver.logger.Info("doc comments merged",
		zap.Int("applied", len(result.Report.Applied)),
		zap.Int("skipped", len(result.Skips)),
	)
	return result, nil
}

// Reachable reports whether the first occurrence of span's text in source is the
// span itself. Merges replace first occurrences, so any other span would land on
// the earlier text.
func Reachable(source string, span types.DeclarationSpan) bool {
	return strings.Index(source, span.SourceText) == span.StartOffset
}

func (driver *Driver) abort(ctx context.Context) error {
	cause := context.Cause(ctx)
	if stopErr := driver.generator.Stop(context.WithoutCancel(ctx)); stopErr != nil {
		driver.logger.Warn("stop request failed", zap.Error(stopErr))
	} else {
		driver.logger.Info("stop request sent")
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

func spanFields(span types.DeclarationSpan) []zap.Field {
	return []zap.Field{
		zap.Int(logFieldStart, span.StartOffset),
		zap.Int(logFieldEnd, span.EndOffset),
		zap.String(logFieldKind, span.Kind),
		zap.Int(logFieldLine, span.StartLine+1),
	}
}

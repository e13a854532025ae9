// Package tokenizer estimates how many tokens a declaration costs to send.
package tokenizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters provided by the CLI.
type Config struct {
	Model string
}

const (
	// ApproximateModel selects the word/punctuation counter.
	ApproximateModel    = "approximate"
	defaultEncodingName = "cl100k_base"
)

// approximateTokenPattern counts runs of word characters and single punctuation marks.
var approximateTokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+|[^\p{L}\p{M}\p{N}_\s\p{Z}]`)

// NewCounter returns a Counter implementation for the requested model.
// An empty model selects the approximate counter.
func NewCounter(cfg Config) (Counter, string, error) {
	model := strings.TrimSpace(cfg.Model)
	lowerModel := strings.ToLower(model)
	if lowerModel == "" || lowerModel == ApproximateModel {
		return approximateCounter{}, ApproximateModel, nil
	}

	if isOpenAIModel(lowerModel) {
		encoding, err := tiktoken.EncodingForModel(lowerModel)
		if err == nil && encoding != nil {
			return openAICounter{encoding: encoding, name: lowerModel}, model, nil
		}
		fallback, fallbackErr := tiktoken.GetEncoding(defaultEncodingName)
		if fallbackErr != nil {
			return nil, "", fmt.Errorf("initialize fallback tokenizer: %w", fallbackErr)
		}
		return openAICounter{encoding: fallback, name: defaultEncodingName}, defaultEncodingName, nil
	}

	if encoding, err := tiktoken.GetEncoding(lowerModel); err == nil && encoding != nil {
		return openAICounter{encoding: encoding, name: lowerModel}, lowerModel, nil
	}
	return nil, "", fmt.Errorf("unsupported tokenizer model %q", model)
}

type approximateCounter struct{}

func (approximateCounter) Name() string {
	return ApproximateModel
}

// CountString counts word runs and individual punctuation characters. It is not
// model-exact and is only meant for size gating.
func (approximateCounter) CountString(input string) (int, error) {
	return len(approximateTokenPattern.FindAllStringIndex(input, -1)), nil
}

type openAICounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter openAICounter) Name() string {
	return counter.name
}

func (counter openAICounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errors.New("nil tiktoken encoder")
	}
	tokenIDs := counter.encoding.Encode(input, nil, nil)
	return len(tokenIDs), nil
}

func isOpenAIModel(model string) bool {
	prefixes := []string{
		"gpt-",
		"text-embedding",
		"davinci",
		"code-",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

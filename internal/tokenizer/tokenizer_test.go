package tokenizer

import (
	"strings"
	"testing"
)

func TestApproximateCounter(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "empty", input: "", expected: 0},
		{name: "words", input: "public void run", expected: 3},
		{name: "punctuation", input: "run();", expected: 4},
		{name: "identifiers with digits and underscores", input: "int max_value2 = 10;", expected: 5},
		{name: "whitespace only", input: " \t\n ", expected: 0},
		{name: "unicode letters", input: "größe++", expected: 3},
	}
	counter, model, err := NewCounter(Config{})
	if err != nil {
		t.Fatalf("NewCounter error: %v", err)
	}
	if model != ApproximateModel {
		t.Fatalf("expected approximate model, got %q", model)
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			count, countErr := counter.CountString(testCase.input)
			if countErr != nil {
				t.Fatalf("CountString error: %v", countErr)
			}
			if count != testCase.expected {
				t.Fatalf("expected %d tokens, got %d", testCase.expected, count)
			}
		})
	}
}

func TestApproximateCounterLargeDeclaration(t *testing.T) {
	counter := approximateCounter{}
	body := strings.Repeat("x = y;\n", 600)
	count, err := counter.CountString(body)
	if err != nil {
		t.Fatalf("CountString error: %v", err)
	}
	if count != 2400 {
		t.Fatalf("expected 2400 tokens, got %d", count)
	}
}

func TestNewCounterRejectsUnknownModel(t *testing.T) {
	if _, _, err := NewCounter(Config{Model: "llama-3.1-8b"}); err == nil {
		t.Fatalf("expected error for unsupported model")
	}
}

func TestIsOpenAIModel(t *testing.T) {
	testCases := []struct {
		model    string
		expected bool
	}{
		{model: "gpt-4o", expected: true},
		{model: "text-embedding-3-small", expected: true},
		{model: "claude-3-5-sonnet", expected: false},
		{model: "deepseek-r1-standard", expected: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.model, func(t *testing.T) {
			if result := isOpenAIModel(testCase.model); result != testCase.expected {
				t.Fatalf("expected %v, got %v", testCase.expected, result)
			}
		})
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/temirov/jdoc/internal/formatter"
	"github.com/temirov/jdoc/internal/generation"
	"github.com/temirov/jdoc/internal/pipeline"
	"github.com/temirov/jdoc/internal/stream"
	"github.com/temirov/jdoc/internal/tokenizer"
	"github.com/temirov/jdoc/internal/types"
	"github.com/temirov/jdoc/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration is the on-disk configuration. Unset fields are nil or
// empty so that a later file only overrides what it names.
type ApplicationConfiguration struct {
	Service    ServiceConfiguration    `mapstructure:"service" yaml:"service"`
	Generation GenerationConfiguration `mapstructure:"generation" yaml:"generation"`
	Formatter  FormatterConfiguration  `mapstructure:"formatter" yaml:"formatter"`
	Stream     StreamConfiguration     `mapstructure:"stream" yaml:"stream"`
}

// ServiceConfiguration locates and tunes the generation service.
type ServiceConfiguration struct {
	Endpoint    string   `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Model       string   `mapstructure:"model" yaml:"model,omitempty"`
	Temperature *float64 `mapstructure:"temperature" yaml:"temperature,omitempty"`
	Timeout     string   `mapstructure:"timeout" yaml:"timeout,omitempty"`
	StopTimeout string   `mapstructure:"stop_timeout" yaml:"stop_timeout,omitempty"`
}

// GenerationConfiguration selects which declarations are documented.
type GenerationConfiguration struct {
	MaxTokens *int     `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	Tokenizer string   `mapstructure:"tokenizer" yaml:"tokenizer,omitempty"`
	Detection string   `mapstructure:"detection" yaml:"detection,omitempty"`
	Strict    *bool    `mapstructure:"strict" yaml:"strict,omitempty"`
	Kinds     []string `mapstructure:"kinds" yaml:"kinds,omitempty"`
}

// FormatterConfiguration controls the post-write re-indent step.
type FormatterConfiguration struct {
	Enabled    *bool  `mapstructure:"enabled" yaml:"enabled,omitempty"`
	Command    string `mapstructure:"command" yaml:"command,omitempty"`
	TabStop    *int   `mapstructure:"tab_stop" yaml:"tab_stop,omitempty"`
	ShiftWidth *int   `mapstructure:"shift_width" yaml:"shift_width,omitempty"`
	ExpandTab  *bool  `mapstructure:"expand_tab" yaml:"expand_tab,omitempty"`
}

// StreamConfiguration describes the response fragment format.
type StreamConfiguration struct {
	Marker       string `mapstructure:"marker" yaml:"marker,omitempty"`
	NewlineToken string `mapstructure:"newline_token" yaml:"newline_token,omitempty"`
}

// Settings is a fully resolved configuration.
type Settings struct {
	Endpoint         string
	Model            string
	Temperature      float64
	Timeout          time.Duration
	StopTimeout      time.Duration
	MaxTokens        int
	Tokenizer        string
	Detection        string
	Strict           bool
	Kinds            []string
	FormatterEnabled bool
	FormatterCommand string
	TabStop          int
	ShiftWidth       int
	ExpandTab        bool
	StreamMarker     string
	NewlineToken     string
}

// Defaults returns the built-in configuration with every field set.
func Defaults() ApplicationConfiguration {
	return ApplicationConfiguration{
		Service: ServiceConfiguration{
			Endpoint:    generation.DefaultEndpoint,
			Model:       generation.DefaultModel,
			Temperature: floatPointer(generation.DefaultTemperature),
			Timeout:     generation.DefaultTimeout.String(),
			StopTimeout: generation.DefaultStopTimeout.String(),
		},
		Generation: GenerationConfiguration{
			MaxTokens: intPointer(pipeline.DefaultMaxTokens),
			Tokenizer: tokenizer.ApproximateModel,
			Detection: types.DetectionHeuristic,
			Strict:    boolPointer(false),
			Kinds:     slices.Clone(types.DefaultDeclarationKinds),
		},
		Formatter: FormatterConfiguration{
			Enabled:    boolPointer(true),
			Command:    formatter.DefaultCommand,
			TabStop:    intPointer(formatter.DefaultTabStop),
			ShiftWidth: intPointer(formatter.DefaultShiftWidth),
			ExpandTab:  boolPointer(true),
		},
		Stream: StreamConfiguration{
			Marker:       stream.DefaultMarker,
			NewlineToken: stream.DefaultNewlineToken,
		},
	}
}

// LoadApplicationConfiguration loads configuration from the global and local files.
// Missing files are not an error.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	return merged.Merge(localConfig), nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.LocalConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Service = result.Service.merge(override.Service)
	result.Generation = result.Generation.merge(override.Generation)
	result.Formatter = result.Formatter.merge(override.Formatter)
	result.Stream = result.Stream.merge(override.Stream)
	return result
}

// Resolve fills unset values from Defaults and validates the result.
func (config ApplicationConfiguration) Resolve() (Settings, error) {
	full := Defaults().Merge(config)

	timeout, timeoutErr := parseDuration("service.timeout", full.Service.Timeout)
	if timeoutErr != nil {
		return Settings{}, timeoutErr
	}
	stopTimeout, stopErr := parseDuration("service.stop_timeout", full.Service.StopTimeout)
	if stopErr != nil {
		return Settings{}, stopErr
	}
	detection := strings.ToLower(strings.TrimSpace(full.Generation.Detection))
	if detection != types.DetectionHeuristic && detection != types.DetectionStructural {
		return Settings{}, fmt.Errorf("generation.detection must be %s or %s, got %q", types.DetectionHeuristic, types.DetectionStructural, full.Generation.Detection)
	}
	if *full.Generation.MaxTokens <= 0 {
		return Settings{}, fmt.Errorf("generation.max_tokens must be positive, got %d", *full.Generation.MaxTokens)
	}

	return Settings{
		Endpoint:         full.Service.Endpoint,
		Model:            full.Service.Model,
		Temperature:      *full.Service.Temperature,
		Timeout:          timeout,
		StopTimeout:      stopTimeout,
		MaxTokens:        *full.Generation.MaxTokens,
		Tokenizer:        full.Generation.Tokenizer,
		Detection:        detection,
		Strict:           *full.Generation.Strict,
		Kinds:            full.Generation.Kinds,
		FormatterEnabled: *full.Formatter.Enabled,
		FormatterCommand: full.Formatter.Command,
		TabStop:          *full.Formatter.TabStop,
		ShiftWidth:       *full.Formatter.ShiftWidth,
		ExpandTab:        *full.Formatter.ExpandTab,
		StreamMarker:     full.Stream.Marker,
		NewlineToken:     full.Stream.NewlineToken,
	}, nil
}

func (config ServiceConfiguration) merge(override ServiceConfiguration) ServiceConfiguration {
	result := config
	if override.Endpoint != "" {
		result.Endpoint = override.Endpoint
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	if override.Temperature != nil {
		result.Temperature = cloneFloat(override.Temperature)
	}
	if override.Timeout != "" {
		result.Timeout = override.Timeout
	}
	if override.StopTimeout != "" {
		result.StopTimeout = override.StopTimeout
	}
	return result
}

func (config GenerationConfiguration) merge(override GenerationConfiguration) GenerationConfiguration {
	result := config
	if override.MaxTokens != nil {
		result.MaxTokens = cloneInt(override.MaxTokens)
	}
	if override.Tokenizer != "" {
		result.Tokenizer = override.Tokenizer
	}
	if override.Detection != "" {
		result.Detection = override.Detection
	}
	if override.Strict != nil {
		result.Strict = cloneBool(override.Strict)
	}
	if len(override.Kinds) > 0 {
		result.Kinds = slices.Clone(override.Kinds)
	}
	return result
}

func (config FormatterConfiguration) merge(override FormatterConfiguration) FormatterConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Command != "" {
		result.Command = override.Command
	}
	if override.TabStop != nil {
		result.TabStop = cloneInt(override.TabStop)
	}
	if override.ShiftWidth != nil {
		result.ShiftWidth = cloneInt(override.ShiftWidth)
	}
	if override.ExpandTab != nil {
		result.ExpandTab = cloneBool(override.ExpandTab)
	}
	return result
}

func (config StreamConfiguration) merge(override StreamConfiguration) StreamConfiguration {
	result := config
	if override.Marker != "" {
		result.Marker = override.Marker
	}
	if override.NewlineToken != "" {
		result.NewlineToken = override.NewlineToken
	}
	return result
}

func parseDuration(key string, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return duration, nil
}

func boolPointer(value bool) *bool {
	return &value
}

func intPointer(value int) *int {
	return &value
}

func floatPointer(value float64) *float64 {
	return &value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

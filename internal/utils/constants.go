package utils

const (
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".jdoc"
	// ConfigFileName is the global configuration file name.
	ConfigFileName = "config.yaml"
	// LocalConfigFileName is the per-project configuration file name.
	LocalConfigFileName = ".jdoc.yaml"
	// APIKeyEnvironmentVariable supplies the generation service credential when no flag is given.
	APIKeyEnvironmentVariable = "JDOC_API_KEY"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes the fatal log line on command failure.
	ApplicationExecutionFailedMessage = "jdoc failed"
)

package config

import "errors"

var (
	// ErrInvalidBackend indicates the backend name is not recognized.
	ErrInvalidBackend = errors.New("config: invalid backend (must be \"file\" or \"s3\")")

	// ErrInvalidVersion indicates the container version string is unusable.
	ErrInvalidVersion = errors.New("config: invalid container version")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the document root path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrMissingBucket indicates the s3 backend is selected without a bucket.
	ErrMissingBucket = errors.New("config: s3 backend requires s3.bucket")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")

	// ErrInvalidConfigValue indicates a value that cannot be parsed for its key.
	ErrInvalidConfigValue = errors.New("config: invalid configuration value")
)

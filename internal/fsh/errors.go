package fsh

import "errors"

// Error variables for configuration and command handling.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrUnknownBackend     = errors.New("unknown backend")
	ErrUnknownMode        = errors.New("unknown open mode")
	ErrBufferSizeNegative = errors.New("buffer_size cannot be negative")
	ErrPathRequired       = errors.New("file path is required")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrUsage              = errors.New("usage")
	ErrBadData            = errors.New("data must be hex or a quoted string")
	ErrUnterminatedQuote  = errors.New("unterminated quote")
)

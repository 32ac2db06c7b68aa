package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	ErrValidation             = errors.New("failed to validate request")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrMissingModel           = errors.New("missing model name")
	ErrInvalidQueryParams     = errors.New("invalid query parameters")

	ErrLaunch            = errors.New("failed to launch inference server")
	ErrServerNotRunning  = errors.New("inference server is not running")
	ErrNoModelSelected   = errors.New("no model selected")
	ErrModelFileMissing  = errors.New("model file missing from disk")
	ErrUnterminatedQuote = errors.New("unterminated quote in extra arguments")
)

package extract

import "errors"

var (
	// ErrUnsupportedType indicates no extractor is registered for the
	// declared content type. Permanently invalid; never retried.
	ErrUnsupportedType = errors.New("unsupported content type")

	// ErrEmptyDocument indicates the source resolved to no text at all.
	ErrEmptyDocument = errors.New("document contains no text")
)

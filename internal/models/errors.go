package models

import "errors"

var (
	// ErrCollectionUnavailable means neither remote nor local artifacts could be loaded.
	ErrCollectionUnavailable = errors.New("collection unavailable")
	// ErrEmbeddingService means the external embedding call failed.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrMalformedRange means a verse reference or range could not be parsed or spans chapters.
	ErrMalformedRange = errors.New("malformed verse range")
	// ErrInvalidQuery means a request is missing required input.
	ErrInvalidQuery = errors.New("invalid query")
)

// Package mcp provides a Model Context Protocol server adapter.
// It lets AI assistants search the corpus and inspect index state.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is
// not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

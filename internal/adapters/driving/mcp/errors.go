// Package mcp provides an MCP (Model Context Protocol) server adapter for Aegis.
// It lets AI assistants retrieve from, analyse and score ingested documents.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// errUnavailable is returned by tools whose backing service is not configured.
var errUnavailable = errors.New("mcp: service not configured")

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Ingestion Errors.

	// ErrUnsupportedType indicates no parser handles the declared type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmptyInput indicates the uploaded document has no bytes.
	ErrEmptyInput = errors.New("empty input")

	// ErrParseFailure indicates corrupt or unreadable document bytes.
	// Not retried automatically.
	ErrParseFailure = errors.New("parse failure")

	// ErrNoExtractableText indicates neither text extraction nor OCR produced text.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrEmbeddingFailure indicates the embedding capability failed.
	// Fatal for ingestion: no chunks are persisted.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// Analysis Errors.

	// ErrClassificationUnavailable indicates the classifier could not produce a verdict.
	// Callers substitute DefaultRiskVerdict.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrAgentStepFailure indicates a single orchestrator step failed.
	ErrAgentStepFailure = errors.New("agent step failure")

	// ErrLLMUnavailable indicates the text-generation capability is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	// Retrieval uses the fallback tier without it.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// Governance Errors.

	// ErrRateLimitExceeded indicates the outbound call window is full.
	// The caller must back off; there is no internal retry.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrTransferBlocked indicates the destination jurisdiction is not allowed.
	ErrTransferBlocked = errors.New("cross-border transfer blocked")

	// ErrInvalidTransition indicates a rights request status change that is not permitted.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRetentionSweep indicates one table of the retention sweep failed.
	ErrRetentionSweep = errors.New("retention sweep error")

	// ErrTaskRunning indicates a governance task is already executing.
	ErrTaskRunning = errors.New("task already running")
)

// ParseError describes a document that could not be parsed.
// Hints tell the caller how to fix the upload.
type ParseError struct {
	// Type is the declared document type.
	Type string

	// Cause is the underlying failure.
	Cause error

	// Hints are remediation suggestions for the uploader.
	Hints []string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s: %v", e.Type, e.Cause)
	if len(e.Hints) > 0 {
		msg += " (" + strings.Join(e.Hints, "; ") + ")"
	}
	return msg
}

// Unwrap exposes both ErrParseFailure and the cause to errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParseFailure, e.Cause}
}

// NewParseError creates a ParseError.
func NewParseError(docType string, cause error, hints ...string) *ParseError {
	return &ParseError{Type: docType, Cause: cause, Hints: hints}
}

// StepError wraps a failure inside one orchestrator step.
type StepError struct {
	Step  StepName
	Cause error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Cause)
}

// Unwrap exposes both ErrAgentStepFailure and the cause to errors.Is.
func (e *StepError) Unwrap() []error {
	return []error{ErrAgentStepFailure, e.Cause}
}

// RemoteRateLimitError reports that the fetch integration itself refused
// the call. RetryAfter is zero when the remote sent no hint.
type RemoteRateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RemoteRateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("remote rate limit, retry after %s", e.RetryAfter)
	}
	return "remote rate limit"
}

// Unwrap exposes ErrRateLimitExceeded to errors.Is.
func (e *RemoteRateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

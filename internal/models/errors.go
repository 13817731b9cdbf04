package models

import "errors"

// Error taxonomy for the retrieval pipeline. Stages wrap these sentinels with
// fmt.Errorf("...: %w", ...) so callers can classify failures with errors.Is.
var (
	// ErrInvalidQuery means the request itself is malformed (no modality
	// supplied, limit or alpha out of range). Never retried.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEncodingFailure means an external embedding call failed. The original
	// cause is wrapped alongside; encoders never return a zero vector instead.
	ErrEncodingFailure = errors.New("encoding failure")

	// ErrIndexUnavailable means the requested modality's index was never
	// loaded. A capability-missing error, distinct from a transient failure.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrGenerationFailure means the external language-model call failed or
	// timed out. The orchestrator recovers with a placeholder answer.
	ErrGenerationFailure = errors.New("generation failure")
)

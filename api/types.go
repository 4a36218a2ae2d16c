package api

import (
	"time"

	"github.com/voxflow/voxflow/types"
)

// CommandRequest is the POST /v1/command body.
type CommandRequest struct {
	// Text is the transcribed command.
	Text string `json:"text"`
	// SessionID enables cross-command patient context when set.
	SessionID string `json:"session_id,omitempty"`
	// ActorID identifies the clinician issuing the command.
	ActorID string `json:"actor_id,omitempty"`
	// TranscriptionConfidence is the speech-to-text confidence for the
	// whole utterance. Zero means unknown and skips the gate.
	TranscriptionConfidence float64 `json:"transcription_confidence,omitempty"`
}

// Response is the uniform API envelope.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorInfo is the wire form of a structured engine error.
type ErrorInfo struct {
	Code      types.ErrorCode `json:"code"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable,omitempty"`
}

// CapabilityInfo describes one registered capability.
type CapabilityInfo struct {
	Name   string            `json:"name"`
	Schema *types.JSONSchema `json:"schema,omitempty"`
}

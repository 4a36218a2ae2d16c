package types

import (
	"time"

	"github.com/google/uuid"
)

// Command is one inbound natural-language command. A Command is immutable
// once created; classification and planning never modify it.
type Command struct {
	// ID uniquely identifies the command across logs and metrics.
	ID string `json:"id"`
	// Text is the raw command text, typically produced by a speech-to-text
	// collaborator.
	Text string `json:"text"`
	// TranscriptionConfidence is the transcriber's confidence in [0,1].
	// Zero means the text did not come from a transcriber.
	TranscriptionConfidence float64 `json:"transcription_confidence,omitempty"`
	// SessionID groups commands issued within one user session.
	SessionID string `json:"session_id,omitempty"`
	// ReceivedAt is the arrival timestamp.
	ReceivedAt time.Time `json:"received_at"`
}

// NewCommand creates a Command with a fresh ID and arrival timestamp.
func NewCommand(text string) Command {
	return Command{
		ID:         uuid.NewString(),
		Text:       text,
		ReceivedAt: time.Now(),
	}
}

// IntentCategory classifies the purpose of one command fragment.
type IntentCategory string

const (
	// IntentPatientSearch looks up patients by name or identifier.
	IntentPatientSearch IntentCategory = "patient.search"
	// IntentChartOpen opens a patient's chart.
	IntentChartOpen IntentCategory = "chart.open"
	// IntentOrderLab creates a laboratory order.
	IntentOrderLab IntentCategory = "order.lab"
	// IntentOrderImaging creates an imaging order.
	IntentOrderImaging IntentCategory = "order.imaging"
	// IntentOrderMedication creates a medication order.
	IntentOrderMedication IntentCategory = "order.medication"
	// IntentOrderList lists a patient's existing orders.
	IntentOrderList IntentCategory = "order.list"
	// IntentMessageSend sends a message to a patient.
	IntentMessageSend IntentCategory = "message.send"
	// IntentReferralCreate creates a specialist referral.
	IntentReferralCreate IntentCategory = "referral.create"
)

// Intent is the classified purpose of a command fragment plus the
// parameters extracted from its text.
type Intent struct {
	// Category is the classified intent category.
	Category IntentCategory `json:"category"`
	// Confidence is the classification confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Params maps extracted parameter names to values.
	Params map[string]any `json:"params,omitempty"`
	// Span is the fragment of the original text this intent was derived from.
	Span string `json:"span,omitempty"`
	// SpanStart is the byte offset in the command text where the span
	// begins. Folded clause fragments keep the offset of the clause they
	// merged into, so spoken order is recoverable even when the span text
	// no longer appears verbatim in the command.
	SpanStart int `json:"span_start,omitempty"`
	// MissingParams lists required parameters the classifier could not
	// extract. Non-empty MissingParams makes the intent incomplete.
	MissingParams []string `json:"missing_params,omitempty"`
}

// ClassificationKind distinguishes the shapes a classification result can take.
type ClassificationKind string

const (
	// KindSingle means one clear intent was found.
	KindSingle ClassificationKind = "single"
	// KindCompound means the command contained multiple intents.
	KindCompound ClassificationKind = "compound"
	// KindAmbiguous means no intent reached the confidence threshold.
	// Callers surface a clarification request instead of dispatching.
	KindAmbiguous ClassificationKind = "ambiguous"
	// KindIncomplete means an intent matched but required parameters
	// could not be extracted.
	KindIncomplete ClassificationKind = "incomplete"
)

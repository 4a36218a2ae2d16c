package orchestrator

import (
	"context"
	"strings"

	"github.com/voxflow/voxflow/intent"
	"github.com/voxflow/voxflow/types"
)

// Fragment is one piece of live transcription.
type Fragment struct {
	// Text is the transcript fragment.
	Text string `json:"text"`
	// Confidence is the speech-to-text confidence for this fragment.
	// The lowest non-zero confidence seen gates the whole command.
	Confidence float64 `json:"confidence,omitempty"`
	// Final marks the end of the utterance. Closing the fragment channel
	// has the same effect.
	Final bool `json:"final,omitempty"`
}

// UpdateKind tags the stage an Update reports.
type UpdateKind string

const (
	// UpdateReceived acknowledges a fragment with the transcript so far.
	UpdateReceived UpdateKind = "received"
	// UpdateClassified reports the classification outcome.
	UpdateClassified UpdateKind = "classified"
	// UpdateStepCompleted reports one finished plan step.
	UpdateStepCompleted UpdateKind = "step_completed"
	// UpdateFinal carries the aggregated response or the rejection error.
	UpdateFinal UpdateKind = "final"
)

// Update is one incremental processing event.
type Update struct {
	Kind           UpdateKind                `json:"kind"`
	Transcript     string                    `json:"transcript,omitempty"`
	Classification types.ClassificationKind  `json:"classification,omitempty"`
	IntentCount    int                       `json:"intent_count,omitempty"`
	Step           *types.StepResult         `json:"step,omitempty"`
	Response       *types.AggregatedResponse `json:"response,omitempty"`
	Err            *types.Error              `json:"error,omitempty"`
}

// ProcessStream consumes live transcript fragments and emits incremental
// updates, ending with the same aggregated response ProcessCommand would
// produce for the assembled transcript. The updates channel closes after
// the final update or when ctx is cancelled.
func (e *Engine) ProcessStream(ctx context.Context, fragments <-chan Fragment, opts ...CommandOption) <-chan Update {
	var o commandOptions
	for _, opt := range opts {
		opt(&o)
	}

	updates := make(chan Update, 1)
	go func() {
		defer close(updates)

		emit := func(u Update) bool {
			select {
			case updates <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var transcript strings.Builder
	receive:
		for {
			select {
			case frag, ok := <-fragments:
				if !ok {
					break receive
				}
				if text := strings.TrimSpace(frag.Text); text != "" {
					if transcript.Len() > 0 {
						transcript.WriteString(" ")
					}
					transcript.WriteString(text)
				}
				if frag.Confidence > 0 &&
					(o.transcription == 0 || frag.Confidence < o.transcription) {
					o.transcription = frag.Confidence
				}
				if !emit(Update{Kind: UpdateReceived, Transcript: transcript.String()}) {
					return
				}
				if frag.Final {
					break receive
				}
			case <-ctx.Done():
				return
			}
		}

		text := transcript.String()
		if text == "" {
			emit(Update{
				Kind: UpdateFinal,
				Err: types.NewError(types.ErrClassificationAmbiguous,
					"no speech was transcribed"),
			})
			return
		}

		hooks := runHooks{
			onClassified: func(res intent.Result) {
				emit(Update{
					Kind:           UpdateClassified,
					Transcript:     text,
					Classification: res.Kind,
					IntentCount:    len(res.Intents),
				})
			},
			observer: streamObserver{ctx: ctx, updates: updates},
		}

		resp, err := e.execute(ctx, text, o, hooks)
		if err != nil {
			emit(Update{Kind: UpdateFinal, Err: types.AsError(err)})
			return
		}
		emit(Update{Kind: UpdateFinal, Response: resp})
	}()
	return updates
}

// streamObserver forwards finished steps into the update stream.
type streamObserver struct {
	ctx     context.Context
	updates chan<- Update
}

func (s streamObserver) StepStarted(string) {}

func (s streamObserver) StepFinished(result types.StepResult) {
	update := Update{Kind: UpdateStepCompleted, Step: &result}
	select {
	case s.updates <- update:
	case <-s.ctx.Done():
	}
}

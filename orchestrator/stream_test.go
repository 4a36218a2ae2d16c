package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/types"
)

func collectUpdates(t *testing.T, updates <-chan Update) []Update {
	t.Helper()
	var all []Update
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return all
			}
			all = append(all, u)
		case <-deadline:
			t.Fatalf("stream did not finish, got %d updates", len(all))
		}
	}
}

func TestProcessStream_CompoundCommand(t *testing.T) {
	t.Parallel()
	engine, fake := newTestEngine(t)

	fragments := make(chan Fragment, 3)
	fragments <- Fragment{Text: "find patient Smith,", Confidence: 0.95}
	fragments <- Fragment{Text: "order CBC", Confidence: 0.91, Final: true}

	updates := collectUpdates(t, engine.ProcessStream(context.Background(), fragments))
	require.NotEmpty(t, updates)

	var received, classified, steps, finals int
	for _, u := range updates {
		switch u.Kind {
		case UpdateReceived:
			received++
		case UpdateClassified:
			classified++
			assert.Equal(t, types.KindCompound, u.Classification)
			assert.Equal(t, 2, u.IntentCount)
		case UpdateStepCompleted:
			steps++
			require.NotNil(t, u.Step)
		case UpdateFinal:
			finals++
			require.NotNil(t, u.Response)
			assert.Equal(t, types.ResponseSucceeded, u.Response.Status)
		}
	}
	assert.Equal(t, 2, received)
	assert.Equal(t, 1, classified)
	assert.Equal(t, 2, steps)
	assert.Equal(t, 1, finals)

	// The final update is last and the transcript accumulated in order.
	assert.Equal(t, UpdateFinal, updates[len(updates)-1].Kind)
	assert.Equal(t, "find patient Smith, order CBC", updates[1].Transcript)

	orders, err := fake.ListOrders(context.Background(), "456")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestProcessStream_ClosedChannelActsAsFinal(t *testing.T) {
	t.Parallel()
	engine, _ := newTestEngine(t)

	fragments := make(chan Fragment, 1)
	fragments <- Fragment{Text: "order CBC for patient 123"}
	close(fragments)

	updates := collectUpdates(t, engine.ProcessStream(context.Background(), fragments))
	last := updates[len(updates)-1]
	require.Equal(t, UpdateFinal, last.Kind)
	require.NotNil(t, last.Response)
	assert.Equal(t, types.ResponseSucceeded, last.Response.Status)
}

func TestProcessStream_EmptyTranscript(t *testing.T) {
	t.Parallel()
	engine, _ := newTestEngine(t)

	fragments := make(chan Fragment)
	close(fragments)

	updates := collectUpdates(t, engine.ProcessStream(context.Background(), fragments))
	require.Len(t, updates, 1)
	require.Equal(t, UpdateFinal, updates[0].Kind)
	require.NotNil(t, updates[0].Err)
	assert.Equal(t, types.ErrClassificationAmbiguous, updates[0].Err.Code)
}

func TestProcessStream_AmbiguousCommand(t *testing.T) {
	t.Parallel()
	engine, _ := newTestEngine(t)

	fragments := make(chan Fragment, 1)
	fragments <- Fragment{Text: "do the thing over there", Final: true}

	updates := collectUpdates(t, engine.ProcessStream(context.Background(), fragments))
	last := updates[len(updates)-1]
	require.Equal(t, UpdateFinal, last.Kind)
	require.NotNil(t, last.Err)
	assert.Equal(t, types.ErrClassificationAmbiguous, last.Err.Code)
}

func TestProcessStream_LowestFragmentConfidenceGates(t *testing.T) {
	t.Parallel()
	engine, _ := newTestEngine(t)

	fragments := make(chan Fragment, 2)
	fragments <- Fragment{Text: "order CBC", Confidence: 0.9}
	fragments <- Fragment{Text: "for patient 123", Confidence: 0.2, Final: true}

	updates := collectUpdates(t, engine.ProcessStream(context.Background(), fragments))
	last := updates[len(updates)-1]
	require.Equal(t, UpdateFinal, last.Kind)
	require.NotNil(t, last.Err)
	assert.Equal(t, types.ErrClassificationAmbiguous, last.Err.Code)
}

func TestProcessStream_Cancellation(t *testing.T) {
	t.Parallel()
	engine, _ := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	fragments := make(chan Fragment)
	updates := engine.ProcessStream(ctx, fragments)

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("updates channel did not close after cancellation")
		}
	}
}

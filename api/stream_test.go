package api

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/orchestrator"
)

func dialStream(t *testing.T, baseURL, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := strings.Replace(baseURL, "http", "ws", 1) + "/v1/stream" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readUpdates(t *testing.T, conn *websocket.Conn) []orchestrator.Update {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var updates []orchestrator.Update
	for {
		var u orchestrator.Update
		if err := wsjson.Read(ctx, conn, &u); err != nil {
			t.Fatalf("read update: %v (got %d updates)", err, len(updates))
		}
		updates = append(updates, u)
		if u.Kind == orchestrator.UpdateFinal {
			return updates
		}
	}
}

func TestHandleStream_EndToEnd(t *testing.T) {
	t.Parallel()
	srv, fake := newTestServer(t)
	conn := dialStream(t, srv.URL, "")

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, orchestrator.Fragment{
		Text: "find patient Smith,", Confidence: 0.95,
	}))
	require.NoError(t, wsjson.Write(ctx, conn, orchestrator.Fragment{
		Text: "order CBC", Confidence: 0.92, Final: true,
	}))

	updates := readUpdates(t, conn)

	var kinds []orchestrator.UpdateKind
	for _, u := range updates {
		kinds = append(kinds, u.Kind)
	}
	assert.Contains(t, kinds, orchestrator.UpdateReceived)
	assert.Contains(t, kinds, orchestrator.UpdateClassified)
	assert.Contains(t, kinds, orchestrator.UpdateStepCompleted)

	final := updates[len(updates)-1]
	require.NotNil(t, final.Response)
	assert.Equal(t, "succeeded", string(final.Response.Status))
	assert.Len(t, final.Response.Steps, 2)

	orders, err := fake.ListOrders(ctx, "456")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestHandleStream_AmbiguousCommand(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)
	conn := dialStream(t, srv.URL, "")

	require.NoError(t, wsjson.Write(context.Background(), conn, orchestrator.Fragment{
		Text: "do the thing over there", Final: true,
	}))

	updates := readUpdates(t, conn)
	final := updates[len(updates)-1]
	require.NotNil(t, final.Err)
	assert.Equal(t, "CLASSIFICATION_AMBIGUOUS", string(final.Err.Code))
}

func TestHandleStream_SessionFromQuery(t *testing.T) {
	t.Parallel()
	srv, fake := newTestServer(t)
	ctx := context.Background()

	first := dialStream(t, srv.URL, "?session_id=ward-7")
	require.NoError(t, wsjson.Write(ctx, first, orchestrator.Fragment{
		Text: "find patient Smith", Final: true,
	}))
	readUpdates(t, first)

	// Follow-up names no patient; the session carries one forward.
	second := dialStream(t, srv.URL, "?session_id=ward-7")
	require.NoError(t, wsjson.Write(ctx, second, orchestrator.Fragment{
		Text: "order CBC", Final: true,
	}))
	updates := readUpdates(t, second)

	final := updates[len(updates)-1]
	require.NotNil(t, final.Response)
	assert.Equal(t, "succeeded", string(final.Response.Status))

	orders, err := fake.ListOrders(ctx, "456")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

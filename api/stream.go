package api

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/voxflow/voxflow/orchestrator"
)

// HandleStream upgrades to a WebSocket and runs one streamed command.
// The client sends transcript fragments as JSON messages and receives
// one update per processing event; the final update closes the socket.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()

	var opts []orchestrator.CommandOption
	query := r.URL.Query()
	if sid := query.Get("session_id"); sid != "" {
		opts = append(opts, orchestrator.WithSession(sid))
	}
	if actor := query.Get("actor_id"); actor != "" {
		opts = append(opts, orchestrator.WithActor(actor))
	}

	fragments := make(chan orchestrator.Fragment)
	go func() {
		defer close(fragments)
		for {
			var frag orchestrator.Fragment
			if err := wsjson.Read(ctx, conn, &frag); err != nil {
				return
			}
			select {
			case fragments <- frag:
			case <-ctx.Done():
				return
			}
			if frag.Final {
				return
			}
		}
	}()

	for update := range h.engine.ProcessStream(ctx, fragments, opts...) {
		if err := wsjson.Write(ctx, conn, update); err != nil {
			h.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// Live tail of relay events over websocket.
//
// DESIGN: Debug-only stream. Subscribers get a small buffered channel;
// a slow consumer drops messages rather than backpressuring dispatch.
package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

const tailBuffer = 64

// TailHub fans relay events out to connected websocket clients.
type TailHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewTailHub creates an empty hub.
func NewTailHub() *TailHub {
	return &TailHub{subs: make(map[chan []byte]struct{})}
}

// Broadcast sends msg to every subscriber, dropping on full buffers.
func (h *TailHub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *TailHub) subscribe() chan []byte {
	ch := make(chan []byte, tailBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *TailHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// handleTail upgrades the connection and streams relay events until the
// client disconnects.
func (h *TailHub) handleTail(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("tail: websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

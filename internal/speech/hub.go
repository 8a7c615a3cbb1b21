package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/park285/chess-audio-guide/internal/narration"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Frame is the narration websocket message in both directions.
type Frame struct {
	Type    string   `json:"type"`
	ID      uint64   `json:"id,omitempty"`
	Text    string   `json:"text,omitempty"`
	Volume  *float64 `json:"volume,omitempty"`
	Message string   `json:"message,omitempty"`
}

const (
	FrameSpeak  = "speak"
	FramePause  = "pause"
	FrameResume = "resume"
	FrameCancel = "cancel"
	FrameVolume = "volume"
	FrameEnded  = "ended"
	FrameError  = "error"
)

const (
	clientQueueSize = 16
	writeTimeout    = 5 * time.Second
)

type hubClient struct {
	conn *websocket.Conn
	send chan Frame
}

// Hub forwards utterances to connected browsers, which speak them and
// report back. With no browser connected it falls back to a Timed engine.
type Hub struct {
	mu       sync.Mutex
	clients  map[*hubClient]struct{}
	listener narration.Listener
	fallback *Timed
	logger   *zap.Logger

	current *narration.Utterance
	paused  bool
	volume  float64
}

func NewHub(fallback *Timed, logger *zap.Logger) *Hub {
	if fallback == nil {
		fallback = NewTimed()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[*hubClient]struct{}),
		fallback: fallback,
		logger:   logger,
		volume:   1,
	}
}

func (h *Hub) Attach(l narration.Listener) {
	h.mu.Lock()
	h.listener = l
	h.mu.Unlock()
	h.fallback.Attach(l)
}

func (h *Hub) Speak(u narration.Utterance) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = u.Volume
	h.paused = false
	if len(h.clients) == 0 {
		h.current = nil
		return h.fallback.Speak(u)
	}
	h.current = &u
	vol := u.Volume
	h.broadcastLocked(Frame{Type: FrameSpeak, ID: u.ID, Text: u.Text, Volume: &vol})
	return nil
}

func (h *Hub) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
	h.broadcastLocked(Frame{Type: FramePause})
	return h.fallback.Pause()
}

func (h *Hub) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = false
	h.broadcastLocked(Frame{Type: FrameResume})
	return h.fallback.Resume()
}

func (h *Hub) Cancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = nil
	h.paused = false
	h.broadcastLocked(Frame{Type: FrameCancel})
	return h.fallback.Cancel()
}

func (h *Hub) SetVolume(v float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
	h.broadcastLocked(Frame{Type: FrameVolume, Volume: &v})
	return h.fallback.SetVolume(v)
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcastLocked queues f for every client; a client that cannot keep up
// is dropped.
func (h *Hub) broadcastLocked(f Frame) {
	for c := range h.clients {
		select {
		case c.send <- f:
		default:
			h.logger.Warn("narration_client_slow", zap.String("frame", f.Type))
			h.removeLocked(c)
			_ = c.conn.Close(websocket.StatusPolicyViolation, "too slow")
		}
	}
}

func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Serve runs one browser connection until it closes or ctx ends. It owns
// conn and closes it on return.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) error {
	c := &hubClient{conn: conn, send: make(chan Frame, clientQueueSize)}

	// an utterance already on the fallback timer finishes there
	h.mu.Lock()
	h.clients[c] = struct{}{}
	vol := h.volume
	c.send <- Frame{Type: FrameVolume, Volume: &vol}
	h.mu.Unlock()
	h.logger.Info("narration_client_connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		h.writeLoop(ctx, c)
	}()

	err := h.readLoop(ctx, c)

	h.mu.Lock()
	h.removeLocked(c)
	orphan := h.current
	if len(h.clients) > 0 {
		orphan = nil
	}
	l := h.listener
	h.mu.Unlock()
	cancel()
	<-writeDone
	_ = conn.Close(websocket.StatusNormalClosure, "")

	// nobody is left to report the utterance in flight
	if orphan != nil && l != nil {
		l.Ended(orphan.ID)
	}
	h.logger.Info("narration_client_disconnected", zap.Error(err))
	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return nil
	}
	return err
}

func (h *Hub) writeLoop(ctx context.Context, c *hubClient) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, f)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, c *hubClient) error {
	for {
		var f Frame
		if err := wsjson.Read(ctx, c.conn, &f); err != nil {
			return err
		}
		h.mu.Lock()
		l := h.listener
		cur := h.current
		if cur != nil && cur.ID == f.ID && (f.Type == FrameEnded || f.Type == FrameError) {
			h.current = nil
		}
		h.mu.Unlock()
		if l == nil {
			continue
		}
		switch f.Type {
		case FrameEnded:
			l.Ended(f.ID)
		case FrameError:
			l.Failed(f.ID, errors.New(f.Message))
		default:
			h.logger.Debug("narration_frame_ignored", zap.String("type", f.Type))
		}
	}
}

var _ narration.Engine = (*Hub)(nil)

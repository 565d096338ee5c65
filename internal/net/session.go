// Package net owns the socket edge: the websocket listener, per-session
// read/write pumps, rate limiting, and the tick-aligned output flush.
package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gridrealm/server/internal/config"
	"github.com/gridrealm/server/internal/metrics"
	"github.com/gridrealm/server/internal/proto"
)

// Session protocol states.
const (
	StateNew    = "new"    // socket up, CMD_AUTHENTICATE pending
	StateAuthed = "authed" // in the world
	StateClosed = "closed"
)

var sessionIDs atomic.Int64

// Session is one websocket connection. The read pump decodes frames
// into InQueue for the tick loop; handlers and systems queue frames via
// Send, and FlushOutput ships the tick's buffer through the write pump.
type Session struct {
	ID      int64
	conn    *websocket.Conn
	log     *zap.Logger
	cfg     config.NetConfig

	// InQueue feeds decoded frames to the input phase. Bounded; a
	// client that overruns it gets dropped frames, not memory growth.
	InQueue chan *proto.Frame

	outQueue chan [][]byte
	outMu    sync.Mutex
	outBuf   [][]byte

	limiter *rate.Limiter

	stateMu  sync.RWMutex
	state    string
	playerID int64

	closeOnce sync.Once
	done      chan struct{}
	// OnClose runs exactly once when the session dies, after the
	// socket closes. Set before Start.
	OnClose func(*Session)
}

func NewSession(conn *websocket.Conn, cfg config.NetConfig, log *zap.Logger) *Session {
	id := sessionIDs.Add(1)
	return &Session{
		ID:       id,
		conn:     conn,
		cfg:      cfg,
		log:      log.With(zap.Int64("session", id)),
		InQueue:  make(chan *proto.Frame, cfg.InQueueSize),
		outQueue: make(chan [][]byte, cfg.OutQueueSize),
		limiter:  rate.NewLimiter(rate.Limit(cfg.FramesPerSecond), cfg.FramesPerSecond),
		state:    StateNew,
		done:     make(chan struct{}),
	}
}

// Start launches the read and write pumps.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// State returns the protocol state.
func (s *Session) State() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Authenticate flips the session into the world.
func (s *Session) Authenticate(playerID int64) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = StateAuthed
	s.playerID = playerID
}

// PlayerID returns the bound player, 0 before authentication.
func (s *Session) PlayerID() int64 {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.playerID
}

// Send buffers one encoded frame for the next flush. Safe from any
// goroutine.
func (s *Session) Send(frame []byte) {
	s.outMu.Lock()
	s.outBuf = append(s.outBuf, frame)
	s.outMu.Unlock()
}

// SendFrame encodes and buffers a frame, logging encode failures.
func (s *Session) SendFrame(id, frameType string, payload any) {
	f, err := proto.NewFrame(id, frameType, payload)
	if err != nil {
		s.log.Error("encode frame failed", zap.String("type", frameType), zap.Error(err))
		return
	}
	raw, err := f.Encode()
	if err != nil {
		s.log.Error("encode frame failed", zap.String("type", frameType), zap.Error(err))
		return
	}
	s.Send(raw)
}

// SendEvent buffers an uncorrelated event frame.
func (s *Session) SendEvent(frameType string, payload any) {
	s.SendFrame("", frameType, payload)
}

// FlushOutput hands the tick's buffered frames to the write pump. A
// full out queue means the client stopped reading; the session dies
// rather than buffer without bound.
func (s *Session) FlushOutput() {
	s.outMu.Lock()
	batch := s.outBuf
	s.outBuf = nil
	s.outMu.Unlock()
	if len(batch) == 0 {
		return
	}
	select {
	case s.outQueue <- batch:
	default:
		s.log.Warn("output queue full, dropping session")
		s.Close()
	}
}

// Close tears the session down. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		s.state = StateClosed
		s.stateMu.Unlock()
		close(s.done)
		s.conn.Close()
		if s.OnClose != nil {
			s.OnClose(s)
		}
	})
}

// Done closes when the session dies.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) readLoop() {
	defer s.Close()
	s.conn.SetReadLimit(64 << 10)
	s.resetReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.resetReadDeadline()
		return nil
	})
	for {
		msgType, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		s.resetReadDeadline()
		if msgType != websocket.BinaryMessage {
			continue
		}
		if !s.limiter.Allow() {
			metrics.FramesDropped.Inc()
			continue
		}
		frame, err := proto.Decode(raw)
		if err != nil {
			s.SendFrame("", proto.RespError, (&proto.WireError{
				Code: proto.ErrProtocolBadFrame, Category: proto.CategoryValidation,
				Message: "malformed frame",
			}).Payload())
			continue
		}
		metrics.FramesIn.Inc()
		select {
		case s.InQueue <- frame:
		default:
			// Input queue full: the loop is behind or the client is
			// flooding. Drop the frame.
			metrics.FramesDropped.Inc()
		}
	}
}

func (s *Session) resetReadDeadline() {
	if s.cfg.ReadTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
}

func (s *Session) writeLoop() {
	pingInterval := s.cfg.ReadTimeout / 3
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	defer s.Close()
	for {
		select {
		case <-s.done:
			return
		case batch := <-s.outQueue:
			for _, frame := range batch {
				s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
					return
				}
				metrics.FramesOut.Inc()
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// DrainInput pops up to max frames without blocking. The input phase
// calls this once per tick per session.
func (s *Session) DrainInput(max int) []*proto.Frame {
	var out []*proto.Frame
	for len(out) < max {
		select {
		case f := <-s.InQueue:
			out = append(out, f)
		default:
			return out
		}
	}
	return out
}

package connection

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/saeidalz13/battleship-session/internal/logging"
)

const (
	maxMessageSize int64 = 8192

	defaultWriteTimeout = time.Second * 10
	pongWait            = time.Second * 60
	pingPeriod          = (pongWait * 9) / 10
)

// Peer is one live websocket of one player in one session.
type Peer struct {
	sessionId string
	playerId  string
	conn      *websocket.Conn
	limiter   *rate.Limiter
	logger    *logging.Logger

	writeMu      sync.Mutex
	writeTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
	createdAt time.Time
}

func newPeer(sessionId, playerId string, conn *websocket.Conn, limiter *rate.Limiter, logger *logging.Logger) *Peer {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &Peer{
		sessionId:    sessionId,
		playerId:     playerId,
		conn:         conn,
		limiter:      limiter,
		logger:       logger,
		writeTimeout: defaultWriteTimeout,
		done:         make(chan struct{}),
		createdAt:    time.Now(),
	}
}

func (p *Peer) SessionId() string {
	return p.sessionId
}

func (p *Peer) PlayerId() string {
	return p.playerId
}

func (p *Peer) Conn() *websocket.Conn {
	return p.conn
}

// Done is closed once the peer has been closed.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Allow reports whether one more inbound message fits the rate limit.
func (p *Peer) Allow() bool {
	if p.limiter == nil {
		return true
	}
	return p.limiter.Allow()
}

// onConnErr classifies a read error.
func (p *Peer) onConnErr(err error) LoopAction {
	ctx := context.Background()
	args := []any{"session_id", p.sessionId, "player_id", p.playerId, "error", err.Error()}

	// No pong within pongWait: the client is gone without saying so.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		p.logger.Info(ctx, "read timeout", args...)
		return LoopAbnormalClosure
	}

	// Mobile clients going to background end up here.
	if websocket.IsCloseError(err, websocket.CloseAbnormalClosure) {
		p.logger.Info(ctx, "abnormal closure", args...)
		return LoopAbnormalClosure
	}

	if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseTryAgainLater) {
		p.logger.Debug(ctx, "connection closed", args...)
		return LoopBreak
	}

	if websocket.IsCloseError(err, websocket.CloseProtocolError, websocket.CloseInternalServerErr, websocket.CloseTLSHandshake, websocket.CloseMandatoryExtension) {
		p.logger.Error(ctx, "critical connection error", err, "session_id", p.sessionId, "player_id", p.playerId)
		return LoopBreak
	}

	// Invalid frames, binary data or oversized messages mean the client is
	// probably not ours. Break instead of reading more of it.
	if websocket.IsCloseError(err, websocket.CloseInvalidFramePayloadData, websocket.CloseUnsupportedData, websocket.CloseMessageTooBig, websocket.ClosePolicyViolation, websocket.CloseServiceRestart, websocket.CloseNoStatusReceived) {
		p.logger.Warn(ctx, "non-critical connection error", args...)
		return LoopBreak
	}

	p.logger.Warn(ctx, "unexpected connection error", args...)
	return LoopBreak
}

// WriteJSON sends one message to the peer. Writes are serialized and bounded
// by the write timeout. A gorilla connection never recovers from a failed
// write, so every failure is reported as an abnormal closure.
func (p *Peer) WriteJSON(msg any) error {
	select {
	case <-p.done:
		return newConnErr(LoopBreak, errPeerClosed)
	default:
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	if err := p.conn.WriteJSON(msg); err != nil {
		p.logger.Debug(context.Background(), "write failed", "session_id", p.sessionId, "player_id", p.playerId, "error", err.Error())
		return newConnErr(LoopAbnormalClosure, err)
	}
	return nil
}

// ReadMessage blocks for the next text frame. Non-text frames are skipped.
// The returned error is always a *ConnErr.
func (p *Peer) ReadMessage() ([]byte, error) {
	for {
		msgType, payload, err := p.conn.ReadMessage()
		if err != nil {
			return nil, newConnErr(p.onConnErr(err), err)
		}
		if msgType != websocket.TextMessage {
			p.logger.Debug(context.Background(), "ignoring non-text frame", "session_id", p.sessionId, "type", msgType)
			continue
		}
		return payload, nil
	}
}

// KeepAlive pings until the peer is closed or ctx is done. Every pong
// extends the read deadline.
func (p *Peer) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(p.writeTimeout))
			if err != nil {
				p.logger.Debug(ctx, "ping failed", "session_id", p.sessionId, "player_id", p.playerId, "error", err.Error())
				return
			}
		}
	}
}

// Close sends a close frame and closes the connection. It is safe to call
// more than once.
func (p *Peer) Close(code int, reason string) {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		_ = p.conn.Close()
	})
}

func (p *Peer) ConnectedFor() time.Duration {
	return time.Since(p.createdAt)
}

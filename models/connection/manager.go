package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
	"github.com/saeidalz13/battleship-session/internal/logging"
)

const CloseReasonSuperseded = "superseded by a newer connection"

type peerKey struct {
	sessionId string
	playerId  string
}

// GraceExpiredFunc is called when a player stayed disconnected for the whole
// grace period.
type GraceExpiredFunc func(sessionId, playerId string)

// Manager tracks at most one live peer per (session, player) and delivers
// pushes to them.
type Manager struct {
	peers map[peerKey]*Peer
	mu    sync.RWMutex

	timers       map[peerKey]*time.Timer
	grace        time.Duration
	onGrace      GraceExpiredFunc
	msgRate      rate.Limit
	msgBurst     int
	writeTimeout time.Duration
	logger       *logging.Logger
}

type ManagerOption func(*Manager)

func WithGracePeriod(grace time.Duration, fn GraceExpiredFunc) ManagerOption {
	return func(m *Manager) {
		m.grace = grace
		m.onGrace = fn
	}
}

func WithRateLimit(perSecond float64, burst int) ManagerOption {
	return func(m *Manager) {
		m.msgRate = rate.Limit(perSecond)
		m.msgBurst = burst
	}
}

func WithWriteTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.writeTimeout = timeout
	}
}

func WithLogger(logger *logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(opts ...ManagerOption) *Manager {
	initMapSize := 10

	m := &Manager{
		peers:        make(map[peerKey]*Peer, initMapSize),
		timers:       make(map[peerKey]*time.Timer, initMapSize),
		msgRate:      rate.Inf,
		writeTimeout: defaultWriteTimeout,
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register makes conn the live peer for this player. A previous peer for the
// same player is closed.
func (m *Manager) Register(sessionId, playerId string, conn *websocket.Conn) *Peer {
	key := peerKey{sessionId: sessionId, playerId: playerId}
	peer := newPeer(sessionId, playerId, conn, rate.NewLimiter(m.msgRate, m.msgBurst), m.logger)
	peer.writeTimeout = m.writeTimeout

	m.mu.Lock()
	prior := m.peers[key]
	m.peers[key] = peer
	if timer, ok := m.timers[key]; ok {
		timer.Stop()
		delete(m.timers, key)
	}
	m.mu.Unlock()

	if prior != nil {
		prior.Close(websocket.ClosePolicyViolation, CloseReasonSuperseded)
		m.logger.Info(context.Background(), "peer superseded", "session_id", sessionId, "player_id", playerId)
	}
	return peer
}

// Unregister removes peer if it is still the live one and reports whether it
// was. cause is the error that ended the peer's read loop; the grace timer
// starts only when it is an abnormal closure.
func (m *Manager) Unregister(peer *Peer, cause error) bool {
	return m.remove(peer, cause, websocket.CloseNormalClosure, "")
}

func (m *Manager) remove(peer *Peer, cause error, code int, reason string) bool {
	key := peerKey{sessionId: peer.sessionId, playerId: peer.playerId}

	m.mu.Lock()
	current, ok := m.peers[key]
	if !ok || current != peer {
		m.mu.Unlock()
		return false
	}
	delete(m.peers, key)
	if m.grace > 0 && m.onGrace != nil && ActionOf(cause) == LoopAbnormalClosure {
		m.startGraceLocked(key)
	}
	m.mu.Unlock()

	peer.Close(code, reason)
	return true
}

// must hold m.mu
func (m *Manager) startGraceLocked(key peerKey) {
	if timer, ok := m.timers[key]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(m.grace, func() {
		m.mu.Lock()
		// reconnected or cancelled in the meantime
		if m.timers[key] != timer {
			m.mu.Unlock()
			return
		}
		delete(m.timers, key)
		m.mu.Unlock()

		m.logger.Info(context.Background(), "grace period is over", "session_id", key.sessionId, "player_id", key.playerId)
		m.onGrace(key.sessionId, key.playerId)
	})
	m.timers[key] = timer
}

func (m *Manager) Peer(sessionId, playerId string) (*Peer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	peer, ok := m.peers[peerKey{sessionId: sessionId, playerId: playerId}]
	return peer, ok
}

// Send pushes msg to one player. A player without a live peer is not an
// error; they get the current state when they reconnect. A peer whose write
// fails is removed so later pushes do not wait on it.
func (m *Manager) Send(ctx context.Context, sessionId, playerId string, msg any) error {
	peer, ok := m.Peer(sessionId, playerId)
	if !ok {
		m.logger.Debug(ctx, "no live peer, push skipped", "session_id", sessionId, "player_id", playerId)
		return nil
	}

	if err := peer.WriteJSON(msg); err != nil {
		m.remove(peer, err, websocket.CloseGoingAway, "write failed")
		tErr := cerr.ErrTransport(sessionId, playerId, err)
		m.logger.Warn(ctx, "push failed", "session_id", sessionId, "player_id", playerId, "error", tErr.Error())
		return tErr
	}
	return nil
}

// Broadcast attempts every push even if some fail.
func (m *Manager) Broadcast(ctx context.Context, sessionId string, pushes ...Push) error {
	errs := make([]error, 0, len(pushes))
	for _, push := range pushes {
		if err := m.Send(ctx, sessionId, push.ReceiverID, push.Payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseSession closes and forgets every peer and pending timer of a session.
func (m *Manager) CloseSession(sessionId string, code int, reason string) {
	m.mu.Lock()
	closing := make([]*Peer, 0, 2)
	for key, peer := range m.peers {
		if key.sessionId == sessionId {
			closing = append(closing, peer)
			delete(m.peers, key)
		}
	}
	for key, timer := range m.timers {
		if key.sessionId == sessionId {
			timer.Stop()
			delete(m.timers, key)
		}
	}
	m.mu.Unlock()

	for _, peer := range closing {
		peer.Close(code, reason)
	}
}

// Drop closes the player's live peer without starting a grace period.
func (m *Manager) Drop(sessionId, playerId string, code int, reason string) {
	key := peerKey{sessionId: sessionId, playerId: playerId}

	m.mu.Lock()
	peer, ok := m.peers[key]
	delete(m.peers, key)
	if timer, pending := m.timers[key]; pending {
		timer.Stop()
		delete(m.timers, key)
	}
	m.mu.Unlock()

	if ok {
		peer.Close(code, reason)
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.peers)
}

func (m *Manager) pendingGrace() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.timers)
}

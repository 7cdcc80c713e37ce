package battleship

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	cerr "github.com/saeidalz13/battleship-session/internal/error"
	"github.com/saeidalz13/battleship-session/internal/logging"
)

const maxSlugAttempts = 5

// AfterFunc runs after a transition has been saved, while the session is
// still locked. It is where pushes to both players are attempted.
type AfterFunc func(prev, next Session)

// Manager is the single writer for every session. All reads-modify-writes of
// one session run one at a time; different sessions run in parallel.
type Manager struct {
	store     Store
	analytics Analytics
	rules     Rules
	picker    Picker
	pickerMu  sync.Mutex
	now       func() time.Time
	logger    *logging.Logger

	locks *keyedMutex

	broken   map[string]error
	brokenMu sync.RWMutex
}

type ManagerOption func(*Manager)

func WithRules(rules Rules) ManagerOption {
	return func(m *Manager) {
		m.rules = rules
	}
}

func WithAnalytics(analytics Analytics) ManagerOption {
	return func(m *Manager) {
		if analytics != nil {
			m.analytics = analytics
		}
	}
}

func WithPicker(picker Picker) ManagerOption {
	return func(m *Manager) {
		m.picker = picker
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(logger *logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		analytics: noopAnalytics{},
		rules:     DefaultRules(),
		picker:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		logger:    logging.Discard(),
		locks:     newKeyedMutex(),
		broken:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Rules() Rules {
	return m.rules
}

func (m *Manager) pick(n int) int {
	m.pickerMu.Lock()
	defer m.pickerMu.Unlock()
	return m.picker.Intn(n)
}

// Broken returns the corruption error recorded for a session, if any.
func (m *Manager) Broken(sessionId string) error {
	m.brokenMu.RLock()
	defer m.brokenMu.RUnlock()
	return m.broken[sessionId]
}

func (m *Manager) markBroken(ctx context.Context, sessionId string, err error) {
	m.brokenMu.Lock()
	m.broken[sessionId] = err
	m.brokenMu.Unlock()
	m.logger.Error(ctx, "session processing aborted", err, "session_id", sessionId)
}

func (m *Manager) forget(sessionId string) {
	m.brokenMu.Lock()
	delete(m.broken, sessionId)
	m.brokenMu.Unlock()
}

// load must be called with the session locked.
func (m *Manager) load(ctx context.Context, sessionId string) (Session, error) {
	if err := m.Broken(sessionId); err != nil {
		return Session{}, err
	}

	session, err := m.store.Get(ctx, sessionId)
	if err != nil {
		return Session{}, err
	}
	if err := session.Validate(); err != nil {
		m.markBroken(ctx, sessionId, err)
		return Session{}, err
	}
	return session, nil
}

// Create makes a new session owned by a new player.
func (m *Manager) Create(ctx context.Context, username string) (Session, Player, error) {
	owner := NewPlayer(username, true)

	var session Session
	for attempt := 0; ; attempt++ {
		slug := uuid.NewString()[:6]
		_, err := m.store.GetBySlug(ctx, slug)
		if cerr.IsKind(err, cerr.KindNotFound) {
			session = NewSession(uuid.NewString(), slug, owner, m.rules, m.now())
			break
		}
		if err != nil {
			return Session{}, Player{}, err
		}
		if attempt >= maxSlugAttempts {
			return Session{}, Player{}, errors.New("could not allocate a unique session slug")
		}
	}

	if err := m.store.Save(ctx, session); err != nil {
		return Session{}, Player{}, err
	}

	if err := m.analytics.IncrementGamesCreatedCount(ctx); err != nil {
		// analytics never fail the action
		m.logger.Warn(ctx, "failed to count created game", "error", err.Error())
	}

	m.logger.Info(ctx, "session created", "session_id", session.ID, "slug", session.Slug, "player_id", owner.ID)
	return session, session.Owner, nil
}

// Get returns the current snapshot without taking the session lock.
func (m *Manager) Get(ctx context.Context, sessionId string) (Session, error) {
	return m.store.Get(ctx, sessionId)
}

// View runs fn on the current snapshot with the session locked, so nothing
// else can change the session while fn pushes it somewhere.
func (m *Manager) View(ctx context.Context, sessionId string, fn func(Session) error) error {
	unlock := m.locks.Lock(sessionId)
	defer unlock()

	session, err := m.load(ctx, sessionId)
	if err != nil {
		return err
	}
	return fn(session)
}

// Update loads, transitions, validates and saves one session under its lock
// and then calls after. A transition error leaves the stored record untouched.
func (m *Manager) Update(ctx context.Context, sessionId string, transition func(Session) (Session, error), after AfterFunc) (Session, error) {
	unlock := m.locks.Lock(sessionId)
	defer unlock()

	prev, err := m.load(ctx, sessionId)
	if err != nil {
		return Session{}, err
	}

	next, err := transition(prev)
	if err != nil {
		return prev, err
	}
	if err := next.Validate(); err != nil {
		m.markBroken(ctx, sessionId, err)
		return Session{}, err
	}

	if err := m.store.Save(ctx, next); err != nil {
		return prev, err
	}

	if after != nil {
		after(prev, next)
	}
	return next, nil
}

// Join seats a new friend in the session with this slug.
func (m *Manager) Join(ctx context.Context, slug, username string, after AfterFunc) (Session, Player, error) {
	found, err := m.store.GetBySlug(ctx, slug)
	if err != nil {
		return Session{}, Player{}, err
	}

	friend := NewPlayer(username, false)
	session, err := m.Update(ctx, found.ID, func(s Session) (Session, error) {
		return Join(s, friend, m.now())
	}, after)
	if err != nil {
		return Session{}, Player{}, err
	}

	m.logger.Info(ctx, "friend joined", "session_id", session.ID, "player_id", friend.ID)
	return session, *session.Friend, nil
}

// PlaceBoats stores a fleet and starts the game as soon as both are in.
func (m *Manager) PlaceBoats(ctx context.Context, sessionId, playerId string, placements []ShipPlacement, after AfterFunc) (Session, error) {
	return m.Update(ctx, sessionId, func(s Session) (Session, error) {
		next, err := PlaceBoats(s, playerId, placements, m.now())
		if err != nil {
			return s, err
		}
		if next.Status != StatusReadyToStart {
			return next, nil
		}
		return Start(next, pickerFunc(m.pick), m.now())
	}, after)
}

func (m *Manager) FireShot(ctx context.Context, sessionId, playerId string, target Coordinates, after AfterFunc) (Session, ShotResult, error) {
	var res ShotResult
	session, err := m.Update(ctx, sessionId, func(s Session) (Session, error) {
		next, r, err := FireShot(s, playerId, target, uuid.NewString(), m.now())
		res = r
		return next, err
	}, after)
	if err != nil {
		return session, res, err
	}

	if defender, ok := session.Opponent(playerId); ok {
		m.logger.Debug(ctx, "shot fired", "session_id", sessionId, "player_id", playerId,
			"hit", res.Hit, "ships_sunk", SunkCount(session.Ships[defender.ID]))
	}
	if session.Status == StatusGameOver {
		m.logger.Info(ctx, "game over", "session_id", sessionId, "winner", session.Winner)
	}
	return session, res, nil
}

func (m *Manager) RequestRematch(ctx context.Context, sessionId, playerId string, after AfterFunc) (Session, error) {
	session, err := m.Update(ctx, sessionId, func(s Session) (Session, error) {
		return RequestRematch(s, playerId, m.now())
	}, after)
	if err != nil {
		return Session{}, err
	}

	if err := m.analytics.IncrementRematchCalledCount(ctx); err != nil {
		m.logger.Warn(ctx, "failed to count rematch", "error", err.Error())
	}
	return session, nil
}

// Leave removes a player. When the session is discarded the record is
// deleted and after receives the previous snapshot as both arguments.
func (m *Manager) Leave(ctx context.Context, sessionId, playerId string, after LeaveFunc) error {
	_, err := m.LeaveIf(ctx, sessionId, playerId, nil, after)
	return err
}

// LeaveFunc runs after a leave was committed, with the session still locked.
type LeaveFunc func(prev, next Session, discarded bool)

// LeaveIf is Leave guarded by cond, which is checked with the session locked.
// It reports whether the player left.
func (m *Manager) LeaveIf(ctx context.Context, sessionId, playerId string, cond func(Session) bool, after LeaveFunc) (bool, error) {
	unlock := m.locks.Lock(sessionId)
	defer unlock()

	prev, err := m.store.Get(ctx, sessionId)
	if err != nil {
		return false, err
	}
	if cond != nil && !cond(prev) {
		return false, nil
	}

	next, discarded, err := Leave(prev, playerId, m.now())
	if err != nil {
		return false, err
	}

	if discarded || m.Broken(sessionId) != nil {
		if err := m.store.Delete(ctx, sessionId); err != nil && !cerr.IsKind(err, cerr.KindNotFound) {
			return false, err
		}
		m.forget(sessionId)
		m.logger.Info(ctx, "session discarded", "session_id", sessionId, "player_id", playerId)
		if after != nil {
			after(prev, prev, true)
		}
		return true, nil
	}

	if err := m.store.Save(ctx, next); err != nil {
		return false, err
	}
	m.logger.Info(ctx, "player left", "session_id", sessionId, "player_id", playerId, "status", string(next.Status))
	if after != nil {
		after(prev, next, false)
	}
	return true, nil
}

// Sweep deletes the sessions lister reports as idle for longer than ttl and
// returns their ids. Each one is re-read under its lock; a session updated
// since it was listed is kept.
func (m *Manager) Sweep(ctx context.Context, lister ExpiredLister, ttl time.Duration) ([]string, error) {
	cutoff := m.now().Add(-ttl)
	candidates, err := lister.ExpiredIDs(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(candidates))
	for _, sessionId := range candidates {
		swept, err := m.sweepOne(ctx, sessionId, cutoff)
		if err != nil {
			m.logger.Warn(ctx, "could not sweep session", "session_id", sessionId, "error", err.Error())
			continue
		}
		if swept {
			removed = append(removed, sessionId)
		}
	}
	return removed, nil
}

func (m *Manager) sweepOne(ctx context.Context, sessionId string, cutoff time.Time) (bool, error) {
	unlock := m.locks.Lock(sessionId)
	defer unlock()

	session, err := m.store.Get(ctx, sessionId)
	switch {
	case cerr.IsKind(err, cerr.KindNotFound):
		m.forget(sessionId)
		return false, nil
	case cerr.IsKind(err, cerr.KindCorrupt):
		// an unreadable record cannot show it was touched
	case err != nil:
		return false, err
	case !session.UpdatedAt.Before(cutoff):
		return false, nil
	}

	if err := m.store.Delete(ctx, sessionId); err != nil && !cerr.IsKind(err, cerr.KindNotFound) {
		return false, err
	}
	m.forget(sessionId)
	m.logger.Info(ctx, "expired session removed", "session_id", sessionId)
	return true, nil
}

type pickerFunc func(n int) int

func (f pickerFunc) Intn(n int) int {
	return f(n)
}

// keyedMutex hands out one mutex per key and drops it once nobody holds or
// waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refMutex{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

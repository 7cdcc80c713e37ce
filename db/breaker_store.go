package db

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
	"github.com/saeidalz13/battleship-session/internal/logging"
	mb "github.com/saeidalz13/battleship-session/models/battleship"
)

type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ConsecutiveFails uint32
}

// BreakerStore stops calling a failing store for a while so that players get
// a fast error instead of waiting on a dead database.
type BreakerStore struct {
	store   mb.Store
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
}

var (
	_ mb.Store         = (*BreakerStore)(nil)
	_ mb.ExpiredLister = (*BreakerStore)(nil)
)

func NewBreakerStore(store mb.Store, settings BreakerSettings, logger *logging.Logger) *BreakerStore {
	bs := &BreakerStore{store: store, logger: logger}

	bs.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "session-store",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFails
		},
		// Missing or corrupt sessions are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || cerr.IsKind(err, cerr.KindNotFound) || cerr.IsKind(err, cerr.KindCorrupt)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return bs
}

func (bs *BreakerStore) State() gobreaker.State {
	return bs.breaker.State()
}

func (bs *BreakerStore) execute(op func() (any, error)) (any, error) {
	res, err := bs.breaker.Execute(op)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, fmt.Errorf("session store unavailable: %w", err)
	}
	return res, err
}

func (bs *BreakerStore) Get(ctx context.Context, sessionId string) (mb.Session, error) {
	res, err := bs.execute(func() (any, error) {
		return bs.store.Get(ctx, sessionId)
	})
	if err != nil {
		return mb.Session{}, err
	}
	return res.(mb.Session), nil
}

func (bs *BreakerStore) GetBySlug(ctx context.Context, slug string) (mb.Session, error) {
	res, err := bs.execute(func() (any, error) {
		return bs.store.GetBySlug(ctx, slug)
	})
	if err != nil {
		return mb.Session{}, err
	}
	return res.(mb.Session), nil
}

func (bs *BreakerStore) Save(ctx context.Context, session mb.Session) error {
	_, err := bs.execute(func() (any, error) {
		return nil, bs.store.Save(ctx, session)
	})
	return err
}

func (bs *BreakerStore) Delete(ctx context.Context, sessionId string) error {
	_, err := bs.execute(func() (any, error) {
		return nil, bs.store.Delete(ctx, sessionId)
	})
	return err
}

// ExpiredIDs goes through the breaker too. A wrapped store that cannot list
// expired sessions yields none.
func (bs *BreakerStore) ExpiredIDs(ctx context.Context, before time.Time) ([]string, error) {
	lister, ok := bs.store.(mb.ExpiredLister)
	if !ok {
		return nil, nil
	}
	res, err := bs.execute(func() (any, error) {
		return lister.ExpiredIDs(ctx, before)
	})
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

package battleship

import (
	"context"
	"time"
)

// Store is the durable home of session records. Implementations return
// cerr not_found errors for unknown ids and slugs.
type Store interface {
	Get(ctx context.Context, sessionId string) (Session, error)
	GetBySlug(ctx context.Context, slug string) (Session, error)
	Save(ctx context.Context, session Session) error
	Delete(ctx context.Context, sessionId string) error
}

// ExpiredLister finds sessions last updated before a cutoff. Stores that can
// list them take part in the TTL sweep.
type ExpiredLister interface {
	ExpiredIDs(ctx context.Context, before time.Time) ([]string, error)
}

// Analytics receives counters for created games and rematches.
type Analytics interface {
	IncrementGamesCreatedCount(ctx context.Context) error
	IncrementRematchCalledCount(ctx context.Context) error
}

type noopAnalytics struct{}

func (noopAnalytics) IncrementGamesCreatedCount(context.Context) error  { return nil }
func (noopAnalytics) IncrementRematchCalledCount(context.Context) error { return nil }

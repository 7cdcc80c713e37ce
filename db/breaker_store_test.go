package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
	"github.com/saeidalz13/battleship-session/internal/logging"
	mb "github.com/saeidalz13/battleship-session/models/battleship"
)

// flakyStore fails every call with err while err is set.
type flakyStore struct {
	*mb.MemoryStore
	err   error
	calls int
}

func (fs *flakyStore) Get(ctx context.Context, sessionId string) (mb.Session, error) {
	fs.calls++
	if fs.err != nil {
		return mb.Session{}, fs.err
	}
	return fs.MemoryStore.Get(ctx, sessionId)
}

func (fs *flakyStore) Save(ctx context.Context, session mb.Session) error {
	fs.calls++
	if fs.err != nil {
		return fs.err
	}
	return fs.MemoryStore.Save(ctx, session)
}

func newBreakerStore(inner mb.Store) *BreakerStore {
	return NewBreakerStore(inner, BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          50 * time.Millisecond,
		ConsecutiveFails: 3,
	}, logging.Discard())
}

func TestBreakerStorePassesThrough(t *testing.T) {
	ctx := context.Background()
	bs := newBreakerStore(mb.NewMemoryStore())

	s := mb.NewSession("s1", "slug", mb.Player{ID: "owner"}, mb.DefaultRules(), time.Now())
	if err := bs.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, err := bs.GetBySlug(ctx, "slug")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "s1" {
		t.Fatalf("got session %s", got.ID)
	}
	expired, err := bs.ExpiredIDs(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0] != "s1" {
		t.Fatalf("expired %v", expired)
	}
	if err := bs.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
}

// plainStore hides the lister of the store it wraps.
type plainStore struct{ mb.Store }

func TestBreakerStoreWithoutListerExpiresNothing(t *testing.T) {
	bs := newBreakerStore(plainStore{mb.NewMemoryStore()})

	expired, err := bs.ExpiredIDs(context.Background(), time.Now())
	if err != nil || len(expired) != 0 {
		t.Fatalf("expired %v err %v", expired, err)
	}
}

func TestBreakerStoreNotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	bs := newBreakerStore(mb.NewMemoryStore())

	for i := 0; i < 10; i++ {
		if _, err := bs.Get(ctx, "missing"); !cerr.IsKind(err, cerr.KindNotFound) {
			t.Fatalf("want not found, got %v", err)
		}
	}
	if bs.State() != gobreaker.StateClosed {
		t.Fatalf("breaker %s after not found errors", bs.State())
	}
}

func TestBreakerStoreTripsAndRecovers(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{MemoryStore: mb.NewMemoryStore(), err: errors.New("connection refused")}
	bs := newBreakerStore(inner)

	for i := 0; i < 3; i++ {
		if _, err := bs.Get(ctx, "s1"); err == nil {
			t.Fatal("want error from failing store")
		}
	}
	if bs.State() != gobreaker.StateOpen {
		t.Fatalf("breaker should be open, is %s", bs.State())
	}

	calls := inner.calls
	_, err := bs.Get(ctx, "s1")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("want open state error, got %v", err)
	}
	if inner.calls != calls {
		t.Fatal("open breaker still called the store")
	}

	inner.err = nil
	time.Sleep(100 * time.Millisecond)

	s := mb.NewSession("s1", "slug", mb.Player{ID: "owner"}, mb.DefaultRules(), time.Now())
	if err := bs.Save(ctx, s); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if bs.State() != gobreaker.StateClosed {
		t.Fatalf("breaker should close after a good probe, is %s", bs.State())
	}
}

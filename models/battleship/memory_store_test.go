package battleship

import (
	"context"
	"testing"
	"time"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	if _, err := ms.Get(ctx, "missing"); !cerr.IsKind(err, cerr.KindNotFound) {
		t.Fatalf("get missing: %v", err)
	}

	s := joinedSession(t, DefaultRules())
	if err := ms.Save(ctx, s); err != nil {
		t.Fatal(err)
	}

	got, err := ms.GetBySlug(ctx, "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != s.ID || got.Friend.ID != "friend" {
		t.Fatalf("unexpected session %+v", got)
	}

	// Reads are copies.
	got.Friend.Username = "mallory"
	again, _ := ms.Get(ctx, s.ID)
	if again.Friend.Username != "bob" {
		t.Fatal("store returned shared memory")
	}

	if err := ms.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := ms.GetBySlug(ctx, "abc123"); !cerr.IsKind(err, cerr.KindNotFound) {
		t.Fatalf("slug survived delete: %v", err)
	}
	if err := ms.Delete(ctx, s.ID); !cerr.IsKind(err, cerr.KindNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestMemoryStoreExpiredIDs(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore()

	old := NewSession("old", "old", Player{ID: "a"}, DefaultRules(), testNow)
	fresh := NewSession("fresh", "fresh", Player{ID: "b"}, DefaultRules(), testNow.Add(time.Hour))
	_ = ms.Save(ctx, old)
	_ = ms.Save(ctx, fresh)

	expired, err := ms.ExpiredIDs(ctx, testNow.Add(time.Minute*30))
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 || expired[0] != "old" {
		t.Fatalf("expired %v", expired)
	}
	// listing never deletes
	if ms.Len() != 2 {
		t.Fatalf("%d sessions left", ms.Len())
	}
}

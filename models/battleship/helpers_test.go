package battleship

import (
	"testing"
	"time"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedPicker int

func (p fixedPicker) Intn(n int) int {
	return int(p) % n
}

// rowFleet lays the default manifest out as horizontal ships on rows 0-4,
// each starting at x=0.
func rowFleet() []ShipPlacement {
	return []ShipPlacement{
		{ID: "carrier", StartX: 0, StartY: 0, Length: 5, Orientation: OrientationHorizontal},
		{ID: "battleship", StartX: 0, StartY: 1, Length: 4, Orientation: OrientationHorizontal},
		{ID: "cruiser", StartX: 0, StartY: 2, Length: 3, Orientation: OrientationHorizontal},
		{ID: "submarine", StartX: 0, StartY: 3, Length: 3, Orientation: OrientationHorizontal},
		{ID: "destroyer", StartX: 0, StartY: 4, Length: 2, Orientation: OrientationHorizontal},
	}
}

func joinedSession(t *testing.T, rules Rules) Session {
	t.Helper()

	s := NewSession("session-1", "abc123", Player{ID: "owner", Username: "alice"}, rules, testNow)
	s, err := Join(s, Player{ID: "friend", Username: "bob"}, testNow)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// playingSession returns a started game where the owner fires first.
func playingSession(t *testing.T, rules Rules) Session {
	t.Helper()

	s := joinedSession(t, rules)
	var err error
	for _, id := range []string{"owner", "friend"} {
		if s, err = PlaceBoats(s, id, rowFleet(), testNow); err != nil {
			t.Fatal(err)
		}
	}
	if s, err = Start(s, fixedPicker(0), testNow); err != nil {
		t.Fatal(err)
	}
	return s
}

func mustFire(t *testing.T, s Session, shooter string, x, y int) (Session, ShotResult) {
	t.Helper()

	next, res, err := FireShot(s, shooter, NewCoordinates(x, y), "shot", testNow)
	if err != nil {
		t.Fatalf("shot by %s at (%d,%d): %v", shooter, x, y, err)
	}
	return next, res
}

// sinkFleet has shooter fire at every cell of rowFleet on the opponent grid.
// The defender answers with a miss on row 9 whenever the turn passes.
func sinkFleet(t *testing.T, s Session, shooter, defender string) Session {
	t.Helper()

	missX := 0
	for _, p := range rowFleet() {
		for _, c := range p.Cells() {
			if s.Status != StatusPlaying {
				return s
			}
			if s.CurrentTurn == defender {
				s, _ = mustFire(t, s, defender, missX, 9)
				missX++
			}
			s, _ = mustFire(t, s, shooter, c.X, c.Y)
		}
	}
	return s
}

package battleship

import (
	"testing"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
)

func TestResolveShotSinksOnLastCell(t *testing.T) {
	ships, err := NewFleet(rowFleet(), DefaultManifest(), 9)
	if err != nil {
		t.Fatal(err)
	}

	in := ShotInput{
		GridSize:      9,
		Rule:          TurnRuleSinkPassesTurn,
		ShooterID:     "owner",
		DefenderID:    "friend",
		DefenderShips: ships,
	}

	for x := 0; x < 5; x++ {
		in.Target = NewCoordinates(x, 0)
		res, err := ResolveShot(in)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Hit {
			t.Fatalf("shot at (%d,0) should hit", x)
		}
		if res.ShipID != "carrier" {
			t.Fatalf("shot at (%d,0) hit %q", x, res.ShipID)
		}

		wantSunk := x == 4
		if res.Sunk != wantSunk {
			t.Fatalf("shot at (%d,0): want sunk %t, got %t", x, wantSunk, res.Sunk)
		}
		if wantSunk && res.NextTurn != "friend" {
			t.Fatalf("sinking hit should pass the turn, next %q", res.NextTurn)
		}
		if !wantSunk && res.NextTurn != "owner" {
			t.Fatalf("hit should keep the turn, next %q", res.NextTurn)
		}

		in.ShotsAgainst = append(in.ShotsAgainst, Shot{ShooterID: "owner", TargetID: "friend", X: x, Y: 0, Hit: true})
		in.DefenderShips = res.DefenderShips
	}

	if ships[0].Sunk {
		t.Fatal("input fleet was modified")
	}
	if SunkCount(in.DefenderShips) != 1 || FleetSunk(in.DefenderShips) {
		t.Fatalf("only the carrier should be sunk: %+v", in.DefenderShips)
	}
}

func TestResolveShotTurnRules(t *testing.T) {
	ships, _ := NewFleet(rowFleet(), DefaultManifest(), 10)
	destroyerHit := Shot{ShooterID: "owner", TargetID: "friend", X: 0, Y: 4, Hit: true}

	tests := []struct {
		name     string
		rule     TurnRule
		target   Coordinates
		previous []Shot
		wantNext string
	}{
		{"miss passes", TurnRuleSinkPassesTurn, NewCoordinates(9, 9), nil, "friend"},
		{"hit keeps", TurnRuleSinkPassesTurn, NewCoordinates(0, 0), nil, "owner"},
		{"sink passes", TurnRuleSinkPassesTurn, NewCoordinates(1, 4), []Shot{destroyerHit}, "friend"},
		{"miss passes with hit rule", TurnRuleHitKeepsTurn, NewCoordinates(9, 9), nil, "friend"},
		{"sink keeps with hit rule", TurnRuleHitKeepsTurn, NewCoordinates(1, 4), []Shot{destroyerHit}, "owner"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res, err := ResolveShot(ShotInput{
				GridSize:      10,
				Rule:          test.rule,
				ShooterID:     "owner",
				DefenderID:    "friend",
				Target:        test.target,
				DefenderShips: ships,
				ShotsAgainst:  test.previous,
			})
			if err != nil {
				t.Fatal(err)
			}
			if res.NextTurn != test.wantNext {
				t.Fatalf("next turn: want %s, got %s", test.wantNext, res.NextTurn)
			}
		})
	}
}

func TestResolveShotRejects(t *testing.T) {
	ships, _ := NewFleet(rowFleet(), DefaultManifest(), 10)
	previous := []Shot{{ShooterID: "owner", TargetID: "friend", X: 7, Y: 7}}

	tests := []struct {
		name   string
		target Coordinates
		kind   cerr.Kind
		reason string
	}{
		{"x too large", NewCoordinates(10, 0), cerr.KindValidation, cerr.ReasonOutOfBounds},
		{"negative y", NewCoordinates(0, -1), cerr.KindValidation, cerr.ReasonOutOfBounds},
		{"repeat miss", NewCoordinates(7, 7), cerr.KindIllegalAction, cerr.ReasonDuplicateShot},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ResolveShot(ShotInput{
				GridSize:      10,
				ShooterID:     "owner",
				DefenderID:    "friend",
				Target:        test.target,
				DefenderShips: ships,
				ShotsAgainst:  previous,
			})
			if cerr.KindOf(err) != test.kind || cerr.ReasonOf(err) != test.reason {
				t.Fatalf("want %s/%s, got %v", test.kind, test.reason, err)
			}
		})
	}
}

func TestResolveShotIsDeterministic(t *testing.T) {
	ships, _ := NewFleet(rowFleet(), DefaultManifest(), 10)
	in := ShotInput{
		GridSize:      10,
		ShooterID:     "owner",
		DefenderID:    "friend",
		Target:        NewCoordinates(2, 2),
		DefenderShips: ships,
	}

	first, err := ResolveShot(in)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, _ := ResolveShot(in)
		if again.Hit != first.Hit || again.Sunk != first.Sunk || again.NextTurn != first.NextTurn || again.ShipID != first.ShipID {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestResolveShotWinsOnLastShip(t *testing.T) {
	ships, _ := NewFleet(rowFleet(), DefaultManifest(), 10)
	for i := range ships[:4] {
		ships[i].Sunk = true
	}

	res, err := ResolveShot(ShotInput{
		GridSize:      10,
		ShooterID:     "owner",
		DefenderID:    "friend",
		Target:        NewCoordinates(1, 4),
		DefenderShips: ships,
		ShotsAgainst:  []Shot{{ShooterID: "owner", TargetID: "friend", X: 0, Y: 4, Hit: true}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.GameOver || res.Winner != "owner" {
		t.Fatalf("want game over won by owner, got %+v", res)
	}
	if res.NextTurn != "" {
		t.Fatalf("finished game should have no next turn, got %q", res.NextTurn)
	}
}

func TestParseTurnRule(t *testing.T) {
	if r, ok := ParseTurnRule(""); !ok || r != TurnRuleSinkPassesTurn {
		t.Fatalf("empty rule should default, got %q", r)
	}
	if _, ok := ParseTurnRule("anything"); ok {
		t.Fatal("unknown rule should not parse")
	}
}

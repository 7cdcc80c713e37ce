package battleship

import (
	"time"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
)

type Shot struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ShooterID string    `json:"shooterId"`
	TargetID  string    `json:"targetId"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Hit       bool      `json:"hit"`
}

func (s Shot) Coordinates() Coordinates {
	return NewCoordinates(s.X, s.Y)
}

// LastShot is the most recently resolved shot, annotated with whether it sank a ship.
type LastShot struct {
	Shot
	Sunk bool `json:"sunk"`
}

// TurnRule decides who fires next after a shot that does not end the game.
type TurnRule string

const (
	// Miss or sinking hit passes the turn; a hit that does not sink keeps it.
	TurnRuleSinkPassesTurn TurnRule = "sink_passes_turn"

	// Any hit keeps the turn, including one that sinks.
	TurnRuleHitKeepsTurn TurnRule = "hit_keeps_turn"
)

func ParseTurnRule(s string) (TurnRule, bool) {
	switch TurnRule(s) {
	case "", TurnRuleSinkPassesTurn:
		return TurnRuleSinkPassesTurn, true
	case TurnRuleHitKeepsTurn:
		return TurnRuleHitKeepsTurn, true
	}
	return "", false
}

func (r TurnRule) shooterKeepsTurn(hit, sunk bool) bool {
	if !hit {
		return false
	}
	if r == TurnRuleHitKeepsTurn {
		return true
	}
	return !sunk
}

type ShotInput struct {
	GridSize      int
	Rule          TurnRule
	ShooterID     string
	DefenderID    string
	Target        Coordinates
	DefenderShips []Ship

	// Shots whose target is the defender.
	ShotsAgainst []Shot
}

type ShotResult struct {
	Hit  bool
	Sunk bool

	// Empty on a miss.
	ShipID string

	// Defender fleet with sunk flags updated. The input slice is not modified.
	DefenderShips []Ship

	// Empty when GameOver is true.
	NextTurn string
	GameOver bool
	Winner   string
}

// ResolveShot is deterministic: the same input always gives the same result.
func ResolveShot(in ShotInput) (ShotResult, error) {
	if !InBounds(in.Target, in.GridSize) {
		return ShotResult{}, cerr.ErrXorYOutOfGridBound(in.Target.X, in.Target.Y)
	}

	for _, shot := range in.ShotsAgainst {
		if shot.ShooterID == in.ShooterID && shot.TargetID == in.DefenderID && shot.Coordinates() == in.Target {
			return ShotResult{}, cerr.ErrAttackPositionAlreadyFilled(in.Target.X, in.Target.Y)
		}
	}

	res := ShotResult{DefenderShips: cloneShips(in.DefenderShips)}

	hitIdx := -1
	for i, ship := range res.DefenderShips {
		if ship.Contains(in.Target) {
			hitIdx = i
			break
		}
	}

	if hitIdx >= 0 {
		ship := &res.DefenderShips[hitIdx]
		res.Hit = true
		res.ShipID = ship.ID

		hits := 1
		for _, shot := range in.ShotsAgainst {
			if shot.Hit && shot.TargetID == in.DefenderID && ship.Contains(shot.Coordinates()) {
				hits++
			}
		}
		if hits >= ship.Length && !ship.Sunk {
			ship.Sunk = true
			res.Sunk = true
		}
	}

	if FleetSunk(res.DefenderShips) {
		res.GameOver = true
		res.Winner = in.ShooterID
		return res, nil
	}

	if in.Rule.shooterKeepsTurn(res.Hit, res.Sunk) {
		res.NextTurn = in.ShooterID
	} else {
		res.NextTurn = in.DefenderID
	}
	return res, nil
}

func FleetSunk(ships []Ship) bool {
	if len(ships) == 0 {
		return false
	}
	for _, ship := range ships {
		if !ship.Sunk {
			return false
		}
	}
	return true
}

func SunkCount(ships []Ship) int {
	n := 0
	for _, ship := range ships {
		if ship.Sunk {
			n++
		}
	}
	return n
}

package battleship

import cerr "github.com/saeidalz13/battleship-session/internal/error"

// Sides are relative to the viewer.
const (
	SidePlayer   = "player"
	SideOpponent = "opponent"
)

const (
	GameStatusInProgress = "in_progress"
	GameStatusOver       = "over"
)

type ShotView struct {
	X   int  `json:"x"`
	Y   int  `json:"y"`
	Hit bool `json:"hit"`
}

type LastShotView struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Hit     bool   `json:"hit"`
	Sunk    bool   `json:"sunk"`
	Shooter string `json:"shooter"`
}

type BoardView struct {
	Boats []Ship     `json:"boats"`
	Shots []ShotView `json:"shots"`
}

// GameState is what one player is allowed to see of a running or finished game.
//
// Player holds the viewer's fleet and the shots the viewer fired.
// Opponent holds only the opponent's sunk ships and the opponent's shots
// against the viewer.
type GameState struct {
	Status   string        `json:"status"`
	Turn     string        `json:"turn,omitempty"`
	Winner   string        `json:"winner,omitempty"`
	LastShot *LastShotView `json:"lastShot"`
	Player   BoardView     `json:"player"`
	Opponent BoardView     `json:"opponent"`
}

type SessionStatus struct {
	Status Status `json:"status"`
}

type OpponentInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsOwner  bool   `json:"isOwner"`
}

func NewOpponentInfo(p Player) OpponentInfo {
	return OpponentInfo{ID: p.ID, Username: p.Username, IsOwner: p.IsOwner}
}

// LobbyState is the viewer's state before a game has started.
type LobbyState struct {
	Session       SessionStatus `json:"session"`
	Opponent      *OpponentInfo `json:"opponent"`
	Boats         []Ship        `json:"boats"`
	OpponentReady bool          `json:"opponentReady"`
}

func relativeSide(viewerID, playerID string) string {
	if viewerID == playerID {
		return SidePlayer
	}
	return SideOpponent
}

func shotViews(shots []Shot) []ShotView {
	views := make([]ShotView, len(shots))
	for i, shot := range shots {
		views[i] = ShotView{X: shot.X, Y: shot.Y, Hit: shot.Hit}
	}
	return views
}

func sunkShips(ships []Ship) []Ship {
	sunk := make([]Ship, 0, len(ships))
	for _, ship := range ships {
		if ship.Sunk {
			sunk = append(sunk, ship)
		}
	}
	return sunk
}

// Project builds the viewer's GameState. It is only defined once the game has
// started.
func Project(s Session, viewerID string) (GameState, error) {
	if !s.HasPlayer(viewerID) {
		return GameState{}, cerr.ErrPlayerNotExist(viewerID)
	}
	if s.Status != StatusPlaying && s.Status != StatusGameOver {
		return GameState{}, cerr.ErrGameNotInProgress(string(s.Status))
	}

	opponent, _ := s.Opponent(viewerID)

	state := GameState{
		Player: BoardView{
			Boats: cloneShips(s.Ships[viewerID]),
			Shots: shotViews(s.ShotsBy(viewerID)),
		},
		Opponent: BoardView{
			Boats: sunkShips(s.Ships[opponent.ID]),
			Shots: shotViews(s.ShotsAgainst(viewerID)),
		},
	}
	if state.Player.Boats == nil {
		state.Player.Boats = []Ship{}
	}

	if s.Status == StatusGameOver {
		state.Status = GameStatusOver
		state.Winner = relativeSide(viewerID, s.Winner)
	} else {
		state.Status = GameStatusInProgress
		state.Turn = relativeSide(viewerID, s.CurrentTurn)
	}

	if s.LastShot != nil {
		state.LastShot = &LastShotView{
			X:       s.LastShot.X,
			Y:       s.LastShot.Y,
			Hit:     s.LastShot.Hit,
			Sunk:    s.LastShot.Sunk,
			Shooter: relativeSide(viewerID, s.LastShot.ShooterID),
		}
	}

	return state, nil
}

func ProjectLobby(s Session, viewerID string) (LobbyState, error) {
	if !s.HasPlayer(viewerID) {
		return LobbyState{}, cerr.ErrPlayerNotExist(viewerID)
	}

	state := LobbyState{
		Session: SessionStatus{Status: s.Status},
		Boats:   cloneShips(s.Ships[viewerID]),
	}
	if state.Boats == nil {
		state.Boats = []Ship{}
	}
	if opponent, ok := s.Opponent(viewerID); ok {
		info := NewOpponentInfo(opponent)
		state.Opponent = &info
		state.OpponentReady = s.FleetPlaced(opponent.ID)
	}
	return state, nil
}

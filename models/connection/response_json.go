package connection

import (
	mb "github.com/saeidalz13/battleship-session/models/battleship"
)

type RespOpponentJoined struct {
	Session  mb.SessionStatus `json:"session"`
	Opponent mb.OpponentInfo  `json:"opponent"`
}

type RespSessionStatus struct {
	Session mb.SessionStatus `json:"session"`
}

func NewRespSessionStatus(status mb.Status) RespSessionStatus {
	return RespSessionStatus{Session: mb.SessionStatus{Status: status}}
}

// RespSession is what the HTTP surface returns about the caller's session.
type RespSession struct {
	ID       string           `json:"id"`
	Slug     string           `json:"slug"`
	GridSize int              `json:"gridSize"`
	Fleet    map[int]int      `json:"fleet"`
	Status   mb.Status        `json:"status"`
	Player   mb.Player        `json:"player"`
	Opponent *mb.OpponentInfo `json:"opponent"`
}

func NewRespSession(s mb.Session, playerId string) RespSession {
	player, _ := s.Player(playerId)
	resp := RespSession{
		ID:       s.ID,
		Slug:     s.Slug,
		GridSize: s.Rules.GridSize,
		Fleet:    s.Rules.Manifest,
		Status:   s.Status,
		Player:   player,
	}
	if opponent, ok := s.Opponent(playerId); ok {
		info := mb.NewOpponentInfo(opponent)
		resp.Opponent = &info
	}
	return resp
}

type RespErr struct {
	Kind         string `json:"kind,omitempty"`
	Reason       string `json:"reason,omitempty"`
	ErrorDetails string `json:"error_details,omitempty"`
	Message      string `json:"message,omitempty"`
}

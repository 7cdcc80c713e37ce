package api

import (
	"context"

	"github.com/gorilla/websocket"

	mb "github.com/saeidalz13/battleship-session/models/battleship"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

// stateMessage is what a player needs to redraw from scratch: the game view
// once a game started, the lobby view before.
func stateMessage(s mb.Session, playerId string) (any, error) {
	if s.Status == mb.StatusPlaying || s.Status == mb.StatusGameOver {
		state, err := mb.Project(s, playerId)
		if err != nil {
			return nil, err
		}
		msg := mc.NewMessage[mb.GameState](mc.TypeGameUpdate)
		msg.AddPayload(state)
		return msg, nil
	}

	lobby, err := mb.ProjectLobby(s, playerId)
	if err != nil {
		return nil, err
	}
	msg := mc.NewMessage[mb.LobbyState](mc.TypeSessionState)
	msg.AddPayload(lobby)
	return msg, nil
}

// Push failures are transport errors. They are logged and never undo the
// committed transition; the player catches up on reconnect.
func (s *Server) broadcast(ctx context.Context, sessionId string, pushes ...mc.Push) {
	if err := s.Conns.Broadcast(ctx, sessionId, pushes...); err != nil {
		s.logger.Warn(ctx, "some pushes were not delivered", "session_id", sessionId, "error", err.Error())
	}
}

func (s *Server) afterState(ctx context.Context) mb.AfterFunc {
	return func(_, next mb.Session) {
		pushes := make([]mc.Push, 0, 2)
		for _, playerId := range next.PlayerIDs() {
			msg, err := stateMessage(next, playerId)
			if err != nil {
				s.logger.Error(ctx, "failed to project session", err, "session_id", next.ID, "player_id", playerId)
				continue
			}
			pushes = append(pushes, mc.NewPush(playerId, msg))
		}
		s.broadcast(ctx, next.ID, pushes...)
	}
}

func (s *Server) afterNewGame(ctx context.Context) mb.AfterFunc {
	return func(_, next mb.Session) {
		msg := mc.NewMessage[mc.RespSessionStatus](mc.TypeNewGameStarted)
		msg.AddPayload(mc.NewRespSessionStatus(next.Status))

		pushes := make([]mc.Push, 0, 2)
		for _, playerId := range next.PlayerIDs() {
			pushes = append(pushes, mc.NewPush(playerId, msg))
		}
		s.broadcast(ctx, next.ID, pushes...)
	}
}

// Each side learns who the other one is.
func (s *Server) afterJoin(ctx context.Context) mb.AfterFunc {
	return func(_, next mb.Session) {
		pushes := make([]mc.Push, 0, 2)
		for _, playerId := range next.PlayerIDs() {
			opponent, ok := next.Opponent(playerId)
			if !ok {
				continue
			}
			msg := mc.NewMessage[mc.RespOpponentJoined](mc.TypeOpponentJoined)
			msg.AddPayload(mc.RespOpponentJoined{
				Session:  mb.SessionStatus{Status: next.Status},
				Opponent: mb.NewOpponentInfo(opponent),
			})
			pushes = append(pushes, mc.NewPush(playerId, msg))
		}
		s.broadcast(ctx, next.ID, pushes...)
	}
}

// leave removes the player from the session and tells whoever is left.
func (s *Server) leave(ctx context.Context, sessionId, playerId string) error {
	return s.Sessions.Leave(ctx, sessionId, playerId, s.afterLeave(ctx, sessionId, playerId))
}

func (s *Server) afterLeave(ctx context.Context, sessionId, playerId string) mb.LeaveFunc {
	return func(_, next mb.Session, discarded bool) {
		if discarded {
			s.Conns.CloseSession(sessionId, websocket.CloseNormalClosure, "session closed")
			return
		}
		s.Conns.Drop(sessionId, playerId, websocket.CloseNormalClosure, "left the session")

		msg := mc.NewMessage[mc.RespSessionStatus](mc.TypeOpponentDisconnected)
		msg.AddPayload(mc.NewRespSessionStatus(next.Status))

		pushes := make([]mc.Push, 0, 1)
		for _, remaining := range next.PlayerIDs() {
			pushes = append(pushes, mc.NewPush(remaining, msg))
		}
		s.broadcast(ctx, sessionId, pushes...)
	}
}

// OnGraceExpired treats a player that never came back as having left. A
// player registers under the session lock, so checking for a live peer under
// the same lock catches a reconnect that raced the timer.
func (s *Server) OnGraceExpired(sessionId, playerId string) {
	ctx := context.Background()
	offline := func(mb.Session) bool {
		_, live := s.Conns.Peer(sessionId, playerId)
		return !live
	}

	left, err := s.Sessions.LeaveIf(ctx, sessionId, playerId, offline, s.afterLeave(ctx, sessionId, playerId))
	switch {
	case err != nil:
		s.logger.Warn(ctx, "leave after grace period failed", "session_id", sessionId, "player_id", playerId, "error", err.Error())
	case !left:
		s.logger.Info(ctx, "player reconnected before the grace period ran out", "session_id", sessionId, "player_id", playerId)
	}
}

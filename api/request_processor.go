package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
	"github.com/saeidalz13/battleship-session/internal/logging"
	mb "github.com/saeidalz13/battleship-session/models/battleship"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

// RequestProcessor serves the websocket of an already identified player.
type RequestProcessor struct {
	server *Server
}

func NewRequestProcessor(server *Server) RequestProcessor {
	return RequestProcessor{server: server}
}

func (rp RequestProcessor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := rp.server

	// Rejected before the upgrade so clients can tell "gone" from "offline".
	id, err := s.readIdentity(r)
	if err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	session, err := s.Sessions.Get(r.Context(), id.SessionID)
	if err != nil {
		http.Error(w, "unknown session", httpStatus(err))
		return
	}
	if !session.HasPlayer(id.PlayerID) {
		http.Error(w, "unknown player", http.StatusNotFound)
		return
	}

	// use Upgrade method to make a websocket connection
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered the request
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}

	ctx, cancel := context.WithCancel(logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID()))
	defer cancel()

	peer, err := rp.attach(ctx, id, conn)
	if err != nil {
		s.logger.Warn(ctx, "could not attach peer", "session_id", id.SessionID, "player_id", id.PlayerID, "error", err.Error())
		if cerr.IsKind(err, cerr.KindCorrupt) {
			s.Conns.CloseSession(id.SessionID, websocket.CloseInternalServerErr, "session aborted")
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode(err), ""), deadline())
		_ = conn.Close()
		return
	}

	s.logger.Info(ctx, "peer connected", "session_id", id.SessionID, "player_id", id.PlayerID, "remote_addr", conn.RemoteAddr().String())
	go peer.KeepAlive(ctx)
	rp.processSessionRequests(ctx, peer)
}

// attach registers the peer and replays the current state under the session
// lock, so no transition lands between the two and the replay is never stale.
func (rp RequestProcessor) attach(ctx context.Context, id Identity, conn *websocket.Conn) (*mc.Peer, error) {
	var peer *mc.Peer
	err := rp.server.Sessions.View(ctx, id.SessionID, func(s mb.Session) error {
		if !s.HasPlayer(id.PlayerID) {
			return cerr.ErrPlayerNotExist(id.PlayerID)
		}
		msg, err := stateMessage(s, id.PlayerID)
		if err != nil {
			return err
		}
		peer = rp.server.Conns.Register(id.SessionID, id.PlayerID, conn)
		// a failed replay removes the peer and ends its read loop
		_ = rp.server.Conns.Send(ctx, id.SessionID, id.PlayerID, msg)
		return nil
	})
	return peer, err
}

func (rp RequestProcessor) processSessionRequests(ctx context.Context, peer *mc.Peer) {
	s := rp.server

	var readErr error
	defer func() {
		if s.Conns.Unregister(peer, readErr) {
			s.logger.Info(ctx, "peer disconnected", "session_id", peer.SessionId(), "player_id", peer.PlayerId(), "connected_for", peer.ConnectedFor().String())
		}
	}()

sessionLoop:
	for {
		payload, err := peer.ReadMessage()
		if err != nil {
			readErr = err
			s.logger.Debug(ctx, "read loop finished", "session_id", peer.SessionId(), "player_id", peer.PlayerId(), "action", mc.ActionOf(err).String(), "reason", err.Error())
			break sessionLoop
		}

		var signal mc.Signal
		if err := json.Unmarshal(payload, &signal); err != nil {
			rp.ack(ctx, peer, mc.TypeInvalidSignal, cerr.ErrMalformedPayload(err))
			continue sessionLoop
		}
		if !mc.IsClientType(signal.Type) {
			rp.ack(ctx, peer, mc.TypeInvalidSignal, cerr.ErrMalformedPayload(fmt.Errorf("unknown message type %q", signal.Type)))
			continue sessionLoop
		}
		if !peer.Allow() {
			rp.ack(ctx, peer, signal.Type, cerr.ErrRateLimited())
			continue sessionLoop
		}

		if err := rp.dispatch(ctx, peer, signal.Type, payload); err != nil {
			if cerr.IsKind(err, cerr.KindCorrupt) {
				s.logger.Error(ctx, "session is corrupt, closing its peers", err, "session_id", peer.SessionId())
				rp.ack(ctx, peer, signal.Type, err)
				s.Conns.CloseSession(peer.SessionId(), websocket.CloseInternalServerErr, "session aborted")
				break sessionLoop
			}
			rp.ack(ctx, peer, signal.Type, err)
		}
	}
}

// dispatch runs one message. A panic in a handler only fails that message.
func (rp RequestProcessor) dispatch(ctx context.Context, peer *mc.Peer, msgType string, payload []byte) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("handler for %s panicked: %v", msgType, recovered)
			rp.server.logger.Error(ctx, "handler panic", err, "session_id", peer.SessionId(), "player_id", peer.PlayerId())
		}
	}()

	req := NewRequest(ctx, rp.server, peer, payload)
	switch msgType {
	case mc.TypePlaceBoats:
		return req.HandlePlaceBoats()
	case mc.TypeFireShot:
		return req.HandleFireShot()
	case mc.TypeRequestNewGame:
		return req.HandleRequestNewGame()
	}
	return cerr.ErrMalformedPayload(fmt.Errorf("unhandled message type %q", msgType))
}

func (rp RequestProcessor) ack(ctx context.Context, peer *mc.Peer, msgType string, err error) {
	if cerr.KindOf(err) == cerr.KindUnknown {
		rp.server.logger.Error(ctx, "request failed", err, "session_id", peer.SessionId(), "player_id", peer.PlayerId(), "type", msgType)
	} else {
		rp.server.logger.Debug(ctx, "request rejected", "session_id", peer.SessionId(), "player_id", peer.PlayerId(), "type", msgType, "reason", cerr.ReasonOf(err))
	}
	if wErr := peer.WriteJSON(mc.NewErrorAck(msgType, err)); wErr != nil {
		rp.server.logger.Warn(ctx, "failed to ack request", "session_id", peer.SessionId(), "player_id", peer.PlayerId(), "error", wErr.Error())
	}
}

func closeCode(err error) int {
	if cerr.IsKind(err, cerr.KindNotFound) {
		return websocket.ClosePolicyViolation
	}
	return websocket.CloseInternalServerErr
}

func deadline() time.Time {
	return time.Now().Add(time.Second)
}

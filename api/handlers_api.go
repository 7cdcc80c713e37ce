package api

import (
	"context"
	"encoding/json"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

type RequestHandler interface {
	HandlePlaceBoats() error
	HandleFireShot() error
	HandleRequestNewGame() error
}

// Every incoming valid message becomes a Request for the sender's session.
// Successful handlers push to both players from inside the session lock;
// a returned error is only acknowledged to the sender.
type Request struct {
	ctx       context.Context
	server    *Server
	sessionId string
	playerId  string
	payload   []byte
}

var _ RequestHandler = (*Request)(nil)

func NewRequest(ctx context.Context, server *Server, peer *mc.Peer, payload []byte) *Request {
	return &Request{
		ctx:       ctx,
		server:    server,
		sessionId: peer.SessionId(),
		playerId:  peer.PlayerId(),
		payload:   payload,
	}
}

func decodePayload[T any](payload []byte) (T, error) {
	var msg mc.Message[T]
	if err := json.Unmarshal(payload, &msg); err != nil {
		var zero T
		return zero, cerr.ErrMalformedPayload(err)
	}
	return msg.Payload, nil
}

func (r *Request) HandlePlaceBoats() error {
	req, err := decodePayload[mc.ReqPlaceBoats](r.payload)
	if err != nil {
		return err
	}
	_, err = r.server.Sessions.PlaceBoats(r.ctx, r.sessionId, r.playerId, req.Boats, r.server.afterState(r.ctx))
	return err
}

func (r *Request) HandleFireShot() error {
	req, err := decodePayload[mc.ReqFireShot](r.payload)
	if err != nil {
		return err
	}
	_, _, err = r.server.Sessions.FireShot(r.ctx, r.sessionId, r.playerId, req.Coordinates(), r.server.afterState(r.ctx))
	return err
}

func (r *Request) HandleRequestNewGame() error {
	if _, err := decodePayload[mc.ReqRequestNewGame](r.payload); err != nil {
		return err
	}
	_, err := r.server.Sessions.RequestRematch(r.ctx, r.sessionId, r.playerId, r.server.afterNewGame(r.ctx))
	return err
}

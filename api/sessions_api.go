package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
	"github.com/saeidalz13/battleship-session/internal/logging"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

const maxBodyBytes = 4096

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return cerr.ErrMalformedPayload(err)
	}
	return nil
}

func cleanUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > cerr.MaxUsernameLength {
		return "", cerr.ErrInvalidUsername(username)
	}
	return username, nil
}

func requestCtx(r *http.Request) *http.Request {
	ctx := logging.WithCorrelationID(r.Context(), logging.GenerateCorrelationID())
	return r.WithContext(ctx)
}

// HandleCreateSession opens a session owned by the caller.
func (s *Server) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	r = requestCtx(r)

	var req mc.ReqCreateSession
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	username, err := cleanUsername(req.Username)
	if err != nil {
		writeErr(w, err)
		return
	}

	session, owner, err := s.Sessions.Create(r.Context(), username)
	if err != nil {
		s.logger.Error(r.Context(), "failed to create session", err)
		writeErr(w, err)
		return
	}
	if err := s.setIdentity(w, Identity{SessionID: session.ID, PlayerID: owner.ID}); err != nil {
		s.logger.Error(r.Context(), "failed to sign identity", err)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mc.NewRespSession(session, owner.ID))
}

// HandleJoinSession seats the caller as the friend of the slug's session.
func (s *Server) HandleJoinSession(w http.ResponseWriter, r *http.Request) {
	r = requestCtx(r)

	var req mc.ReqJoinSession
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	username, err := cleanUsername(req.Username)
	if err != nil {
		writeErr(w, err)
		return
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		writeErr(w, cerr.ErrSlugNotFound(slug))
		return
	}

	session, friend, err := s.Sessions.Join(r.Context(), slug, username, s.afterJoin(r.Context()))
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.setIdentity(w, Identity{SessionID: session.ID, PlayerID: friend.ID}); err != nil {
		s.logger.Error(r.Context(), "failed to sign identity", err)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mc.NewRespSession(session, friend.ID))
}

// HandleGetSession answers null when the caller has no live session.
func (s *Server) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	r = requestCtx(r)

	id, err := s.readIdentity(r)
	if err != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	session, err := s.Sessions.Get(r.Context(), id.SessionID)
	if cerr.IsKind(err, cerr.KindNotFound) || (err == nil && !session.HasPlayer(id.PlayerID)) {
		s.clearIdentity(w)
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mc.NewRespSession(session, id.PlayerID))
}

// HandleLeaveSession takes the caller out of their session.
func (s *Server) HandleLeaveSession(w http.ResponseWriter, r *http.Request) {
	r = requestCtx(r)

	id, err := s.readIdentity(r)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	err = s.leave(r.Context(), id.SessionID, id.PlayerID)
	if err != nil && !cerr.IsKind(err, cerr.KindNotFound) {
		writeErr(w, err)
		return
	}
	s.clearIdentity(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

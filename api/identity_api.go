package api

import (
	"errors"
	"net/http"
)

const identityCookieName = "battleship_identity"

var ErrNoIdentity = errors.New("no identity cookie")

// Identity ties a browser to one player of one session.
type Identity struct {
	SessionID string `json:"sid"`
	PlayerID  string `json:"pid"`
}

func (s *Server) setIdentity(w http.ResponseWriter, id Identity) error {
	encoded, err := s.cookies.Encode(identityCookieName, id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.stage == StageProd,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearIdentity(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.stage == StageProd,
		SameSite: http.SameSiteLaxMode,
	})
}

// readIdentity fails for a missing cookie as well as for one that was not
// signed with this server's key.
func (s *Server) readIdentity(r *http.Request) (Identity, error) {
	cookie, err := r.Cookie(identityCookieName)
	if err != nil {
		return Identity{}, ErrNoIdentity
	}

	var id Identity
	if err := s.cookies.Decode(identityCookieName, cookie.Value, &id); err != nil {
		return Identity{}, err
	}
	if id.SessionID == "" || id.PlayerID == "" {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

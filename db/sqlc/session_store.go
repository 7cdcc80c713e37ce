package sqlc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sqlc-dev/pqtype"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
	mb "github.com/saeidalz13/battleship-session/models/battleship"
)

// SessionStore keeps one row per session in postgres. Fleets, shots and
// players live in JSON columns.
type SessionStore struct {
	queries Querier
}

var _ mb.Store = (*SessionStore)(nil)

func NewSessionStore(queries Querier) *SessionStore {
	return &SessionStore{queries: queries}
}

func (ss *SessionStore) Get(ctx context.Context, sessionId string) (mb.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, QuerierCtxTimeout)
	defer cancel()

	row, err := ss.queries.GetSession(ctx, sessionId)
	if errors.Is(err, sql.ErrNoRows) {
		return mb.Session{}, cerr.ErrSessionNotFound(sessionId)
	}
	if err != nil {
		return mb.Session{}, fmt.Errorf("get session %s: %w", sessionId, err)
	}
	return sessionFromRow(row)
}

func (ss *SessionStore) GetBySlug(ctx context.Context, slug string) (mb.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, QuerierCtxTimeout)
	defer cancel()

	row, err := ss.queries.GetSessionBySlug(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return mb.Session{}, cerr.ErrSlugNotFound(slug)
	}
	if err != nil {
		return mb.Session{}, fmt.Errorf("get session by slug %s: %w", slug, err)
	}
	return sessionFromRow(row)
}

func (ss *SessionStore) Save(ctx context.Context, session mb.Session) error {
	params, err := paramsFromSession(session)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, QuerierCtxTimeout)
	defer cancel()

	if err := ss.queries.UpsertSession(ctx, params); err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

func (ss *SessionStore) Delete(ctx context.Context, sessionId string) error {
	ctx, cancel := context.WithTimeout(ctx, QuerierCtxTimeout)
	defer cancel()

	n, err := ss.queries.DeleteSession(ctx, sessionId)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionId, err)
	}
	if n == 0 {
		return cerr.ErrSessionNotFound(sessionId)
	}
	return nil
}

// ExpiredIDs lists sessions last updated before the cutoff. Deleting them is
// left to the session manager.
func (ss *SessionStore) ExpiredIDs(ctx context.Context, before time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, QuerierCtxTimeout)
	defer cancel()
	return ss.queries.ListSessionsUpdatedBefore(ctx, before)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(v any, present bool) (pqtype.NullRawMessage, error) {
	if !present {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

func paramsFromSession(s mb.Session) (UpsertSessionParams, error) {
	params := UpsertSessionParams{
		ID:          s.ID,
		Slug:        s.Slug,
		GridSize:    int32(s.Rules.GridSize),
		TurnRule:    string(s.Rules.TurnRule),
		Status:      string(s.Status),
		CurrentTurn: nullString(s.CurrentTurn),
		Winner:      nullString(s.Winner),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}

	ships := s.Ships
	if ships == nil {
		ships = map[string][]mb.Ship{}
	}
	shots := s.Shots
	if shots == nil {
		shots = []mb.Shot{}
	}

	var err error
	if params.Fleet, err = json.Marshal(s.Rules.Manifest); err != nil {
		return UpsertSessionParams{}, fmt.Errorf("encode fleet: %w", err)
	}
	if params.Owner, err = json.Marshal(s.Owner); err != nil {
		return UpsertSessionParams{}, fmt.Errorf("encode owner: %w", err)
	}
	if params.Ships, err = json.Marshal(ships); err != nil {
		return UpsertSessionParams{}, fmt.Errorf("encode ships: %w", err)
	}
	if params.Shots, err = json.Marshal(shots); err != nil {
		return UpsertSessionParams{}, fmt.Errorf("encode shots: %w", err)
	}
	if params.Friend, err = nullJSON(s.Friend, s.Friend != nil); err != nil {
		return UpsertSessionParams{}, fmt.Errorf("encode friend: %w", err)
	}
	if params.LastShot, err = nullJSON(s.LastShot, s.LastShot != nil); err != nil {
		return UpsertSessionParams{}, fmt.Errorf("encode last shot: %w", err)
	}
	return params, nil
}

// A row that cannot be decoded is reported as a corrupt session.
func sessionFromRow(row Session) (mb.Session, error) {
	s := mb.Session{
		ID:   row.ID,
		Slug: row.Slug,
		Rules: mb.Rules{
			GridSize: int(row.GridSize),
			TurnRule: mb.TurnRule(row.TurnRule),
		},
		Status:      mb.Status(row.Status),
		CurrentTurn: row.CurrentTurn.String,
		Winner:      row.Winner.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}

	corrupt := func(column string, err error) error {
		return cerr.ErrCorruptSession(row.ID, fmt.Sprintf("decode %s: %v", column, err))
	}

	if err := json.Unmarshal(row.Fleet, &s.Rules.Manifest); err != nil {
		return mb.Session{}, corrupt("fleet", err)
	}
	if err := json.Unmarshal(row.Owner, &s.Owner); err != nil {
		return mb.Session{}, corrupt("owner", err)
	}
	if err := json.Unmarshal(row.Ships, &s.Ships); err != nil {
		return mb.Session{}, corrupt("ships", err)
	}
	if err := json.Unmarshal(row.Shots, &s.Shots); err != nil {
		return mb.Session{}, corrupt("shots", err)
	}
	if s.Ships == nil {
		s.Ships = make(map[string][]mb.Ship, 2)
	}
	if len(s.Shots) == 0 {
		s.Shots = nil
	}

	if row.Friend.Valid {
		var friend mb.Player
		if err := json.Unmarshal(row.Friend.RawMessage, &friend); err != nil {
			return mb.Session{}, corrupt("friend", err)
		}
		s.Friend = &friend
	}
	if row.LastShot.Valid {
		var last mb.LastShot
		if err := json.Unmarshal(row.LastShot.RawMessage, &last); err != nil {
			return mb.Session{}, corrupt("last_shot", err)
		}
		s.LastShot = &last
	}
	return s, nil
}

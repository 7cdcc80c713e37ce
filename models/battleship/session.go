package battleship

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	cerr "github.com/saeidalz13/battleship-session/internal/error"
)

type Status string

const (
	StatusWaitingForOpponent       Status = "waiting_for_opponent"
	StatusWaitingForBoatPlacements Status = "waiting_for_boat_placements"
	StatusReadyToStart             Status = "ready_to_start"
	StatusPlaying                  Status = "playing"
	StatusGameOver                 Status = "game_over"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaitingForOpponent, StatusWaitingForBoatPlacements, StatusReadyToStart, StatusPlaying, StatusGameOver:
		return true
	}
	return false
}

// Picker is the single source of randomness in a session: the first turn.
// *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsOwner  bool   `json:"isOwner"`
	Wins     int    `json:"wins"`
}

func NewPlayer(username string, isOwner bool) Player {
	return Player{
		ID:       uuid.NewString()[:10],
		Username: username,
		IsOwner:  isOwner,
	}
}

type Rules struct {
	GridSize int
	Manifest Manifest
	TurnRule TurnRule
}

func DefaultRules() Rules {
	return Rules{
		GridSize: GridSizeDefault,
		Manifest: DefaultManifest(),
		TurnRule: TurnRuleSinkPassesTurn,
	}
}

func (r Rules) Check() error {
	if r.GridSize < GridSizeMin || r.GridSize > GridSizeMax {
		return fmt.Errorf("grid size %d outside %d-%d", r.GridSize, GridSizeMin, GridSizeMax)
	}
	if err := r.Manifest.Check(); err != nil {
		return err
	}
	if !r.Manifest.Fits(r.GridSize) {
		return fmt.Errorf("fleet %s does not fit a %dx%d grid", r.Manifest, r.GridSize, r.GridSize)
	}
	if _, ok := ParseTurnRule(string(r.TurnRule)); !ok {
		return fmt.Errorf("unknown turn rule: %s", r.TurnRule)
	}
	return nil
}

// Session is an immutable snapshot of one game between an owner and a friend.
// Transition functions never modify their input; they return a new snapshot.
type Session struct {
	ID          string
	Slug        string
	Rules       Rules
	Status      Status
	Owner       Player
	Friend      *Player
	CurrentTurn string
	Winner      string
	Ships       map[string][]Ship
	Shots       []Shot
	LastShot    *LastShot
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewSession(id, slug string, owner Player, rules Rules, now time.Time) Session {
	owner.IsOwner = true
	rules.Manifest = rules.Manifest.clone()

	return Session{
		ID:        id,
		Slug:      slug,
		Rules:     rules,
		Status:    StatusWaitingForOpponent,
		Owner:     owner,
		Ships:     make(map[string][]Ship, 2),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s Session) Clone() Session {
	out := s
	out.Rules.Manifest = s.Rules.Manifest.clone()

	if s.Friend != nil {
		friend := *s.Friend
		out.Friend = &friend
	}

	out.Ships = make(map[string][]Ship, len(s.Ships))
	for id, ships := range s.Ships {
		out.Ships[id] = cloneShips(ships)
	}

	if s.Shots != nil {
		out.Shots = make([]Shot, len(s.Shots))
		copy(out.Shots, s.Shots)
	}

	if s.LastShot != nil {
		last := *s.LastShot
		out.LastShot = &last
	}
	return out
}

func (s Session) HasPlayer(playerID string) bool {
	if playerID == "" {
		return false
	}
	return s.Owner.ID == playerID || (s.Friend != nil && s.Friend.ID == playerID)
}

func (s Session) Player(playerID string) (Player, bool) {
	if s.Owner.ID == playerID {
		return s.Owner, true
	}
	if s.Friend != nil && s.Friend.ID == playerID {
		return *s.Friend, true
	}
	return Player{}, false
}

// Opponent returns the other member of the session, if any.
func (s Session) Opponent(playerID string) (Player, bool) {
	switch {
	case s.Owner.ID == playerID && s.Friend != nil:
		return *s.Friend, true
	case s.Friend != nil && s.Friend.ID == playerID:
		return s.Owner, true
	}
	return Player{}, false
}

// PlayerIDs returns the owner id followed by the friend id when present.
func (s Session) PlayerIDs() []string {
	ids := []string{s.Owner.ID}
	if s.Friend != nil {
		ids = append(ids, s.Friend.ID)
	}
	return ids
}

func (s Session) FleetPlaced(playerID string) bool {
	return len(s.Ships[playerID]) > 0
}

func (s Session) ShotsBy(playerID string) []Shot {
	shots := make([]Shot, 0, len(s.Shots)/2)
	for _, shot := range s.Shots {
		if shot.ShooterID == playerID {
			shots = append(shots, shot)
		}
	}
	return shots
}

func (s Session) ShotsAgainst(playerID string) []Shot {
	shots := make([]Shot, 0, len(s.Shots)/2)
	for _, shot := range s.Shots {
		if shot.TargetID == playerID {
			shots = append(shots, shot)
		}
	}
	return shots
}

func (s *Session) clearGame() {
	s.Ships = make(map[string][]Ship, 2)
	s.Shots = nil
	s.LastShot = nil
	s.CurrentTurn = ""
	s.Winner = ""
}

func (s *Session) addWin(playerID string) {
	if s.Owner.ID == playerID {
		s.Owner.Wins++
		return
	}
	if s.Friend != nil && s.Friend.ID == playerID {
		s.Friend.Wins++
	}
}

// Join seats the friend and moves the session to placement.
func Join(s Session, friend Player, now time.Time) (Session, error) {
	if s.Status != StatusWaitingForOpponent || s.Friend != nil {
		return s, cerr.ErrSessionFull(s.Slug)
	}
	if friend.ID == "" || friend.ID == s.Owner.ID {
		return s, cerr.ErrPlayerNotExist(friend.ID)
	}

	next := s.Clone()
	friend.IsOwner = false
	next.Friend = &friend
	next.Status = StatusWaitingForBoatPlacements
	next.UpdatedAt = now
	return next, nil
}

// PlaceBoats stores one player's fleet. Submissions are independent of each
// other; once both fleets are in, the session is ready to start.
func PlaceBoats(s Session, playerID string, placements []ShipPlacement, now time.Time) (Session, error) {
	if !s.HasPlayer(playerID) {
		return s, cerr.ErrPlayerNotExist(playerID)
	}
	if s.Status != StatusWaitingForBoatPlacements {
		return s, cerr.ErrInvalidStatus("place_boats", string(s.Status))
	}
	if s.FleetPlaced(playerID) {
		return s, cerr.ErrFleetAlreadyPlaced(playerID)
	}

	ships, err := NewFleet(placements, s.Rules.Manifest, s.Rules.GridSize)
	if err != nil {
		return s, err
	}

	next := s.Clone()
	next.Ships[playerID] = ships
	if next.Friend != nil && next.FleetPlaced(next.Owner.ID) && next.FleetPlaced(next.Friend.ID) {
		next.Status = StatusReadyToStart
	}
	next.UpdatedAt = now
	return next, nil
}

// Start picks the first turn uniformly at random between the two players.
func Start(s Session, picker Picker, now time.Time) (Session, error) {
	if s.Status != StatusReadyToStart {
		return s, cerr.ErrInvalidStatus("start", string(s.Status))
	}

	next := s.Clone()
	ids := next.PlayerIDs()
	next.CurrentTurn = ids[picker.Intn(len(ids))]
	next.Status = StatusPlaying
	next.UpdatedAt = now
	return next, nil
}

func FireShot(s Session, shooterID string, target Coordinates, shotID string, now time.Time) (Session, ShotResult, error) {
	if !s.HasPlayer(shooterID) {
		return s, ShotResult{}, cerr.ErrPlayerNotExist(shooterID)
	}
	if s.Status != StatusPlaying {
		return s, ShotResult{}, cerr.ErrGameNotInProgress(string(s.Status))
	}
	if s.CurrentTurn != shooterID {
		return s, ShotResult{}, cerr.ErrNotTurnForAttacker(shooterID)
	}

	defender, _ := s.Opponent(shooterID)
	res, err := ResolveShot(ShotInput{
		GridSize:      s.Rules.GridSize,
		Rule:          s.Rules.TurnRule,
		ShooterID:     shooterID,
		DefenderID:    defender.ID,
		Target:        target,
		DefenderShips: s.Ships[defender.ID],
		ShotsAgainst:  s.ShotsAgainst(defender.ID),
	})
	if err != nil {
		return s, ShotResult{}, err
	}

	shot := Shot{
		ID:        shotID,
		CreatedAt: now,
		ShooterID: shooterID,
		TargetID:  defender.ID,
		X:         target.X,
		Y:         target.Y,
		Hit:       res.Hit,
	}

	next := s.Clone()
	next.Ships[defender.ID] = res.DefenderShips
	next.Shots = append(next.Shots, shot)
	next.LastShot = &LastShot{Shot: shot, Sunk: res.Sunk}
	next.UpdatedAt = now

	if res.GameOver {
		next.Status = StatusGameOver
		next.Winner = res.Winner
		next.CurrentTurn = ""
		next.addWin(res.Winner)
		return next, res, nil
	}

	next.CurrentTurn = res.NextTurn
	return next, res, nil
}

// RequestRematch is only allowed to the owner of a finished game. Both
// players have to place their fleets again afterwards.
func RequestRematch(s Session, playerID string, now time.Time) (Session, error) {
	if !s.HasPlayer(playerID) {
		return s, cerr.ErrPlayerNotExist(playerID)
	}
	if s.Status != StatusGameOver {
		return s, cerr.ErrInvalidStatus("request_new_game", string(s.Status))
	}
	if s.Owner.ID != playerID {
		return s, cerr.ErrRematchNotOwner(playerID)
	}

	next := s.Clone()
	next.clearGame()
	next.Status = StatusWaitingForBoatPlacements
	next.UpdatedAt = now
	return next, nil
}

// Leave removes a player. When the owner leaves an unjoined session the
// session is discarded and discarded is true. When the owner leaves a joined
// one the friend becomes the owner.
func Leave(s Session, playerID string, now time.Time) (next Session, discarded bool, err error) {
	if !s.HasPlayer(playerID) {
		return s, false, cerr.ErrPlayerNotExist(playerID)
	}

	if s.Owner.ID == playerID && s.Friend == nil {
		return s, true, nil
	}

	next = s.Clone()
	if next.Owner.ID == playerID {
		next.Owner = *next.Friend
		next.Owner.IsOwner = true
	}
	next.Friend = nil
	next.clearGame()
	next.Status = StatusWaitingForOpponent
	next.UpdatedAt = now
	return next, false, nil
}

// Validate checks that the status agrees with the data. A failure means the
// stored record is corrupt.
func (s Session) Validate() error {
	corrupt := func(format string, args ...any) error {
		return cerr.ErrCorruptSession(s.ID, fmt.Sprintf(format, args...))
	}

	if s.ID == "" || s.Owner.ID == "" {
		return corrupt("missing session or owner id")
	}
	if !s.Status.Valid() {
		return corrupt("unknown status %q", s.Status)
	}
	if s.Friend != nil && s.Friend.ID == s.Owner.ID {
		return corrupt("owner and friend share id %s", s.Owner.ID)
	}

	for playerID, ships := range s.Ships {
		if !s.HasPlayer(playerID) {
			return corrupt("fleet stored for non member %s", playerID)
		}
		if len(ships) != s.Rules.Manifest.TotalShips() {
			return corrupt("fleet of %s has %d ships", playerID, len(ships))
		}
		if covered := len(OccupiedCells(ships)); covered != s.Rules.Manifest.TotalCells() {
			return corrupt("fleet of %s covers %d cells", playerID, covered)
		}
	}
	for _, shot := range s.Shots {
		if !s.HasPlayer(shot.ShooterID) || !s.HasPlayer(shot.TargetID) || shot.ShooterID == shot.TargetID {
			return corrupt("shot %s has invalid participants", shot.ID)
		}
	}

	bothPlaced := s.Friend != nil && s.FleetPlaced(s.Owner.ID) && s.FleetPlaced(s.Friend.ID)
	pregame := len(s.Shots) == 0 && s.CurrentTurn == "" && s.Winner == "" && s.LastShot == nil

	switch s.Status {
	case StatusWaitingForOpponent:
		if s.Friend != nil || len(s.Ships) != 0 || !pregame {
			return corrupt("%s with game data", s.Status)
		}

	case StatusWaitingForBoatPlacements:
		if s.Friend == nil || bothPlaced || !pregame {
			return corrupt("%s with friend=%t both placed=%t", s.Status, s.Friend != nil, bothPlaced)
		}

	case StatusReadyToStart:
		if !bothPlaced || !pregame {
			return corrupt("%s without both fleets", s.Status)
		}

	case StatusPlaying:
		if !bothPlaced || !s.HasPlayer(s.CurrentTurn) || s.Winner != "" {
			return corrupt("%s with turn=%q winner=%q", s.Status, s.CurrentTurn, s.Winner)
		}

	case StatusGameOver:
		if !bothPlaced || !s.HasPlayer(s.Winner) || s.CurrentTurn != "" {
			return corrupt("%s with turn=%q winner=%q", s.Status, s.CurrentTurn, s.Winner)
		}
	}

	return nil
}

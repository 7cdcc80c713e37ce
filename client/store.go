package client

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	mb "github.com/saeidalz13/battleship-session/models/battleship"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

type Stage string

const (
	StageLobby   Stage = "lobby"
	StagePlaying Stage = "playing"
	StageOver    Stage = "over"
)

// State is everything a UI needs to draw one player's screen. Lobby is set
// in StageLobby, Game in StagePlaying and StageOver.
type State struct {
	Stage    Stage
	Status   mb.Status
	Opponent *mb.OpponentInfo
	Lobby    *mb.LobbyState
	Game     *mb.GameState

	// Last rejection sent to this player. Cleared by the next state change.
	LastError *mc.RespErr
}

func lobbyState(status mb.Status, opponent *mb.OpponentInfo) *mb.LobbyState {
	return &mb.LobbyState{
		Session:  mb.SessionStatus{Status: status},
		Opponent: opponent,
		Boats:    []mb.Ship{},
	}
}

func decodeInto[T any](raw []byte) (mc.Message[T], error) {
	var msg mc.Message[T]
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("decode %T: %w", msg.Payload, err)
	}
	return msg, nil
}

// Reduce applies one server message to state. It does not mutate its input.
func Reduce(state State, raw []byte) (State, error) {
	var envelope mc.Message[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return state, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Error != nil {
		next := state
		next.LastError = envelope.Error
		return next, nil
	}

	switch envelope.Type {
	case mc.TypeSessionState:
		msg, err := decodeInto[mb.LobbyState](raw)
		if err != nil {
			return state, err
		}
		lobby := msg.Payload
		return State{
			Stage:    StageLobby,
			Status:   lobby.Session.Status,
			Opponent: lobby.Opponent,
			Lobby:    &lobby,
		}, nil

	case mc.TypeGameUpdate:
		msg, err := decodeInto[mb.GameState](raw)
		if err != nil {
			return state, err
		}
		game := msg.Payload
		next := State{Stage: StagePlaying, Status: mb.StatusPlaying, Opponent: state.Opponent, Game: &game}
		if game.Status == mb.GameStatusOver {
			next.Stage = StageOver
			next.Status = mb.StatusGameOver
		}
		return next, nil

	case mc.TypeOpponentJoined:
		msg, err := decodeInto[mc.RespOpponentJoined](raw)
		if err != nil {
			return state, err
		}
		opponent := msg.Payload.Opponent
		status := msg.Payload.Session.Status
		lobby := lobbyState(status, &opponent)
		if state.Lobby != nil {
			lobby.Boats = state.Lobby.Boats
		}
		return State{Stage: StageLobby, Status: status, Opponent: &opponent, Lobby: lobby}, nil

	case mc.TypeNewGameStarted:
		msg, err := decodeInto[mc.RespSessionStatus](raw)
		if err != nil {
			return state, err
		}
		status := msg.Payload.Session.Status
		return State{Stage: StageLobby, Status: status, Opponent: state.Opponent, Lobby: lobbyState(status, state.Opponent)}, nil

	case mc.TypeOpponentDisconnected:
		msg, err := decodeInto[mc.RespSessionStatus](raw)
		if err != nil {
			return state, err
		}
		status := msg.Payload.Session.Status
		return State{Stage: StageLobby, Status: status, Lobby: lobbyState(status, nil)}, nil
	}

	return state, fmt.Errorf("unknown message type %q", envelope.Type)
}

type Listener func(State)

// Store holds the canonical client State and notifies listeners whenever a
// dispatched message changes it.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextId    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener, 2)}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns a func that removes it again.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextId
	s.nextId++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Dispatch reduces raw into the state. Listeners run on the caller's
// goroutine, in subscription order, after the lock is released.
func (s *Store) Dispatch(raw []byte) error {
	s.mu.Lock()
	next, err := Reduce(s.state, raw)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if reflect.DeepEqual(next, s.state) {
		s.mu.Unlock()
		return nil
	}
	s.state = next

	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, len(ids))
	for i, id := range ids {
		listeners[i] = s.listeners[id]
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

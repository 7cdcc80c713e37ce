package connection

// Message types. Client requests are acknowledged with the same type.
const (
	// Client to server
	TypePlaceBoats     = "place_boats"
	TypeFireShot       = "fire_shot"
	TypeRequestNewGame = "request_new_game"

	// Server to client
	TypeOpponentJoined       = "opponent_joined"
	TypeGameUpdate           = "game_update"
	TypeNewGameStarted       = "new_game_started"
	TypeOpponentDisconnected = "opponent_disconnected"
	TypeSessionState         = "session_state"

	// Unknown type or a payload that could not be decoded at all
	TypeInvalidSignal = "invalid_signal"
)

// Signal is decoded first to find out how to decode the rest of a message.
type Signal struct {
	Type string `json:"type"`
}

func NewSignal(msgType string) Signal {
	return Signal{Type: msgType}
}

func IsClientType(msgType string) bool {
	switch msgType {
	case TypePlaceBoats, TypeFireShot, TypeRequestNewGame:
		return true
	}
	return false
}

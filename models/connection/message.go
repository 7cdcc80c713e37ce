package connection

import cerr "github.com/saeidalz13/battleship-session/internal/error"

type NoPayload struct{}

type Message[T any] struct {
	Type    string   `json:"type"`
	Payload T        `json:"payload,omitempty"`
	Error   *RespErr `json:"error,omitempty"`
}

func NewMessage[T any](msgType string) Message[T] {
	return Message[T]{Type: msgType}
}

func (m *Message[T]) AddPayload(payload T) {
	m.Payload = payload
}

// AddCerr fills the error object from a taxonomy error.
func (m *Message[T]) AddCerr(err error, message string) {
	m.Error = &RespErr{
		Kind:         cerr.KindOf(err).String(),
		Reason:       cerr.ReasonOf(err),
		ErrorDetails: err.Error(),
		Message:      message,
	}
}

// NewErrorAck builds the reply sent only to the player whose request failed.
func NewErrorAck(msgType string, err error) Message[NoPayload] {
	msg := NewMessage[NoPayload](msgType)
	msg.AddCerr(err, userMessage(err))
	// internal failures are logged, not shown
	if cerr.KindOf(err) == cerr.KindUnknown {
		msg.Error.ErrorDetails = ""
	}
	return msg
}

func userMessage(err error) string {
	switch cerr.KindOf(err) {
	case cerr.KindValidation:
		return "the request was rejected, check it and try again"
	case cerr.KindIllegalAction:
		return "that action is not allowed right now"
	case cerr.KindNotFound:
		return "the session or player could not be found"
	case cerr.KindCorrupt:
		return "this session can no longer be played"
	default:
		return "something went wrong"
	}
}

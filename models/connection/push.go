package connection

// Push is one outbound message for one player of a session.
type Push struct {
	ReceiverID string
	Payload    any
}

func NewPush(receiverId string, payload any) Push {
	return Push{
		ReceiverID: receiverId,
		Payload:    payload,
	}
}

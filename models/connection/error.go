package connection

import (
	"errors"
	"fmt"
)

// LoopAction is what a read or write loop should do after a connection error.
type LoopAction uint8

const (
	LoopBreak LoopAction = iota
	// The client vanished without a close frame. Only this starts the grace
	// period.
	LoopAbnormalClosure
)

func (a LoopAction) String() string {
	switch a {
	case LoopAbnormalClosure:
		return "abnormal_closure"
	default:
		return "break"
	}
}

// ConnErr is a websocket failure already classified into a loop action.
type ConnErr struct {
	Action LoopAction
	Err    error
}

func newConnErr(action LoopAction, err error) *ConnErr {
	return &ConnErr{Action: action, Err: err}
}

func (c *ConnErr) Error() string {
	return fmt.Sprintf("connection error (%s): %v", c.Action, c.Err)
}

func (c *ConnErr) Unwrap() error {
	return c.Err
}

// ActionOf returns the loop action carried by err, LoopBreak when it has none.
func ActionOf(err error) LoopAction {
	var connErr *ConnErr
	if errors.As(err, &connErr) {
		return connErr.Action
	}
	return LoopBreak
}

var errPeerClosed = errors.New("peer closed")

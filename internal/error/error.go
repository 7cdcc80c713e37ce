package error

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindUnknown Kind = iota

	// Malformed input. Never mutates state.
	KindValidation

	// Well formed but not allowed in the current state.
	KindIllegalAction

	KindNotFound

	// Send to a peer failed. Non-fatal, resolved by reconnection replay.
	KindTransport

	// The durable session record is inconsistent. Aborts only that session.
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindIllegalAction:
		return "illegal_action"
	case KindNotFound:
		return "not_found"
	case KindTransport:
		return "transport"
	case KindCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Reasons are stable machine-readable strings sent to clients.
const (
	ReasonFleetSize       = "fleet_size"
	ReasonFleetShape      = "fleet_shape"
	ReasonOutOfBounds     = "out_of_bounds"
	ReasonOverlap         = "overlap"
	ReasonMalformed       = "malformed"
	ReasonNotYourTurn     = "not_your_turn"
	ReasonNotInProgress   = "game_not_in_progress"
	ReasonDuplicateShot   = "duplicate_shot"
	ReasonNotOwner        = "not_owner"
	ReasonWrongStatus     = "wrong_status"
	ReasonAlreadyPlaced   = "fleet_already_placed"
	ReasonSessionFull     = "session_full"
	ReasonRateLimited     = "rate_limited"
	ReasonSession         = "session"
	ReasonPlayer          = "player"
	ReasonPeerUnavailable = "peer_unavailable"
	ReasonUsername        = "username"
)

const MaxUsernameLength = 32

type Error struct {
	Kind   Kind
	Reason string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(kind Kind, reason, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Validation

func ErrFleetSize(got, want int) error {
	return newErr(KindValidation, ReasonFleetSize, "fleet must contain %d ships, got %d", want, got)
}

func ErrFleetShape(length, got, want int) error {
	return newErr(KindValidation, ReasonFleetShape, "fleet must contain %d ships of length %d, got %d", want, length, got)
}

func ErrDuplicateShipId(shipId string) error {
	return newErr(KindValidation, ReasonFleetShape, "ship id used more than once: %s", shipId)
}

func ErrInvalidOrientation(orientation string) error {
	return newErr(KindValidation, ReasonFleetShape, "invalid ship orientation: %q", orientation)
}

func ErrShipOutOfBounds(shipId string, x, y int) error {
	return newErr(KindValidation, ReasonOutOfBounds, "ship %s leaves the grid at\tx: %d\ty: %d", shipId, x, y)
}

func ErrShipOverlap(a, b string, x, y int) error {
	return newErr(KindValidation, ReasonOverlap, "ships %s and %s overlap at\tx: %d\ty: %d", a, b, x, y)
}

func ErrXorYOutOfGridBound(x, y int) error {
	return newErr(KindValidation, ReasonOutOfBounds, "incoming x or y is out of game grid bound\tx: %d\ty: %d", x, y)
}

func ErrInvalidUsername(username string) error {
	return newErr(KindValidation, ReasonUsername, "username must be 1 to %d characters, got %q", MaxUsernameLength, username)
}

func ErrMalformedPayload(err error) error {
	e := newErr(KindValidation, ReasonMalformed, "malformed payload")
	e.Err = err
	return e
}

// Illegal action

func ErrNotTurnForAttacker(playerUuid string) error {
	return newErr(KindIllegalAction, ReasonNotYourTurn, "it is not the turn of this player, uuid: %s", playerUuid)
}

func ErrGameNotInProgress(status string) error {
	return newErr(KindIllegalAction, ReasonNotInProgress, "game is not in progress, status: %s", status)
}

func ErrAttackPositionAlreadyFilled(x, y int) error {
	return newErr(KindIllegalAction, ReasonDuplicateShot, "current position in grid already taken\tx: %d\ty: %d", x, y)
}

func ErrRematchNotOwner(playerUuid string) error {
	return newErr(KindIllegalAction, ReasonNotOwner, "only the session owner can request a new game, uuid: %s", playerUuid)
}

func ErrInvalidStatus(action, status string) error {
	return newErr(KindIllegalAction, ReasonWrongStatus, "%s is not allowed while status is %s", action, status)
}

func ErrFleetAlreadyPlaced(playerUuid string) error {
	return newErr(KindIllegalAction, ReasonAlreadyPlaced, "fleet already placed for player, uuid: %s", playerUuid)
}

func ErrSessionFull(slug string) error {
	return newErr(KindIllegalAction, ReasonSessionFull, "session already has two players, slug: %s", slug)
}

func ErrRateLimited() error {
	return newErr(KindIllegalAction, ReasonRateLimited, "too many messages, slow down")
}

// Not found

func ErrSessionNotFound(sessionId string) error {
	return newErr(KindNotFound, ReasonSession, "session with this id does not exist, id: %s", sessionId)
}

func ErrSlugNotFound(slug string) error {
	return newErr(KindNotFound, ReasonSession, "session with this slug does not exist, slug: %s", slug)
}

func ErrPlayerNotExist(playerUuid string) error {
	return newErr(KindNotFound, ReasonPlayer, "player with this uuid does not exist, uuid: %s", playerUuid)
}

// Transport

func ErrTransport(sessionId, playerUuid string, err error) error {
	e := newErr(KindTransport, ReasonPeerUnavailable, "failed to push to player %s in session %s", playerUuid, sessionId)
	e.Err = err
	return e
}

// Corrupt

func ErrCorruptSession(sessionId, details string) error {
	return newErr(KindCorrupt, ReasonSession, "session %s is inconsistent: %s", sessionId, details)
}

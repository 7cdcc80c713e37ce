package api

import (
	"encoding/json"
	"net/http"

	cerr "github.com/saeidalz13/battleship-session/internal/error"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

func httpStatus(err error) int {
	switch cerr.KindOf(err) {
	case cerr.KindValidation:
		return http.StatusBadRequest
	case cerr.KindIllegalAction:
		return http.StatusConflict
	case cerr.KindNotFound:
		return http.StatusNotFound
	case cerr.KindCorrupt:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeErr answers with the same error object the websocket acks carry.
func writeErr(w http.ResponseWriter, err error) {
	ack := mc.NewErrorAck("", err)
	writeJSON(w, httpStatus(err), ack.Error)
}

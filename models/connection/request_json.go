package connection

import (
	mb "github.com/saeidalz13/battleship-session/models/battleship"
)

type ReqPlaceBoats struct {
	Boats []mb.ShipPlacement `json:"boats"`
}

type ReqFireShot struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (r ReqFireShot) Coordinates() mb.Coordinates {
	return mb.NewCoordinates(r.X, r.Y)
}

type ReqRequestNewGame struct{}

// HTTP bootstrap bodies

type ReqCreateSession struct {
	Username string `json:"username"`
}

type ReqJoinSession struct {
	Slug     string `json:"slug"`
	Username string `json:"username"`
}

package battleship

import "strings"

const (
	GridSizeMin     int = 5
	GridSizeMax     int = 26
	GridSizeDefault int = 10
)

type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

func ParseOrientation(s string) (Orientation, bool) {
	switch Orientation(strings.ToLower(s)) {
	case OrientationHorizontal:
		return OrientationHorizontal, true
	case OrientationVertical:
		return OrientationVertical, true
	}
	return "", false
}

type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func NewCoordinates(x, y int) Coordinates {
	return Coordinates{X: x, Y: y}
}

func InBounds(c Coordinates, gridSize int) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < gridSize && c.Y < gridSize
}

// ShipPlacement is a ship as submitted by a client: an origin,
// a length and the direction it grows in.
type ShipPlacement struct {
	ID          string      `json:"id"`
	StartX      int         `json:"startX"`
	StartY      int         `json:"startY"`
	Length      int         `json:"length"`
	Orientation Orientation `json:"orientation"`
}

func (p ShipPlacement) Origin() Coordinates {
	return NewCoordinates(p.StartX, p.StartY)
}

// Cells returns the occupied cells starting at the origin.
// Horizontal ships grow along x, vertical ships along y.
func (p ShipPlacement) Cells() []Coordinates {
	if p.Length <= 0 {
		return nil
	}

	origin := p.Origin()
	cells := make([]Coordinates, p.Length)
	for i := 0; i < p.Length; i++ {
		if p.Orientation == OrientationVertical {
			cells[i] = NewCoordinates(origin.X, origin.Y+i)
		} else {
			cells[i] = NewCoordinates(origin.X+i, origin.Y)
		}
	}
	return cells
}

func (p ShipPlacement) Contains(c Coordinates) bool {
	if p.Length <= 0 {
		return false
	}
	if p.Orientation == OrientationVertical {
		return c.X == p.StartX && c.Y >= p.StartY && c.Y < p.StartY+p.Length
	}
	return c.Y == p.StartY && c.X >= p.StartX && c.X < p.StartX+p.Length
}

// InBounds reports whether every occupied cell is on the grid. The first
// offending cell is returned when it is not.
func (p ShipPlacement) InBounds(gridSize int) (Coordinates, bool) {
	for _, c := range p.Cells() {
		if !InBounds(c, gridSize) {
			return c, false
		}
	}
	return Coordinates{}, true
}

type Ship struct {
	ShipPlacement
	Sunk bool `json:"sunk"`
}

func NewShip(p ShipPlacement) Ship {
	return Ship{ShipPlacement: p}
}

func cloneShips(ships []Ship) []Ship {
	if ships == nil {
		return nil
	}
	out := make([]Ship, len(ships))
	copy(out, ships)
	return out
}

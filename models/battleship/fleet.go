package battleship

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	cerr "github.com/saeidalz13/battleship-session/internal/error"
)

const (
	ShipLengthMin = 2
	ShipLengthMax = 5
)

// Manifest maps a ship length to how many ships of that length a fleet needs.
type Manifest map[int]int

func DefaultManifest() Manifest {
	return Manifest{5: 1, 4: 1, 3: 2, 2: 1}
}

// ParseManifest reads the "length:count,length:count" form used in config.
func ParseManifest(s string) (Manifest, error) {
	m := make(Manifest)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lengthStr, countStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid fleet entry %q, expected length:count", part)
		}
		length, err := strconv.Atoi(strings.TrimSpace(lengthStr))
		if err != nil {
			return nil, fmt.Errorf("invalid ship length in %q: %w", part, err)
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return nil, fmt.Errorf("invalid ship count in %q: %w", part, err)
		}
		m[length] += count
	}

	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m Manifest) Check() error {
	if len(m) == 0 {
		return fmt.Errorf("fleet manifest is empty")
	}
	for length, count := range m {
		if length < ShipLengthMin || length > ShipLengthMax {
			return fmt.Errorf("ship length %d outside %d-%d", length, ShipLengthMin, ShipLengthMax)
		}
		if count <= 0 {
			return fmt.Errorf("ship count for length %d must be positive", length)
		}
	}
	return nil
}

// Fits reports whether the fleet can be laid out on a grid of this size.
func (m Manifest) Fits(gridSize int) bool {
	for length := range m {
		if length > gridSize {
			return false
		}
	}
	return m.TotalCells() <= gridSize*gridSize
}

func (m Manifest) TotalShips() int {
	total := 0
	for _, count := range m {
		total += count
	}
	return total
}

func (m Manifest) TotalCells() int {
	total := 0
	for length, count := range m {
		total += length * count
	}
	return total
}

// Lengths returns the manifest lengths in ascending order.
func (m Manifest) Lengths() []int {
	lengths := make([]int, 0, len(m))
	for length := range m {
		lengths = append(lengths, length)
	}
	sort.Ints(lengths)
	return lengths
}

func (m Manifest) String() string {
	parts := make([]string, 0, len(m))
	for _, length := range m.Lengths() {
		parts = append(parts, fmt.Sprintf("%d:%d", length, m[length]))
	}
	return strings.Join(parts, ",")
}

func (m Manifest) clone() Manifest {
	out := make(Manifest, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ValidateFleet checks a full placement submission. It is all or nothing:
// count, length multiset, bounds and pairwise overlap are checked in that order
// and the first failing rule is reported.
func ValidateFleet(placements []ShipPlacement, manifest Manifest, gridSize int) error {
	if len(placements) != manifest.TotalShips() {
		return cerr.ErrFleetSize(len(placements), manifest.TotalShips())
	}

	counts := make(map[int]int, len(manifest))
	for _, p := range placements {
		counts[p.Length]++
	}
	for length, got := range counts {
		if want := manifest[length]; got != want {
			return cerr.ErrFleetShape(length, got, want)
		}
	}

	normalized := make([]ShipPlacement, len(placements))
	ids := make(map[string]struct{}, len(placements))
	for i, p := range placements {
		orientation, ok := ParseOrientation(string(p.Orientation))
		if !ok {
			return cerr.ErrInvalidOrientation(string(p.Orientation))
		}
		p.Orientation = orientation
		normalized[i] = p

		if p.ID != "" {
			if _, dup := ids[p.ID]; dup {
				return cerr.ErrDuplicateShipId(p.ID)
			}
			ids[p.ID] = struct{}{}
		}
		if c, ok := p.InBounds(gridSize); !ok {
			return cerr.ErrShipOutOfBounds(p.ID, c.X, c.Y)
		}
	}

	occupied := make(map[Coordinates]string, manifest.TotalCells())
	for i, p := range normalized {
		label := p.ID
		if label == "" {
			label = "#" + strconv.Itoa(i)
		}
		for _, c := range p.Cells() {
			if other, taken := occupied[c]; taken {
				return cerr.ErrShipOverlap(other, label, c.X, c.Y)
			}
			occupied[c] = label
		}
	}

	return nil
}

// NewFleet validates the placements and returns the ships ready to be stored.
// Orientation is normalized and missing ids are filled in.
func NewFleet(placements []ShipPlacement, manifest Manifest, gridSize int) ([]Ship, error) {
	if err := ValidateFleet(placements, manifest, gridSize); err != nil {
		return nil, err
	}

	ships := make([]Ship, len(placements))
	for i, p := range placements {
		p.Orientation, _ = ParseOrientation(string(p.Orientation))
		if p.ID == "" {
			p.ID = uuid.NewString()[:8]
		}
		ships[i] = NewShip(p)
	}
	return ships, nil
}

// OccupiedCells is the set of all cells a fleet covers.
func OccupiedCells(ships []Ship) map[Coordinates]struct{} {
	cells := make(map[Coordinates]struct{})
	for _, ship := range ships {
		for _, c := range ship.Cells() {
			cells[c] = struct{}{}
		}
	}
	return cells
}

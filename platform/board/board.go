package board

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind discriminates the square types on the board.
type Kind string

const (
	KindStreet      Kind = "street"
	KindRailroad    Kind = "railroad"
	KindUtility     Kind = "utility"
	KindTax         Kind = "tax"
	KindChance      Kind = "chance"
	KindChest       Kind = "chest"
	KindGo          Kind = "go"
	KindJail        Kind = "jail"
	KindFreeParking Kind = "free_parking"
	KindGoToJail    Kind = "go_to_jail"
)

const (
	// Size is the number of squares on the board.
	Size = 40
	// JailPos is where go-to-jail sends a participant.
	JailPos = 10
)

// Square is the static description of one board position. Runtime state
// (owner, mortgage, houses) lives on the engine's Property records.
type Square struct {
	Pos       int     `yaml:"pos" json:"pos"`
	Name      string  `yaml:"name" json:"name"`
	Kind      Kind    `yaml:"kind" json:"kind"`
	Group     string  `yaml:"group,omitempty" json:"group,omitempty"`
	Price     int64   `yaml:"price,omitempty" json:"price,omitempty"`
	Rent      []int64 `yaml:"rent,omitempty" json:"rent,omitempty"`
	HouseCost int64   `yaml:"house_cost,omitempty" json:"house_cost,omitempty"`
	Tax       int64   `yaml:"tax,omitempty" json:"tax,omitempty"`
}

// Purchasable reports whether the square can be owned at all.
func (s Square) Purchasable() bool {
	return s.Kind == KindStreet || s.Kind == KindRailroad || s.Kind == KindUtility
}

// MortgageValue is half the face price, rounded down.
func (s Square) MortgageValue() int64 { return s.Price / 2 }

// Board is the static board catalog plus group indexes.
type Board struct {
	squares []Square
	groups  map[string][]int
}

//go:embed classic.yaml
var classicYAML []byte

var ErrNotFound = errors.New("board: square not found")

// LoadClassic parses the embedded classic catalog.
func LoadClassic() (*Board, error) {
	var squares []Square
	if err := yaml.Unmarshal(classicYAML, &squares); err != nil {
		return nil, fmt.Errorf("board: parse catalog: %w", err)
	}
	return New(squares)
}

// New builds a board from an explicit square list, validating positions.
func New(squares []Square) (*Board, error) {
	if len(squares) != Size {
		return nil, fmt.Errorf("board: expected %d squares, got %d", Size, len(squares))
	}
	b := &Board{
		squares: make([]Square, Size),
		groups:  make(map[string][]int),
	}
	seen := make(map[int]bool, Size)
	for _, sq := range squares {
		if sq.Pos < 0 || sq.Pos >= Size {
			return nil, fmt.Errorf("board: position %d out of range", sq.Pos)
		}
		if seen[sq.Pos] {
			return nil, fmt.Errorf("board: duplicate position %d", sq.Pos)
		}
		if sq.Kind == KindStreet && len(sq.Rent) != 6 {
			return nil, fmt.Errorf("board: %s needs 6 rent levels, got %d", sq.Name, len(sq.Rent))
		}
		seen[sq.Pos] = true
		b.squares[sq.Pos] = sq
		if sq.Purchasable() && sq.Group != "" {
			b.groups[sq.Group] = append(b.groups[sq.Group], sq.Pos)
		}
	}
	return b, nil
}

// Square returns the catalog entry at pos.
func (b *Board) Square(pos int) (Square, error) {
	if pos < 0 || pos >= len(b.squares) {
		return Square{}, fmt.Errorf("%w: position %d", ErrNotFound, pos)
	}
	return b.squares[pos], nil
}

// Group returns the positions that share a colour/group tag.
func (b *Board) Group(name string) []int {
	return b.groups[name]
}

// Purchasables returns every ownable position, in board order.
func (b *Board) Purchasables() []int {
	var out []int
	for _, sq := range b.squares {
		if sq.Purchasable() {
			out = append(out, sq.Pos)
		}
	}
	return out
}

// StreetRent computes rent for a street given its improvement level
// (0..5, 5 = hotel) and whether the owner holds the complete group.
// Unimproved streets in a complete group charge double base rent.
func StreetRent(sq Square, houses int, fullGroup bool) int64 {
	if sq.Kind != KindStreet || len(sq.Rent) != 6 {
		return 0
	}
	if houses <= 0 {
		if fullGroup {
			return sq.Rent[0] * 2
		}
		return sq.Rent[0]
	}
	if houses > 5 {
		houses = 5
	}
	return sq.Rent[houses]
}

// RailroadRent is $25 doubled per additional railroad owned.
func RailroadRent(owned int) int64 {
	if owned <= 0 {
		return 0
	}
	if owned > 4 {
		owned = 4
	}
	return 25 << (owned - 1)
}

// UtilityRent is 4x the dice total with one utility, 10x with both.
func UtilityRent(diceTotal, owned int) int64 {
	switch {
	case owned >= 2:
		return int64(10 * diceTotal)
	case owned == 1:
		return int64(4 * diceTotal)
	default:
		return 0
	}
}

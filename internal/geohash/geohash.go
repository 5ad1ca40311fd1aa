// Package geohash derives the neighboring cells of GeoHash-encoded grid
// cells. It deliberately does not encode or decode coordinates; callers are
// expected to hold GeoHash strings already (the bronze loaders compute them
// in PostGIS). The remap tables below are the reference tables shared with
// the SQL layer, so any change here silently shifts every spatial match.
package geohash

import (
	"strings"

	"github.com/rotisserie/eris"
)

// alphabet is the 32-symbol GeoHash base32 alphabet. The letters a, i, l and
// o are excluded by design of the encoding.
const alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Direction identifies a single-axis move on the GeoHash grid. Diagonal
// moves have no table of their own and are composed from two cardinal moves.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	}
	return "unknown"
}

// ParseDirection maps a textual direction ("n", "north", ...) to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "north":
		return North, nil
	case "s", "south":
		return South, nil
	case "e", "east":
		return East, nil
	case "w", "west":
		return West, nil
	}
	return 0, eris.Wrapf(ErrInvalidInput, "geohash: unknown direction %q", s)
}

// ErrInvalidInput reports an empty GeoHash, a character outside the base32
// alphabet, or an unrecognized direction. Check with eris.Is.
var ErrInvalidInput = eris.New("geohash: invalid input")

// Cell is an optional GeoHash. Valid is false when a requested move crosses
// the edge of the encoded grid (e.g. north of the northernmost row). The
// zero value is the no-neighbor sentinel; it is distinct from the empty
// string, which is a legitimate intermediate during parent correction and
// must never leak to callers.
type Cell struct {
	Hash  string
	Valid bool
}

// Slot indices into the array returned by Neighbors. The order is part of
// the contract: callers index positionally.
const (
	SlotCenter = iota
	SlotNorth
	SlotSouth
	SlotEast
	SlotWest
	SlotNorthEast
	SlotNorthWest
	SlotSouthEast
	SlotSouthWest
)

// neighborTables remaps the last character of a GeoHash when moving one cell
// in a direction. Indexed by [Direction][len(geohash)%2]: index 0 holds the
// even-length variant, index 1 the odd-length variant. Each row is a
// positional permutation of the alphabet.
var neighborTables = [4][2]string{
	North: {"p0r21436x8zb9dcf5h7kjnmqesgutwvy", "bc01fg45238967deuvhjyznpkmstqrwx"},
	South: {"14365h7k9dcfesgujnmqp0r2twvyx8zb", "238967debc01fg45kmstqrwxuvhjyznp"},
	East:  {"bc01fg45238967deuvhjyznpkmstqrwx", "p0r21436x8zb9dcf5h7kjnmqesgutwvy"},
	West:  {"238967debc01fg45kmstqrwxuvhjyznp", "14365h7k9dcfesgujnmqp0r2twvyx8zb"},
}

// borderSets lists the last characters sitting on the boundary of their
// parent cell in a direction, requiring the parent itself to shift. Same
// indexing as neighborTables.
var borderSets = [4][2]string{
	North: {"prxz", "bcfguvyz"},
	South: {"028b", "0145hjnp"},
	East:  {"bcfguvyz", "prxz"},
	West:  {"0145hjnp", "028b"},
}

// Adjacent returns the GeoHash of the cell bordering geohash in the given
// direction, at the same precision. An invalid Cell (the no-neighbor
// sentinel) means the move crosses the edge of the encoded grid; longitude
// does not wrap at the antimeridian. InvalidInput errors are returned for
// an empty geohash, characters outside the alphabet, or a direction outside
// the four defined values.
func Adjacent(geohash string, dir Direction) (Cell, error) {
	if err := validate(geohash, dir); err != nil {
		return Cell{}, err
	}
	hash, ok := adjacent(geohash, dir)
	if !ok {
		return Cell{}, nil
	}
	return Cell{Hash: hash, Valid: true}, nil
}

// adjacent performs the actual table walk. An empty geohash is the base case
// of the recursive parent correction: the cell has no parent, so the move
// has run off the grid.
func adjacent(geohash string, dir Direction) (string, bool) {
	if geohash == "" {
		return "", false
	}

	last := geohash[len(geohash)-1]
	parent := geohash[:len(geohash)-1]
	parity := len(geohash) % 2

	if strings.IndexByte(borderSets[dir][parity], last) >= 0 {
		shifted, ok := adjacent(parent, dir)
		if !ok {
			return "", false
		}
		parent = shifted
	}

	idx := strings.IndexByte(alphabet, last)
	return parent + string(neighborTables[dir][parity][idx]), true
}

// Neighbors returns the cell itself plus its 8 surrounding cells in the
// fixed order [center, north, south, east, west, northeast, northwest,
// southeast, southwest] (see the Slot constants). Cells beyond a grid edge
// are the no-neighbor sentinel; a diagonal built on a sentinel cardinal is
// itself the sentinel.
func Neighbors(geohash string) ([9]Cell, error) {
	var out [9]Cell
	if err := validate(geohash, North); err != nil {
		return out, err
	}

	step := func(from Cell, dir Direction) Cell {
		if !from.Valid {
			return Cell{}
		}
		hash, ok := adjacent(from.Hash, dir)
		if !ok {
			return Cell{}
		}
		return Cell{Hash: hash, Valid: true}
	}

	out[SlotCenter] = Cell{Hash: geohash, Valid: true}
	out[SlotNorth] = step(out[SlotCenter], North)
	out[SlotSouth] = step(out[SlotCenter], South)
	out[SlotEast] = step(out[SlotCenter], East)
	out[SlotWest] = step(out[SlotCenter], West)

	// Diagonals compose the already-computed cardinals; the four tables only
	// describe single-axis moves.
	out[SlotNorthEast] = step(out[SlotNorth], East)
	out[SlotNorthWest] = step(out[SlotNorth], West)
	out[SlotSouthEast] = step(out[SlotSouth], East)
	out[SlotSouthWest] = step(out[SlotSouth], West)

	return out, nil
}

func validate(geohash string, dir Direction) error {
	if dir < North || dir > West {
		return eris.Wrapf(ErrInvalidInput, "geohash: direction %d out of range", int(dir))
	}
	if geohash == "" {
		return eris.Wrap(ErrInvalidInput, "geohash: empty geohash")
	}
	for i := 0; i < len(geohash); i++ {
		if strings.IndexByte(alphabet, geohash[i]) < 0 {
			return eris.Wrapf(ErrInvalidInput, "geohash: character %q at position %d outside base32 alphabet", geohash[i], i)
		}
	}
	return nil
}

package timeline

import "strconv"

// Index is a position in the sorted marker sequence, or None.
type Index struct {
	pos   int
	valid bool
}

// None is the Index of no marker.
var None = Index{}

// At returns the Index for position i. Negative positions yield None.
func At(i int) Index {
	if i < 0 {
		return None
	}
	return Index{pos: i, valid: true}
}

// Get returns the position and whether the index refers to a marker.
func (i Index) Get() (int, bool) {
	return i.pos, i.valid
}

// IsNone reports whether i refers to no marker.
func (i Index) IsNone() bool {
	return !i.valid
}

// Int returns the position, or -1 for None. Used on the wire.
func (i Index) Int() int {
	if !i.valid {
		return -1
	}
	return i.pos
}

func (i Index) String() string {
	if !i.valid {
		return "none"
	}
	return strconv.Itoa(i.pos)
}

// MarshalJSON encodes the index as its position, -1 for None.
func (i Index) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(i.Int()), 10), nil
}

// UnmarshalJSON decodes a position written by MarshalJSON.
func (i *Index) UnmarshalJSON(data []byte) error {
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*i = At(n)
	return nil
}

package timeline

import (
	"cmp"
	"slices"

	"github.com/listenupapp/markertrack/internal/id"
)

// Store holds markers keyed by identity and ordered by time.
//
// The sorted sequence and the key map always contain the same markers. Markers with
// equal times keep the order in which they were added.
type Store struct {
	times  TimeAccessor
	newKey func() string

	byKey  map[string]*Marker
	added  map[string]uint64 // insertion sequence, breaks time ties
	seq    uint64
	sorted []*Marker
}

// NewStore creates an empty store reading marker times through times.
// A nil accessor means FieldTime.
func NewStore(times TimeAccessor) *Store {
	if times == nil {
		times = FieldTime
	}
	return &Store{
		times:  times,
		newKey: id.NewKey,
		byKey:  make(map[string]*Marker),
		added:  make(map[string]uint64),
	}
}

// Add assigns each marker a fresh key and inserts it. Nil markers and markers already
// in the store are skipped. Returns the markers that were inserted.
func (s *Store) Add(markers ...*Marker) []*Marker {
	inserted := make([]*Marker, 0, len(markers))
	for _, m := range markers {
		if m == nil {
			continue
		}
		if cur, ok := s.byKey[m.Key]; ok && cur == m {
			continue
		}

		m.Key = s.newKey()
		s.byKey[m.Key] = m
		s.added[m.Key] = s.seq
		s.seq++
		s.sorted = append(s.sorted, m)
		inserted = append(inserted, m)
	}

	if len(inserted) > 0 {
		s.sort()
	}
	return inserted
}

// Remove deletes markers by key. Unknown keys are ignored.
// Returns the number of markers removed.
func (s *Store) Remove(keys ...string) int {
	removed := 0
	for _, key := range keys {
		if _, ok := s.byKey[key]; !ok {
			continue
		}
		delete(s.byKey, key)
		delete(s.added, key)
		removed++
	}
	if removed == 0 {
		return 0
	}

	s.sorted = slices.DeleteFunc(s.sorted, func(m *Marker) bool {
		_, ok := s.byKey[m.Key]
		return !ok
	})
	return removed
}

// RemoveAt deletes markers by position. All positions are resolved against the
// sequence as it is before any removal, so the result does not depend on their order.
// Out of range positions are ignored.
func (s *Store) RemoveAt(indices ...int) int {
	keys := make([]string, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(s.sorted) {
			keys = append(keys, s.sorted[i].Key)
		}
	}
	return s.Remove(keys...)
}

// RemoveAll empties the store and returns how many markers it held.
func (s *Store) RemoveAll() int {
	n := len(s.sorted)
	s.byKey = make(map[string]*Marker)
	s.added = make(map[string]uint64)
	s.sorted = nil
	return n
}

// Reset replaces the contents of the store with markers.
func (s *Store) Reset(markers ...*Marker) []*Marker {
	s.RemoveAll()
	return s.Add(markers...)
}

// Resort restores time order after marker times were changed in place.
func (s *Store) Resort() {
	s.sort()
}

// Markers returns the markers in time order. The slice is a copy; the markers are not.
func (s *Store) Markers() []*Marker {
	return slices.Clone(s.sorted)
}

// Len returns the number of markers.
func (s *Store) Len() int {
	return len(s.sorted)
}

// At returns the marker at position i, or nil when i is out of range.
func (s *Store) At(i int) *Marker {
	if i < 0 || i >= len(s.sorted) {
		return nil
	}
	return s.sorted[i]
}

// Get looks up a marker by key.
func (s *Store) Get(key string) (*Marker, bool) {
	m, ok := s.byKey[key]
	return m, ok
}

// IndexOf returns the position of the marker with key.
func (s *Store) IndexOf(key string) Index {
	if _, ok := s.byKey[key]; !ok {
		return None
	}
	return At(slices.IndexFunc(s.sorted, func(m *Marker) bool { return m.Key == key }))
}

// Time returns the resolved time of the marker at position i.
func (s *Store) Time(i int) float64 {
	return s.times.MarkerTime(s.sorted[i])
}

func (s *Store) sort() {
	slices.SortStableFunc(s.sorted, func(a, b *Marker) int {
		if c := cmp.Compare(s.times.MarkerTime(a), s.times.MarkerTime(b)); c != 0 {
			return c
		}
		return cmp.Compare(s.added[a.Key], s.added[b.Key])
	})
}

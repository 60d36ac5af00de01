package timeline

// Transition describes a change of the active marker.
type Transition struct {
	From   Index
	To     Index
	Marker *Marker // marker at To, nil when To is None
}

// Tracker maps playback time to the marker whose window contains it.
//
// The window of marker i is [time(i), time(i+1)). The last window ends at the media
// duration.
type Tracker struct {
	current Index
	key     string
}

// Current returns the active index.
func (tr *Tracker) Current() Index {
	return tr.current
}

// Reset forgets the active marker.
func (tr *Tracker) Reset() {
	tr.current = None
	tr.key = ""
}

// Rebase moves the active index to wherever the active marker now sits in s.
// Used after markers were added or re-sorted, never after removals.
func (tr *Tracker) Rebase(s *Store) {
	if tr.current.IsNone() {
		return
	}
	tr.current = s.IndexOf(tr.key)
	if tr.current.IsNone() {
		tr.key = ""
	}
}

// Update evaluates playback time t and commits the new active index.
// It reports a transition only when the index changed.
func (tr *Tracker) Update(s *Store, t, duration float64) (Transition, bool) {
	n := s.Len()
	if cur, ok := tr.current.Get(); ok && cur < n {
		if s.Time(cur) <= t && t < windowEnd(s, cur, duration) {
			return Transition{}, false
		}
		// Playback parked on the final frame stays on the last marker.
		if cur == n-1 && t == duration {
			return Transition{}, false
		}
	}

	next := locate(s, t, duration)
	if next == tr.current {
		return Transition{}, false
	}

	change := Transition{From: tr.current, To: next}
	tr.current = next
	tr.key = ""
	if pos, ok := next.Get(); ok {
		change.Marker = s.At(pos)
		tr.key = change.Marker.Key
	}
	return change, true
}

func windowEnd(s *Store, i int, duration float64) float64 {
	if i+1 < s.Len() {
		return s.Time(i + 1)
	}
	return duration
}

func locate(s *Store, t, duration float64) Index {
	n := s.Len()
	if n == 0 || t < s.Time(0) {
		return None
	}
	for i := range n {
		if s.Time(i) <= t && t < windowEnd(s, i, duration) {
			return At(i)
		}
	}
	return None
}

package timeline

// OverlayState is the message shown over the player after a marker is reached.
type OverlayState struct {
	Visible bool   `json:"visible"`
	Index   Index  `json:"index"`
	Text    string `json:"text"`
}

// Overlay shows the active marker's overlay text for a fixed time after its start.
type Overlay struct {
	state OverlayState
	key   string
}

// State returns the current overlay state.
func (o *Overlay) State() OverlayState {
	return o.state
}

// Reset hides the overlay. Reports whether anything changed.
func (o *Overlay) Reset() bool {
	prev := o.state
	o.state = OverlayState{Index: None}
	o.key = ""
	return prev != o.state
}

// Rebase moves the shown index to wherever the shown marker now sits in s.
func (o *Overlay) Rebase(s *Store) {
	if o.state.Index.IsNone() {
		return
	}
	o.state.Index = s.IndexOf(o.key)
	if o.state.Index.IsNone() {
		o.Reset()
	}
}

// Update evaluates the overlay for the active marker m at index active, whose time is
// mt, at playback time t. The overlay is visible while mt <= t <= mt+displayTime.
// The text is only read again when the active index differs from the one last shown.
// Reports whether the state changed.
func (o *Overlay) Update(active Index, m *Marker, mt, t, displayTime float64, text TextAccessor) bool {
	if active.IsNone() || m == nil || t < mt || t > mt+displayTime {
		if o.state.Visible || !o.state.Index.IsNone() {
			return o.Reset()
		}
		return false
	}

	prev := o.state
	if active != o.state.Index {
		if text == nil {
			text = DefaultOverlayText
		}
		o.state.Text = text.MarkerText(m)
		o.state.Index = active
		o.key = m.Key
	}
	o.state.Visible = true
	return prev != o.state
}

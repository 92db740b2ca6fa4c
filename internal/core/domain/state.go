package domain

// ScreenState is everything the map screen renders.
type ScreenState struct {
	Region       Region       `json:"region"`
	Marks        []Mark       `json:"marks"`
	ErrorMessage string       `json:"error_message,omitempty"`
	DialogOpen   bool         `json:"dialog_open"`
	Pending      *PendingMark `json:"pending,omitempty"`
}

// VisibleMarks returns the marks that fall inside the current region.
func (s ScreenState) VisibleMarks() []Mark {
	b := s.Region.Bounds()
	var out []Mark
	for _, m := range s.Marks {
		if b.Contains(m.Coordinate) {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a copy that shares no slices or pointers with s.
func (s ScreenState) Clone() ScreenState {
	out := s
	if s.Marks != nil {
		out.Marks = make([]Mark, len(s.Marks))
		copy(out.Marks, s.Marks)
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}

package flow

import "errors"

var ErrEmptySelection = errors.New("no distances selected")

// Toggle flips the selection of catalog entry i. Locked entries are
// left alone; the return value tells the caller which case it was.
func (s *Session) Toggle(i int) (locked bool) {
	if i < 0 || i >= len(s.Distances) {
		return false
	}
	if s.Locked[i] {
		return true
	}
	s.Selected[i] = !s.Selected[i]
	return false
}

// Confirm freezes the current selection into the negotiation order and
// moves the dialog to the time stage. An empty selection is refused and
// the session is left exactly as it was.
func (s *Session) Confirm() error {
	var order []int
	for i, sel := range s.Selected {
		if sel {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return ErrEmptySelection
	}
	s.Order = order
	s.Cursor = 0
	s.Stage = StageTime
	return nil
}

// Bypass short-circuits selection for competitions with one distance or
// none: the single entry is selected and confirmed in one step. Returns
// false when there is a real choice to make, or when the only entry is
// already locked.
func (s *Session) Bypass() bool {
	if len(s.Distances) > 1 {
		return false
	}
	if s.Locked[0] {
		return false
	}
	s.Selected[0] = true
	return s.Confirm() == nil
}

// SelectedCount is how many entries the actor has picked so far.
func (s *Session) SelectedCount() int {
	n := 0
	for _, sel := range s.Selected {
		if sel {
			n++
		}
	}
	return n
}

package flow

import (
	"running-bot/internal/models"
	"running-bot/internal/timefmt"
)

// Current returns the distance the dialog is asking a target time for.
// ok is false once every selected distance has been visited.
func (s *Session) Current() (models.Distance, bool) {
	if s.Stage != StageTime || s.Cursor >= len(s.Order) {
		return models.Distance{}, false
	}
	return s.Distances[s.Order[s.Cursor]], true
}

// EnterTime records a target time for the current distance and advances.
// The raw input is validated and normalized; a bad format returns
// timefmt.ErrBadFormat and the cursor stays put.
func (s *Session) EnterTime(raw string) error {
	if _, ok := s.Current(); !ok {
		return nil
	}
	norm, err := timefmt.Normalize(raw)
	if err != nil {
		return err
	}
	s.Times[s.Order[s.Cursor]] = &norm
	s.advance()
	return nil
}

// Skip leaves the current distance without a target time and advances.
func (s *Session) Skip() {
	if _, ok := s.Current(); !ok {
		return
	}
	s.Times[s.Order[s.Cursor]] = nil
	s.advance()
}

// Back steps to the previous distance, discarding its captured time so
// it can be re-entered. From the first distance it drops back to the
// selection stage and reports false.
func (s *Session) Back() bool {
	if s.Stage != StageTime {
		return false
	}
	if s.Cursor == 0 {
		s.Stage = StageSelect
		s.Order = nil
		return false
	}
	s.Cursor--
	s.Times[s.Order[s.Cursor]] = nil
	return true
}

// Done reports whether every selected distance has been visited.
func (s *Session) Done() bool {
	return s.Stage == StageDone
}

func (s *Session) advance() {
	s.Cursor++
	if s.Cursor >= len(s.Order) {
		s.Stage = StageDone
	}
}

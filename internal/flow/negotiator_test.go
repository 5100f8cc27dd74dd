package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"running-bot/internal/timefmt"
)

func timeSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(KindSelf, 100, 0, testComp(), nil)
	s.Toggle(0)
	s.Toggle(1)
	require.NoError(t, s.Confirm())
	return s
}

func TestNegotiationEnterAndSkip(t *testing.T) {
	s := timeSession(t)

	d, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, "Марафон", d.Label)

	require.NoError(t, s.EnterTime("03:30:00"))
	require.Equal(t, "3:30:00", *s.Times[0])

	d, ok = s.Current()
	require.True(t, ok)
	require.Equal(t, "Полумарафон", d.Label)

	s.Skip()
	require.Nil(t, s.Times[1])
	require.True(t, s.Done())

	_, ok = s.Current()
	require.False(t, ok)
}

func TestNegotiationBadTimeKeepsCursor(t *testing.T) {
	s := timeSession(t)

	err := s.EnterTime("marathon pace")
	require.ErrorIs(t, err, timefmt.ErrBadFormat)

	d, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, "Марафон", d.Label)
	require.Nil(t, s.Times[0])
}

func TestNegotiationBackClearsPreviousTime(t *testing.T) {
	s := timeSession(t)

	require.NoError(t, s.EnterTime("3:30:00"))
	require.True(t, s.Back())

	d, ok := s.Current()
	require.True(t, ok)
	require.Equal(t, "Марафон", d.Label)
	require.Nil(t, s.Times[0])
}

func TestNegotiationBackFromFirstReopensSelector(t *testing.T) {
	s := timeSession(t)

	require.False(t, s.Back())
	require.Equal(t, StageSelect, s.Stage)
	require.Nil(t, s.Order)
	// the selection itself is preserved
	require.True(t, s.Selected[0])
	require.True(t, s.Selected[1])
}

package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"running-bot/internal/models"
)

func testComp() *models.Competition {
	return &models.Competition{
		ID:   1,
		Name: "Казанский марафон",
		Distances: []models.Distance{
			{Value: 42.2, Label: "Марафон"},
			{Value: 21.1, Label: "Полумарафон"},
			{Value: 10, Label: "10 км"},
		},
	}
}

func TestNewSessionLocksRegisteredDistances(t *testing.T) {
	existing := []models.Registration{
		{Distance: 21.1, DistanceLabel: "Полумарафон", Status: models.StatusRegistered},
	}
	s := NewSession(KindSelf, 100, 0, testComp(), existing)
	require.Equal(t, []bool{false, true, false}, s.Locked)
	require.Equal(t, StageSelect, s.Stage)
}

func TestPendingRowsDoNotLock(t *testing.T) {
	pending := models.ProposalPending
	coach := int64(777)
	existing := []models.Registration{
		{Distance: 21.1, DistanceLabel: "Полумарафон", Status: models.StatusRegistered,
			ProposalStatus: &pending, ProposedBy: &coach},
	}
	s := NewSession(KindSelf, 100, 0, testComp(), existing)
	require.Equal(t, []bool{false, false, false}, s.Locked)
}

func TestToggleLockedIsNoOp(t *testing.T) {
	existing := []models.Registration{
		{Distance: 42.2, DistanceLabel: "Марафон", Status: models.StatusRegistered},
	}
	s := NewSession(KindSelf, 100, 0, testComp(), existing)

	locked := s.Toggle(0)
	require.True(t, locked)
	require.False(t, s.Selected[0])

	locked = s.Toggle(1)
	require.False(t, locked)
	require.True(t, s.Selected[1])

	// toggling again deselects
	s.Toggle(1)
	require.False(t, s.Selected[1])
}

func TestConfirmEmptySelectionLeavesSessionUntouched(t *testing.T) {
	s := NewSession(KindSelf, 100, 0, testComp(), nil)

	err := s.Confirm()
	require.ErrorIs(t, err, ErrEmptySelection)
	require.Equal(t, StageSelect, s.Stage)
	require.Nil(t, s.Order)

	s.Toggle(2)
	require.NoError(t, s.Confirm())
	require.Equal(t, StageTime, s.Stage)
	require.Equal(t, []int{2}, s.Order)
}

func TestBypassSingleDistance(t *testing.T) {
	comp := &models.Competition{ID: 2, Name: "Парковый забег",
		Distances: []models.Distance{{Value: 5, Label: "5 км"}}}
	s := NewSession(KindSelf, 100, 0, comp, nil)
	require.True(t, s.Bypass())
	require.Equal(t, StageTime, s.Stage)
	require.Equal(t, []int{0}, s.Order)
}

func TestBypassNoDistancesImpliesOneEntry(t *testing.T) {
	comp := &models.Competition{ID: 3, Name: "Клубная тренировка"}
	s := NewSession(KindSelf, 100, 0, comp, nil)
	require.Len(t, s.Distances, 1)
	require.Zero(t, s.Distances[0].Value)
	require.Empty(t, s.Distances[0].Label)
	require.True(t, s.Bypass())
}

func TestBypassLockedSingleDistance(t *testing.T) {
	comp := &models.Competition{ID: 4, Name: "Парковый забег",
		Distances: []models.Distance{{Value: 5, Label: "5 км"}}}
	existing := []models.Registration{
		{Distance: 5, DistanceLabel: "5 км", Status: models.StatusRegistered},
	}
	s := NewSession(KindSelf, 100, 0, comp, existing)
	require.False(t, s.Bypass())
}

func TestBypassRefusesRealChoice(t *testing.T) {
	s := NewSession(KindSelf, 100, 0, testComp(), nil)
	require.False(t, s.Bypass())
}

func TestMatchCatalogTolerance(t *testing.T) {
	distances := []models.Distance{{Value: 10, Label: "10 км"}}

	d, ok := MatchCatalog(distances, 10.004)
	require.True(t, ok)
	require.Equal(t, "10 км", d.Label)

	_, ok = MatchCatalog(distances, 10.02)
	require.False(t, ok)
}

func TestSessionMarshalRoundTrip(t *testing.T) {
	s := NewSession(KindCoach, 100, 777, testComp(), nil)
	s.Toggle(0)
	s.Toggle(2)
	require.NoError(t, s.Confirm())

	got, err := UnmarshalSession(s.Marshal())
	require.NoError(t, err)
	require.Equal(t, s, got)
}

package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"running-bot/internal/models"
)

func TestUpsertRegistrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-1")

	reg := models.Registration{
		UserID:        100,
		CompetitionID: compID,
		Distance:      21.1,
		DistanceLabel: "Полумарафон",
		TargetTime:    strPtr("1:45:00"),
		Status:        models.StatusRegistered,
	}
	id1, err := s.UpsertRegistration(reg)
	require.NoError(t, err)

	reg.TargetTime = strPtr("1:40:00")
	id2, err := s.UpsertRegistration(reg)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	regs, err := s.ListUserCompetitionRegistrations(100, compID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, "1:40:00", *regs[0].TargetTime)
}

func TestUpsertRegistrationConcurrentSameKey(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-2")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertRegistration(models.Registration{
				UserID:        100,
				CompetitionID: compID,
				Distance:      10,
				DistanceLabel: "10 км",
				Status:        models.StatusRegistered,
			})
			if err != nil {
				t.Errorf("upsert: %v", err)
			}
		}()
	}
	wg.Wait()

	regs, err := s.ListUserCompetitionRegistrations(100, compID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
}

func TestUpsertRegistrationEmptyLabelMatchesOnValue(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-3")

	_, err := s.UpsertRegistration(models.Registration{
		UserID:        100,
		CompetitionID: compID,
		Distance:      5,
		DistanceLabel: "5 км",
		Status:        models.StatusRegistered,
	})
	require.NoError(t, err)

	// a labelless write for the same value refreshes that row instead of
	// creating a second one
	_, err = s.UpsertRegistration(models.Registration{
		UserID:        100,
		CompetitionID: compID,
		Distance:      5,
		TargetTime:    strPtr("25:00"),
		Status:        models.StatusRegistered,
	})
	require.NoError(t, err)

	regs, err := s.ListUserCompetitionRegistrations(100, compID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, "5 км", regs[0].DistanceLabel)
	require.Equal(t, "25:00", *regs[0].TargetTime)
}

func TestUpsertCoachOverSelfKeepsOneRow(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-4")

	_, err := s.UpsertRegistration(models.Registration{
		UserID:        100,
		CompetitionID: compID,
		Distance:      42.2,
		DistanceLabel: "Марафон",
		Status:        models.StatusRegistered,
	})
	require.NoError(t, err)

	_, err = s.UpsertRegistration(pendingReg(100, compID, 777, 42.2, "Марафон", strPtr("3:30:00")))
	require.NoError(t, err)

	regs, err := s.ListUserCompetitionRegistrations(100, compID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.True(t, regs[0].Pending())
	require.Equal(t, int64(777), *regs[0].ProposedBy)
}

func TestDeleteRegistration(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-5")

	_, err := s.UpsertRegistration(models.Registration{
		UserID:        100,
		CompetitionID: compID,
		Distance:      10,
		DistanceLabel: "10 км",
		Status:        models.StatusRegistered,
	})
	require.NoError(t, err)

	ok, err := s.DeleteRegistration(100, compID, 10, "10 км")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.DeleteRegistration(100, compID, 10, "10 км")
	require.NoError(t, err)
	require.False(t, ok)

	regs, err := s.ListUserCompetitionRegistrations(100, compID)
	require.NoError(t, err)
	require.Empty(t, regs)
}

func TestAcceptProposalGuarded(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-6")

	id, err := s.UpsertRegistration(pendingReg(100, compID, 777, 21.1, "Полумарафон", strPtr("1:45:00")))
	require.NoError(t, err)

	ok, err := s.AcceptProposal(id)
	require.NoError(t, err)
	require.True(t, ok)

	// the second decision loses
	ok, err = s.AcceptProposal(id)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = s.RejectProposal(id)
	require.NoError(t, err)
	require.False(t, ok)

	regs, err := s.ListUserCompetitionRegistrations(100, compID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.False(t, regs[0].Pending())
	require.Equal(t, models.StatusRegistered, regs[0].Status)
	require.Equal(t, "1:45:00", *regs[0].TargetTime)
}

func TestRejectProposalLeavesNoTrace(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-7")

	id, err := s.UpsertRegistration(pendingReg(100, compID, 777, 21.1, "Полумарафон", nil))
	require.NoError(t, err)

	ok, err := s.RejectProposal(id)
	require.NoError(t, err)
	require.True(t, ok)

	regs, err := s.ListUserCompetitionRegistrations(100, compID)
	require.NoError(t, err)
	require.Empty(t, regs)

	// a reject after the row is gone is a no-op
	ok, err = s.RejectProposal(id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFindPendingByKeyAndNearValue(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-8")

	_, err := s.UpsertRegistration(pendingReg(100, compID, 777, 42.2, "Марафон", nil))
	require.NoError(t, err)
	id2, err := s.UpsertRegistration(pendingReg(100, compID, 777, 42.2, "Классика", nil))
	require.NoError(t, err)

	reg, err := s.FindPendingByKey(100, compID, 777, 42.2, "Марафон")
	require.NoError(t, err)
	require.NotNil(t, reg)
	require.Equal(t, "Марафон", reg.DistanceLabel)

	// near-value fallback picks the most recent row when several share
	// the value
	reg, err = s.FindPendingNearValue(100, compID, 777, 42.195)
	require.NoError(t, err)
	require.NotNil(t, reg)
	require.Equal(t, id2, reg.ID)

	// another coach's proposal stays invisible
	reg, err = s.FindPendingByKey(100, compID, 888, 42.2, "Марафон")
	require.NoError(t, err)
	require.Nil(t, reg)

	reg, err = s.FindPendingNearValue(100, compID, 777, 10)
	require.NoError(t, err)
	require.Nil(t, reg)
}

func TestExpireStaleProposals(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-9")

	_, err := s.UpsertRegistration(pendingReg(100, compID, 777, 21.1, "Полумарафон", nil))
	require.NoError(t, err)
	_, err = s.UpsertRegistration(models.Registration{
		UserID:        100,
		CompetitionID: compID,
		Distance:      10,
		DistanceLabel: "10 км",
		Status:        models.StatusRegistered,
	})
	require.NoError(t, err)

	// cutoff in the past removes nothing
	n, err := s.ExpireStaleProposals(time.Now().UTC().Add(-time.Hour).Format(time.RFC3339))
	require.NoError(t, err)
	require.Zero(t, n)

	// cutoff in the future sweeps the pending row, never the registered one
	n, err = s.ExpireStaleProposals(time.Now().UTC().Add(time.Hour).Format(time.RFC3339))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	regs, err := s.ListUserCompetitionRegistrations(100, compID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, "10 км", regs[0].DistanceLabel)
}

func TestUpdateTargetTime(t *testing.T) {
	s := newTestStore(t)
	compID := testCompetition(t, s, "race-10")

	id, err := s.UpsertRegistration(models.Registration{
		UserID:        100,
		CompetitionID: compID,
		Distance:      10,
		DistanceLabel: "10 км",
		Status:        models.StatusRegistered,
	})
	require.NoError(t, err)

	ok, err := s.UpdateTargetTime(id, strPtr("42:00"))
	require.NoError(t, err)
	require.True(t, ok)

	regs, err := s.ListUserCompetitionRegistrations(100, compID)
	require.NoError(t, err)
	require.Equal(t, "42:00", *regs[0].TargetTime)

	ok, err = s.UpdateTargetTime(9999, strPtr("42:00"))
	require.NoError(t, err)
	require.False(t, ok)
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"running-bot/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCompetition(t *testing.T, s *Store, key string) int64 {
	t.Helper()
	id, _, err := s.GetOrCreateCompetition(models.Competition{
		SourceKey: key,
		Name:      "Тестовый марафон",
		Date:      "2026-10-04",
		City:      "Казань",
		Distances: []models.Distance{
			{Value: 42.2, Label: "Марафон"},
			{Value: 21.1, Label: "Полумарафон"},
			{Value: 10, Label: "10 км"},
		},
	})
	require.NoError(t, err)
	return id
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func pendingReg(userID, compID, coachID int64, distance float64, label string, target *string) models.Registration {
	pending := models.ProposalPending
	return models.Registration{
		UserID:         userID,
		CompetitionID:  compID,
		Distance:       distance,
		DistanceLabel:  label,
		TargetTime:     target,
		Status:         models.StatusRegistered,
		ProposalStatus: &pending,
		ProposedBy:     int64Ptr(coachID),
	}
}

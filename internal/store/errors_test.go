package store

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"running-bot/internal/models"
)

// Persistence failures must surface to the caller instead of being
// swallowed; these paths are awkward to hit with a real database.

func TestUpsertRegistrationSurfacesBeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk is gone")
	mock.ExpectBegin().WillReturnError(boom)

	s := NewWithDB(db)
	_, err = s.UpsertRegistration(models.Registration{
		UserID:        1,
		CompetitionID: 1,
		Distance:      10,
		DistanceLabel: "10 км",
		Status:        models.StatusRegistered,
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateCompetitionSurfacesInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("database is locked")
	mock.ExpectExec("INSERT INTO competitions").WillReturnError(boom)

	s := NewWithDB(db)
	_, _, err = s.GetOrCreateCompetition(models.Competition{SourceKey: "k", Name: "n"})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

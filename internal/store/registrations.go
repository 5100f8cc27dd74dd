package store

import (
	"database/sql"
	"fmt"

	"running-bot/internal/models"
	"running-bot/internal/util"
)

const regColumns = `id, user_id, competition_id, distance, distance_label,
	target_time, status, proposal_status, proposed_by, registered_at`

// UpsertRegistration creates or refreshes the row for the registration's
// natural key (user, competition, distance, label) in one transaction.
// A registration without a chosen distance carries the empty label and
// matches an existing row on the numeric value alone. Returns the row id.
func (s *Store) UpsertRegistration(reg models.Registration) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if reg.DistanceLabel != "" {
		err = tx.QueryRow(`
			SELECT id FROM registrations
			WHERE user_id = ? AND competition_id = ? AND distance = ? AND distance_label = ?`,
			reg.UserID, reg.CompetitionID, reg.Distance, reg.DistanceLabel,
		).Scan(&id)
	} else {
		err = tx.QueryRow(`
			SELECT id FROM registrations
			WHERE user_id = ? AND competition_id = ? AND distance = ?`,
			reg.UserID, reg.CompetitionID, reg.Distance,
		).Scan(&id)
	}

	switch err {
	case nil:
		_, err = tx.Exec(`
			UPDATE registrations
			SET target_time = ?, status = ?, proposal_status = ?, proposed_by = ?
			WHERE id = ?`,
			reg.TargetTime, reg.Status, reg.ProposalStatus, reg.ProposedBy, id,
		)
		if err != nil {
			return 0, fmt.Errorf("update registration %d: %w", id, err)
		}
	case sql.ErrNoRows:
		// the unique constraint absorbs a racing insert of the same key
		res, ierr := tx.Exec(`
			INSERT INTO registrations
				(user_id, competition_id, distance, distance_label,
				 target_time, status, proposal_status, proposed_by, registered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, competition_id, distance, distance_label) DO UPDATE SET
				target_time = excluded.target_time,
				status = excluded.status,
				proposal_status = excluded.proposal_status,
				proposed_by = excluded.proposed_by`,
			reg.UserID, reg.CompetitionID, reg.Distance, reg.DistanceLabel,
			reg.TargetTime, reg.Status, reg.ProposalStatus, reg.ProposedBy, util.NowISO(),
		)
		if ierr != nil {
			return 0, fmt.Errorf("insert registration: %w", ierr)
		}
		id, _ = res.LastInsertId()
	default:
		return 0, fmt.Errorf("lookup registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// DeleteRegistration removes the row for the natural key. Reports whether
// anything was deleted.
func (s *Store) DeleteRegistration(userID, compID int64, distance float64, label string) (bool, error) {
	res, err := s.db.Exec(`
		DELETE FROM registrations
		WHERE user_id = ? AND competition_id = ? AND distance = ? AND distance_label = ?`,
		userID, compID, distance, label,
	)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) DeleteRegistrationByID(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM registrations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete registration %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListUserCompetitionRegistrations returns the user's rows for one
// competition, pending proposals included, oldest first.
func (s *Store) ListUserCompetitionRegistrations(userID, compID int64) ([]models.Registration, error) {
	rows, err := s.db.Query(`
		SELECT `+regColumns+` FROM registrations
		WHERE user_id = ? AND competition_id = ?
		ORDER BY registered_at, id`,
		userID, compID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return collectRegistrations(rows)
}

func (s *Store) ListUserRegistrations(userID int64) ([]models.Registration, error) {
	rows, err := s.db.Query(`
		SELECT `+regColumns+` FROM registrations
		WHERE user_id = ?
		ORDER BY competition_id, registered_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return collectRegistrations(rows)
}

func (s *Store) ListCompetitionRegistrations(compID int64) ([]models.Registration, error) {
	rows, err := s.db.Query(`
		SELECT `+regColumns+` FROM registrations
		WHERE competition_id = ?
		ORDER BY user_id, registered_at, id`,
		compID,
	)
	if err != nil {
		return nil, fmt.Errorf("list competition registrations: %w", err)
	}
	return collectRegistrations(rows)
}

// FindPendingByKey returns the pending proposal with the exact natural
// key from the given coach, or nil.
func (s *Store) FindPendingByKey(userID, compID, coachID int64, distance float64, label string) (*models.Registration, error) {
	row := s.db.QueryRow(`
		SELECT `+regColumns+` FROM registrations
		WHERE user_id = ? AND competition_id = ? AND proposed_by = ?
		  AND distance = ? AND distance_label = ?
		  AND proposal_status = 'pending'`,
		userID, compID, coachID, distance, label,
	)
	return oneRegistration(row)
}

// FindPendingNearValue is the fallback when the distance catalog cannot
// recover a label: it matches pending proposals on the numeric value
// within 0.01 km and picks the most recent row, newest id winning ties.
func (s *Store) FindPendingNearValue(userID, compID, coachID int64, distance float64) (*models.Registration, error) {
	row := s.db.QueryRow(`
		SELECT `+regColumns+` FROM registrations
		WHERE user_id = ? AND competition_id = ? AND proposed_by = ?
		  AND ABS(distance - ?) <= 0.01
		  AND proposal_status = 'pending'
		ORDER BY registered_at DESC, id DESC
		LIMIT 1`,
		userID, compID, coachID, distance,
	)
	return oneRegistration(row)
}

// AcceptProposal turns a pending proposal into a plain registration.
// The guard on proposal_status makes concurrent decisions on the same
// row resolve to exactly one winner; the loser sees false.
func (s *Store) AcceptProposal(id int64) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE registrations
		SET proposal_status = NULL, status = ?
		WHERE id = ? AND proposal_status = 'pending'`,
		models.StatusRegistered, id,
	)
	if err != nil {
		return false, fmt.Errorf("accept proposal %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RejectProposal deletes a pending proposal outright. Same guard as
// AcceptProposal; rejected proposals leave no trace.
func (s *Store) RejectProposal(id int64) (bool, error) {
	res, err := s.db.Exec(`
		DELETE FROM registrations WHERE id = ? AND proposal_status = 'pending'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("reject proposal %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) UpdateTargetTime(id int64, target *string) (bool, error) {
	res, err := s.db.Exec(`UPDATE registrations SET target_time = ? WHERE id = ?`, target, id)
	if err != nil {
		return false, fmt.Errorf("update target time %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ExpireStaleProposals drops pending proposals created before the cutoff
// (RFC3339, UTC). Returns how many rows went away.
func (s *Store) ExpireStaleProposals(cutoff string) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM registrations
		WHERE proposal_status = 'pending' AND registered_at < ?`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("expire proposals: %w", err)
	}
	return res.RowsAffected()
}

func collectRegistrations(rows *sql.Rows) ([]models.Registration, error) {
	defer rows.Close()
	var out []models.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func oneRegistration(row *sql.Row) (*models.Registration, error) {
	r, err := scanRegistration(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	return r, nil
}

func scanRegistration(r rowScanner) (*models.Registration, error) {
	var reg models.Registration
	err := r.Scan(
		&reg.ID, &reg.UserID, &reg.CompetitionID, &reg.Distance, &reg.DistanceLabel,
		&reg.TargetTime, &reg.Status, &reg.ProposalStatus, &reg.ProposedBy, &reg.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

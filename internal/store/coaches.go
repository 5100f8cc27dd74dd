package store

import (
	"database/sql"
	"fmt"

	"running-bot/internal/models"
	"running-bot/internal/util"
)

func (s *Store) CreateInvite(code string, coachID int64) error {
	_, err := s.db.Exec(`
		INSERT INTO coach_invites (code, coach_id, created_at) VALUES (?, ?, ?)`,
		code, coachID, util.NowISO(),
	)
	if err != nil {
		return fmt.Errorf("create invite: %w", err)
	}
	return nil
}

// ResolveInvite returns the coach behind the code, or 0 when unknown.
func (s *Store) ResolveInvite(code string) (int64, error) {
	var coachID int64
	err := s.db.QueryRow(`SELECT coach_id FROM coach_invites WHERE code = ?`, code).Scan(&coachID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolve invite: %w", err)
	}
	return coachID, nil
}

func (s *Store) LinkStudent(coachID, studentID int64, name string) error {
	_, err := s.db.Exec(`
		INSERT INTO coach_students (coach_id, student_id, student_name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (coach_id, student_id) DO NOTHING`,
		coachID, studentID, name, util.NowISO(),
	)
	if err != nil {
		return fmt.Errorf("link student: %w", err)
	}
	return nil
}

func (s *Store) CanCoachAccessStudent(coachID, studentID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM coach_students WHERE coach_id = ? AND student_id = ?`,
		coachID, studentID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check coach access: %w", err)
	}
	return true, nil
}

func (s *Store) ListStudents(coachID int64) ([]models.Student, error) {
	rows, err := s.db.Query(`
		SELECT student_id, student_name, created_at
		FROM coach_students WHERE coach_id = ? ORDER BY created_at, student_id`,
		coachID,
	)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []models.Student
	for rows.Next() {
		var st models.Student
		if err := rows.Scan(&st.TgID, &st.Name, &st.LinkedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

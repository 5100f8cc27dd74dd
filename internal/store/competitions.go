package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"running-bot/internal/models"
	"running-bot/internal/util"
)

// GetOrCreateCompetition inserts the competition unless a row with the
// same source key already exists, and returns the surviving row's id.
// Concurrent callers with the same key converge on one row. The distance
// catalog of an existing row is never overwritten.
func (s *Store) GetOrCreateCompetition(c models.Competition) (int64, bool, error) {
	distances, err := json.Marshal(c.Distances)
	if err != nil {
		return 0, false, fmt.Errorf("encode distances: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO competitions (source_key, name, date, city, distances, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_key) DO NOTHING`,
		c.SourceKey, c.Name, c.Date, c.City, string(distances), util.NowISO(),
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert competition: %w", err)
	}
	created, _ := res.RowsAffected()

	var id int64
	err = s.db.QueryRow(`SELECT id FROM competitions WHERE source_key = ?`, c.SourceKey).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("lookup competition %q: %w", c.SourceKey, err)
	}
	return id, created > 0, nil
}

func (s *Store) GetCompetition(id int64) (*models.Competition, error) {
	row := s.db.QueryRow(`
		SELECT id, source_key, name, date, city, distances, created_at
		FROM competitions WHERE id = ?`, id)
	c, err := scanCompetition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get competition %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) ListCompetitions() ([]models.Competition, error) {
	rows, err := s.db.Query(`
		SELECT id, source_key, name, date, city, distances, created_at
		FROM competitions ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	defer rows.Close()

	var out []models.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan competition: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompetition(r rowScanner) (*models.Competition, error) {
	var c models.Competition
	var distances string
	if err := r.Scan(&c.ID, &c.SourceKey, &c.Name, &c.Date, &c.City, &distances, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(distances), &c.Distances); err != nil {
		return nil, fmt.Errorf("decode distances: %w", err)
	}
	return &c, nil
}

package store

import (
	"database/sql"
	"fmt"

	"running-bot/internal/util"
)

// Flow sessions live in the database so an in-flight dialog survives a
// restart. One session per (chat, user); data is an opaque JSON blob
// owned by the flow package.

func (s *Store) LoadSession(chatID, userID int64) (flow string, data []byte, err error) {
	var raw string
	err = s.db.QueryRow(`
		SELECT flow, data FROM flow_sessions WHERE chat_id = ? AND user_id = ?`,
		chatID, userID,
	).Scan(&flow, &raw)
	if err == sql.ErrNoRows {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("load session: %w", err)
	}
	return flow, []byte(raw), nil
}

func (s *Store) SaveSession(chatID, userID int64, flow string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO flow_sessions (chat_id, user_id, flow, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (chat_id, user_id) DO UPDATE SET
			flow = excluded.flow,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		chatID, userID, flow, string(data), util.NowISO(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) ClearSession(chatID, userID int64) error {
	_, err := s.db.Exec(`
		DELETE FROM flow_sessions WHERE chat_id = ? AND user_id = ?`,
		chatID, userID,
	)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

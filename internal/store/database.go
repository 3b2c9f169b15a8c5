package store

import (
	"fmt"

	"github.com/insightloop/insightloop-backend/internal/db"
)

// DatabaseStore archives chat transcripts in PostgreSQL. The in-memory
// store stays authoritative for reads within a session; the database keeps
// turns across restarts.
type DatabaseStore struct {
	db *db.DB
}

func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

// SaveMessage appends one message to the archived transcript.
func (ds *DatabaseStore) SaveMessage(sessionID string, personaID int, msg Message) error {
	if sessionID == "" || personaID <= 0 || msg.ID == "" {
		return fmt.Errorf("session_id, persona_id, and message id are required")
	}
	query := `
		INSERT INTO messages (id, session_id, persona_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := ds.db.Exec(query, msg.ID, sessionID, personaID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// History returns the archived transcript for one persona bucket, oldest
// first, capped at limit when limit > 0.
func (ds *DatabaseStore) History(sessionID string, personaID int, limit int) ([]Message, error) {
	if sessionID == "" || personaID <= 0 {
		return nil, fmt.Errorf("session_id and persona_id are required")
	}
	query := `
		SELECT id, role, content, created_at
		FROM messages
		WHERE session_id = $1 AND persona_id = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := ds.db.Query(query, sessionID, personaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ClearChat drops the archived transcript for one persona bucket.
func (ds *DatabaseStore) ClearChat(sessionID string, personaID int) error {
	if sessionID == "" || personaID <= 0 {
		return fmt.Errorf("session_id and persona_id are required")
	}
	_, err := ds.db.Exec(`DELETE FROM messages WHERE session_id = $1 AND persona_id = $2`, sessionID, personaID)
	if err != nil {
		return fmt.Errorf("failed to clear chat: %w", err)
	}
	return nil
}

package store

import (
	"fmt"
	"log/slog"
	"time"
)

// LogActivity appends to the activity log. Best effort: failures are
// logged and swallowed so bookkeeping never breaks message handling.
func (s *Store) LogActivity(eventType, agentID, channelID, description string) {
	_, err := s.db.Exec(`INSERT INTO activity_log (event_type, agent_id, channel_id, description, timestamp)
		VALUES (?, ?, ?, ?, ?)`, eventType, agentID, channelID, description, time.Now().UTC())
	if err != nil {
		slog.Warn("activity log write failed", "event", eventType, "error", err)
	}
}

// RecentActivity returns the newest limit activity rows.
func (s *Store) RecentActivity(limit int) ([]ActivityEvent, error) {
	rows, err := s.db.Query(`SELECT id, event_type, agent_id, channel_id, description, timestamp
		FROM activity_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()
	var out []ActivityEvent
	for rows.Next() {
		var ev ActivityEvent
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.AgentID, &ev.ChannelID,
			&ev.Description, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

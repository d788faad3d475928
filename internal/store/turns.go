package store

import (
	"database/sql"
	"fmt"
	"time"
)

const turnCols = `id, channel_id, sender_id, sender_name, content, is_agent, agent_id, dedup_id, timestamp`

func scanTurn(row interface{ Scan(...any) error }) (Turn, error) {
	var t Turn
	var dedup sql.NullString
	err := row.Scan(&t.ID, &t.ChannelID, &t.SenderID, &t.SenderName, &t.Content,
		&t.IsAgent, &t.AgentID, &dedup, &t.Timestamp)
	t.DedupID = dedup.String
	return t, err
}

// AddTurn appends a turn to the channel's window. If a turn with the same
// (channel_id, dedup_id) already exists, the stored row is returned and
// created is false. After an insert the window is pruned: once the channel
// holds more than 2*window turns, only the newest window remain.
func (s *Store) AddTurn(t Turn, window int) (Turn, bool, error) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	var dedup any
	if t.DedupID != "" {
		dedup = t.DedupID
	}
	// The conflict clause makes the dedup atomic, so two writers racing
	// on the same message both resolve to the stored row.
	res, err := s.db.Exec(`INSERT INTO turns
		(channel_id, sender_id, sender_name, content, is_agent, agent_id, dedup_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, dedup_id) WHERE dedup_id IS NOT NULL DO NOTHING`,
		t.ChannelID, t.SenderID, t.SenderName, t.Content, t.IsAgent, t.AgentID, dedup, t.Timestamp)
	if err != nil {
		return Turn{}, false, fmt.Errorf("insert turn: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		existing, err := scanTurn(s.db.QueryRow(
			`SELECT `+turnCols+` FROM turns WHERE channel_id=? AND dedup_id=?`,
			t.ChannelID, t.DedupID))
		if err != nil {
			return Turn{}, false, fmt.Errorf("load duplicate turn: %w", err)
		}
		return existing, false, nil
	}
	t.ID, _ = res.LastInsertId()

	if window > 0 {
		if err := s.pruneWindow(t.ChannelID, window); err != nil {
			return t, true, err
		}
	}
	return t, true, nil
}

// pruneWindow trims the channel to its newest `window` turns, but only
// once it has grown past twice that size, so prunes stay infrequent.
func (s *Store) pruneWindow(channelID string, window int) error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM turns WHERE channel_id=?`, channelID).
		Scan(&count); err != nil {
		return fmt.Errorf("count turns: %w", err)
	}
	if count <= 2*window {
		return nil
	}
	_, err := s.db.Exec(`DELETE FROM turns WHERE channel_id=? AND id NOT IN
		(SELECT id FROM turns WHERE channel_id=? ORDER BY timestamp DESC, id DESC LIMIT ?)`,
		channelID, channelID, window)
	if err != nil {
		return fmt.Errorf("prune turns: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit newest turns in chronological order.
func (s *Store) RecentTurns(channelID string, limit int) ([]Turn, error) {
	rows, err := s.db.Query(`SELECT `+turnCols+` FROM turns
		WHERE channel_id=? ORDER BY timestamp DESC, id DESC LIMIT ?`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()
	var out []Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountTurns returns the number of stored turns for a channel.
func (s *Store) CountTurns(channelID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM turns WHERE channel_id=?`, channelID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return n, nil
}

// LastTurnAt returns the timestamp of the newest turn in a channel, or
// the zero time when the channel is empty.
func (s *Store) LastTurnAt(channelID string) (time.Time, error) {
	var ts sql.NullTime
	err := s.db.QueryRow(`SELECT MAX(timestamp) FROM turns WHERE channel_id=?`, channelID).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("last turn: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return ts.Time, nil
}

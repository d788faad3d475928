package store

import (
	"database/sql"
	"fmt"
	"time"
)

const slotCols = `id, channel_id, member_id, member_name, slot_type, content,
	valid_from, valid_until, created_at, updated_at`

func scanSlot(row interface{ Scan(...any) error }) (MemberSlot, error) {
	var m MemberSlot
	var from, until sql.NullTime
	err := row.Scan(&m.ID, &m.ChannelID, &m.MemberID, &m.MemberName, &m.SlotType,
		&m.Content, &from, &until, &m.CreatedAt, &m.UpdatedAt)
	if from.Valid {
		m.ValidFrom = &from.Time
	}
	if until.Valid {
		m.ValidUntil = &until.Time
	}
	return m, err
}

// SaveSlot upserts a member memory slot, keyed first by
// (channel, member name, slot type) so renamed or re-identified members
// converge on one row, then by the (channel, member id, slot type)
// uniqueness constraint. Last write wins.
func (s *Store) SaveSlot(m MemberSlot) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(`UPDATE member_slots
		SET member_id=?, content=?, valid_from=?, valid_until=?, updated_at=?
		WHERE channel_id=? AND member_name=? AND slot_type=?`,
		m.MemberID, m.Content, m.ValidFrom, m.ValidUntil, now,
		m.ChannelID, m.MemberName, m.SlotType)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.Exec(`INSERT INTO member_slots
		(channel_id, member_id, member_name, slot_type, content, valid_from, valid_until, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, member_id, slot_type) DO UPDATE SET
			member_name=excluded.member_name,
			content=excluded.content,
			valid_from=excluded.valid_from,
			valid_until=excluded.valid_until,
			updated_at=excluded.updated_at`,
		m.ChannelID, m.MemberID, m.MemberName, m.SlotType, m.Content,
		m.ValidFrom, m.ValidUntil, now, now)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

// DeleteSlot removes a member's slot of the given type. Deleting a
// missing slot is not an error.
func (s *Store) DeleteSlot(channelID, memberName, slotType string) error {
	_, err := s.db.Exec(`DELETE FROM member_slots
		WHERE channel_id=? AND member_name=? AND slot_type=?`,
		channelID, memberName, slotType)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// SlotsForChannel returns every member slot in a channel, grouped by
// member name then slot type.
func (s *Store) SlotsForChannel(channelID string) ([]MemberSlot, error) {
	return s.listSlots(`SELECT `+slotCols+` FROM member_slots
		WHERE channel_id=? ORDER BY member_name, slot_type`, channelID)
}

// SlotsForMember returns one member's slots in a channel.
func (s *Store) SlotsForMember(channelID, memberName string) ([]MemberSlot, error) {
	return s.listSlots(`SELECT `+slotCols+` FROM member_slots
		WHERE channel_id=? AND member_name=? ORDER BY slot_type`, channelID, memberName)
}

func (s *Store) listSlots(query string, args ...any) ([]MemberSlot, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()
	var out []MemberSlot
	for rows.Next() {
		m, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ConsolidateSlots collapses duplicate member slots. For each
// (channel, member name, slot type) only the most recently updated row
// survives, and all of a member's remaining rows are re-pointed at the
// member id that occurs most often across their rows. Returns the number
// of rows deleted.
func (s *Store) ConsolidateSlots() (int, error) {
	res, err := s.db.Exec(`DELETE FROM member_slots WHERE id NOT IN (
		SELECT id FROM member_slots m1 WHERE updated_at = (
			SELECT MAX(m2.updated_at) FROM member_slots m2
			WHERE m2.channel_id = m1.channel_id
			  AND m2.member_name = m1.member_name
			  AND m2.slot_type = m1.slot_type
		)
		GROUP BY channel_id, member_name, slot_type
	)`)
	if err != nil {
		return 0, fmt.Errorf("consolidate delete: %w", err)
	}
	deleted, _ := res.RowsAffected()

	_, err = s.db.Exec(`UPDATE member_slots SET member_id = (
		SELECT m2.member_id FROM member_slots m2
		WHERE m2.channel_id = member_slots.channel_id
		  AND m2.member_name = member_slots.member_name
		GROUP BY m2.member_id ORDER BY COUNT(*) DESC, m2.member_id LIMIT 1
	)`)
	if err != nil {
		return int(deleted), fmt.Errorf("consolidate repoint: %w", err)
	}
	return int(deleted), nil
}

// LastScanAt returns the memory scanner watermark for a channel, or the
// zero time when the channel has never been scanned.
func (s *Store) LastScanAt(channelID string) (time.Time, error) {
	var ts sql.NullTime
	err := s.db.QueryRow(`SELECT last_scan_at FROM scan_state WHERE channel_id=?`, channelID).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("scan state: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return ts.Time, nil
}

// SetScanState records when a channel was last scanned.
func (s *Store) SetScanState(channelID string, at time.Time) error {
	_, err := s.db.Exec(`INSERT INTO scan_state (channel_id, last_scan_at) VALUES (?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET last_scan_at=excluded.last_scan_at`,
		channelID, at)
	if err != nil {
		return fmt.Errorf("set scan state: %w", err)
	}
	return nil
}

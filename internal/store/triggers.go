package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrTriggerQuota is returned when an agent already holds its maximum
// number of active triggers.
var ErrTriggerQuota = errors.New("store: trigger quota reached")

const triggerCols = `id, agent_id, channel_id, kind, name, content, mode,
	scheduled_time, pattern, interval, day_of_week, day_of_month, time_of_day,
	timezone, end_date, enabled, next_fire_time, last_fired_at, fire_count,
	created_via, created_at, updated_at`

func scanTrigger(row interface{ Scan(...any) error }) (Trigger, error) {
	var t Trigger
	var sched, end, next, last sql.NullTime
	var dow, dom sql.NullInt64
	err := row.Scan(&t.ID, &t.AgentID, &t.ChannelID, &t.Kind, &t.Name, &t.Content,
		&t.Mode, &sched, &t.Pattern, &t.Interval, &dow, &dom, &t.TimeOfDay,
		&t.Timezone, &end, &t.Enabled, &next, &last, &t.FireCount,
		&t.CreatedVia, &t.CreatedAt, &t.UpdatedAt)
	if sched.Valid {
		t.ScheduledTime = &sched.Time
	}
	if end.Valid {
		t.EndDate = &end.Time
	}
	if next.Valid {
		t.NextFireTime = &next.Time
	}
	if last.Valid {
		t.LastFiredAt = &last.Time
	}
	if dow.Valid {
		v := int(dow.Int64)
		t.DayOfWeek = &v
	}
	if dom.Valid {
		v := int(dom.Int64)
		t.DayOfMonth = &v
	}
	return t, err
}

// CreateTrigger inserts a trigger after checking the owning agent's
// quota of enabled triggers.
func (s *Store) CreateTrigger(t Trigger) (Trigger, error) {
	agent, err := s.GetAgent(t.AgentID)
	if err != nil {
		return Trigger{}, err
	}
	count, err := s.ActiveTriggerCount(t.AgentID)
	if err != nil {
		return Trigger{}, err
	}
	if count >= agent.MaxTriggers {
		return Trigger{}, ErrTriggerQuota
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Interval <= 0 {
		t.Interval = 1
	}
	if t.Timezone == "" {
		t.Timezone = "UTC"
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err = s.db.Exec(`INSERT INTO triggers (`+triggerCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AgentID, t.ChannelID, t.Kind, t.Name, t.Content, t.Mode,
		t.ScheduledTime, t.Pattern, t.Interval, intPtr(t.DayOfWeek), intPtr(t.DayOfMonth),
		t.TimeOfDay, t.Timezone, t.EndDate, t.Enabled, t.NextFireTime,
		t.LastFiredAt, t.FireCount, t.CreatedVia, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Trigger{}, fmt.Errorf("create trigger: %w", err)
	}
	return t, nil
}

func intPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// GetTrigger fetches one trigger by id.
func (s *Store) GetTrigger(id string) (Trigger, error) {
	t, err := scanTrigger(s.db.QueryRow(`SELECT `+triggerCols+` FROM triggers WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return Trigger{}, ErrNotFound
	}
	if err != nil {
		return Trigger{}, fmt.Errorf("get trigger: %w", err)
	}
	return t, nil
}

// DueTriggers returns enabled triggers whose next fire time is at or
// before now and whose end date, if any, has not passed, oldest first.
func (s *Store) DueTriggers(now time.Time) ([]Trigger, error) {
	return s.listTriggers(`SELECT `+triggerCols+` FROM triggers
		WHERE enabled=1 AND next_fire_time IS NOT NULL AND next_fire_time <= ?
		AND (end_date IS NULL OR end_date > ?)
		ORDER BY next_fire_time ASC`, now, now)
}

// ListTriggers returns an agent's triggers, newest first.
func (s *Store) ListTriggers(agentID string) ([]Trigger, error) {
	return s.listTriggers(`SELECT `+triggerCols+` FROM triggers
		WHERE agent_id=? ORDER BY created_at DESC`, agentID)
}

func (s *Store) listTriggers(query string, args ...any) ([]Trigger, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	defer rows.Close()
	var out []Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ActiveTriggerCount counts an agent's enabled triggers.
func (s *Store) ActiveTriggerCount(agentID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM triggers WHERE agent_id=? AND enabled=1`,
		agentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count triggers: %w", err)
	}
	return n, nil
}

// MarkTriggerFired records a firing: bumps the fire count, sets the last
// fired time, and installs the next fire time (nil disables the trigger,
// which ends one-time and expired recurrences).
func (s *Store) MarkTriggerFired(id string, firedAt time.Time, next *time.Time) error {
	enabled := next != nil
	res, err := s.db.Exec(`UPDATE triggers SET fire_count = fire_count + 1,
		last_fired_at=?, next_fire_time=?, enabled=?, updated_at=? WHERE id=?`,
		firedAt, next, enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark fired: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTriggerEnabled flips a trigger's enabled flag without touching its
// schedule.
func (s *Store) SetTriggerEnabled(id string, enabled bool) error {
	res, err := s.db.Exec(`UPDATE triggers SET enabled=?, updated_at=? WHERE id=?`,
		enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set trigger enabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTriggerSchedule rewrites a trigger's next fire time.
func (s *Store) UpdateTriggerSchedule(id string, next *time.Time) error {
	res, err := s.db.Exec(`UPDATE triggers SET next_fire_time=?, updated_at=? WHERE id=?`,
		next, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update trigger schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTrigger removes a trigger.
func (s *Store) DeleteTrigger(id string) error {
	res, err := s.db.Exec(`DELETE FROM triggers WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

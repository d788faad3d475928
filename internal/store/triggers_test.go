package store

import (
	"fmt"
	"testing"
	"time"
)

func TestCreateTriggerQuota(t *testing.T) {
	s := openTestStore(t)
	a, err := s.CreateAgent(Agent{Name: "nova", Enabled: true, MaxTriggers: 2})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	c, err := s.CreateChannel(Channel{Name: "general", Enabled: true})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	next := time.Now().UTC().Add(time.Hour)
	for i := 0; i < 2; i++ {
		_, err := s.CreateTrigger(Trigger{
			AgentID: a.ID, ChannelID: c.ID, Kind: TriggerKindReminder,
			Name: fmt.Sprintf("r%d", i), Content: "ping", Mode: TriggerModeOnce,
			Enabled: true, NextFireTime: &next,
		})
		if err != nil {
			t.Fatalf("CreateTrigger %d: %v", i, err)
		}
	}
	_, err = s.CreateTrigger(Trigger{
		AgentID: a.ID, ChannelID: c.ID, Kind: TriggerKindReminder,
		Name: "over", Content: "ping", Mode: TriggerModeOnce,
		Enabled: true, NextFireTime: &next,
	})
	if err != ErrTriggerQuota {
		t.Fatalf("err = %v, want ErrTriggerQuota", err)
	}
}

func TestDueTriggers(t *testing.T) {
	s := openTestStore(t)
	a, c := seedAgentChannel(t, s)

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due, err := s.CreateTrigger(Trigger{
		AgentID: a.ID, ChannelID: c.ID, Kind: TriggerKindReminder,
		Name: "due", Content: "now", Mode: TriggerModeOnce,
		Enabled: true, NextFireTime: &past,
	})
	if err != nil {
		t.Fatalf("CreateTrigger due: %v", err)
	}
	if _, err := s.CreateTrigger(Trigger{
		AgentID: a.ID, ChannelID: c.ID, Kind: TriggerKindReminder,
		Name: "later", Content: "later", Mode: TriggerModeOnce,
		Enabled: true, NextFireTime: &future,
	}); err != nil {
		t.Fatalf("CreateTrigger later: %v", err)
	}

	got, err := s.DueTriggers(now)
	if err != nil {
		t.Fatalf("DueTriggers: %v", err)
	}
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("due = %+v, want just %s", got, due.ID)
	}
}

func TestDueTriggersExcludesPastEndDate(t *testing.T) {
	s := openTestStore(t)
	a, c := seedAgentChannel(t, s)

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	ended := now.Add(-time.Minute)

	// Due on paper, but its end date passed while the process was down.
	if _, err := s.CreateTrigger(Trigger{
		AgentID: a.ID, ChannelID: c.ID, Kind: TriggerKindReminder,
		Name: "expired", Content: "too late", Mode: TriggerModeRecurring,
		Pattern: PatternDaily, Interval: 1,
		Enabled: true, NextFireTime: &past, EndDate: &ended,
	}); err != nil {
		t.Fatalf("CreateTrigger: %v", err)
	}

	got, err := s.DueTriggers(now)
	if err != nil {
		t.Fatalf("DueTriggers: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("due = %+v, want none past the end date", got)
	}
}

func TestMarkTriggerFired(t *testing.T) {
	s := openTestStore(t)
	a, c := seedAgentChannel(t, s)

	past := time.Now().UTC().Add(-time.Minute)
	tr, err := s.CreateTrigger(Trigger{
		AgentID: a.ID, ChannelID: c.ID, Kind: TriggerKindReminder,
		Name: "once", Content: "ping", Mode: TriggerModeOnce,
		Enabled: true, NextFireTime: &past,
	})
	if err != nil {
		t.Fatalf("CreateTrigger: %v", err)
	}

	firedAt := time.Now().UTC()
	if err := s.MarkTriggerFired(tr.ID, firedAt, nil); err != nil {
		t.Fatalf("MarkTriggerFired: %v", err)
	}
	got, err := s.GetTrigger(tr.ID)
	if err != nil {
		t.Fatalf("GetTrigger: %v", err)
	}
	if got.Enabled {
		t.Error("one-time trigger should be disabled after firing")
	}
	if got.FireCount != 1 {
		t.Errorf("FireCount = %d, want 1", got.FireCount)
	}
	if got.NextFireTime != nil {
		t.Errorf("NextFireTime = %v, want nil", got.NextFireTime)
	}

	// Recurring path: a new next fire time keeps it enabled.
	next := firedAt.Add(24 * time.Hour)
	if err := s.MarkTriggerFired(tr.ID, firedAt, &next); err != nil {
		t.Fatalf("MarkTriggerFired recurring: %v", err)
	}
	got, err = s.GetTrigger(tr.ID)
	if err != nil {
		t.Fatalf("GetTrigger: %v", err)
	}
	if !got.Enabled {
		t.Error("trigger with a next fire time should stay enabled")
	}
	if got.FireCount != 2 {
		t.Errorf("FireCount = %d, want 2", got.FireCount)
	}
}

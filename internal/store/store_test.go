package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedAgentChannel(t *testing.T, s *Store) (Agent, Channel) {
	t.Helper()
	a, err := s.CreateAgent(Agent{Name: "nova", Enabled: true, Transport: "signal"})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	c, err := s.CreateChannel(Channel{Name: "general", Enabled: true})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if err := s.AssignAgent(a.ID, c.ID); err != nil {
		t.Fatalf("AssignAgent: %v", err)
	}
	return a, c
}

func TestCreateAgentDefaults(t *testing.T) {
	s := openTestStore(t)
	a, err := s.CreateAgent(Agent{Name: "nova"})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected generated id")
	}
	if a.ContextWindow != 25 {
		t.Errorf("ContextWindow = %d, want 25", a.ContextWindow)
	}
	if a.MaxTriggers != 10 {
		t.Errorf("MaxTriggers = %d, want 10", a.MaxTriggers)
	}
	got, err := s.GetAgent(a.ID)
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if got.Name != "nova" {
		t.Errorf("Name = %q, want nova", got.Name)
	}
}

func TestGetAgentNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetAgent("missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAssignmentAndListing(t *testing.T) {
	s := openTestStore(t)
	a, c := seedAgentChannel(t, s)

	ok, err := s.IsAssigned(a.ID, c.ID)
	if err != nil || !ok {
		t.Fatalf("IsAssigned = %v, %v; want true", ok, err)
	}
	ok, err = s.IsAssigned(a.ID, "other")
	if err != nil || ok {
		t.Fatalf("IsAssigned other = %v, %v; want false", ok, err)
	}

	chans, err := s.ChannelsWithEnabledAgent()
	if err != nil {
		t.Fatalf("ChannelsWithEnabledAgent: %v", err)
	}
	if len(chans) != 1 || chans[0].ID != c.ID {
		t.Fatalf("channels = %+v, want just %s", chans, c.ID)
	}

	a.Enabled = false
	if err := s.UpdateAgent(a); err != nil {
		t.Fatalf("UpdateAgent: %v", err)
	}
	chans, err = s.ChannelsWithEnabledAgent()
	if err != nil {
		t.Fatalf("ChannelsWithEnabledAgent: %v", err)
	}
	if len(chans) != 0 {
		t.Fatalf("channels after disable = %+v, want none", chans)
	}
}

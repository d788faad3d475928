package store

import (
	"fmt"
	"testing"
	"time"
)

func TestAddTurnDedup(t *testing.T) {
	s := openTestStore(t)
	_, c := seedAgentChannel(t, s)

	first, created, err := s.AddTurn(Turn{
		ChannelID: c.ID, SenderID: "+1555", SenderName: "alice",
		Content: "hello", DedupID: "1700000000001",
	}, 25)
	if err != nil {
		t.Fatalf("AddTurn: %v", err)
	}
	if !created {
		t.Fatal("first insert should report created")
	}

	dup, created, err := s.AddTurn(Turn{
		ChannelID: c.ID, SenderID: "+1555", SenderName: "alice",
		Content: "hello again", DedupID: "1700000000001",
	}, 25)
	if err != nil {
		t.Fatalf("AddTurn dup: %v", err)
	}
	if created {
		t.Fatal("duplicate dedup id should not create a row")
	}
	if dup.ID != first.ID || dup.Content != "hello" {
		t.Errorf("dup = %+v, want stored row %+v", dup, first)
	}

	n, err := s.CountTurns(c.ID)
	if err != nil {
		t.Fatalf("CountTurns: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestAddTurnDedupScopedToChannel(t *testing.T) {
	s := openTestStore(t)
	_, c := seedAgentChannel(t, s)
	other, err := s.CreateChannel(Channel{Name: "offtopic", Enabled: true})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	// The same dedup id in two channels is two distinct messages, and
	// turns with no dedup id never collapse into each other.
	for _, ch := range []string{c.ID, other.ID} {
		if _, created, err := s.AddTurn(Turn{
			ChannelID: ch, SenderID: "+1555", SenderName: "alice",
			Content: "hello", DedupID: "1700000000001",
		}, 25); err != nil || !created {
			t.Fatalf("AddTurn in %s: created=%v err=%v", ch, created, err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, created, err := s.AddTurn(Turn{
			ChannelID: c.ID, SenderID: "+1555", SenderName: "alice", Content: "no id",
		}, 25); err != nil || !created {
			t.Fatalf("AddTurn without dedup id: created=%v err=%v", created, err)
		}
	}
	if n, _ := s.CountTurns(c.ID); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestAddTurnPrunesWindow(t *testing.T) {
	s := openTestStore(t)
	_, c := seedAgentChannel(t, s)

	const window = 5
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2*window+1; i++ {
		_, _, err := s.AddTurn(Turn{
			ChannelID: c.ID, SenderName: "alice",
			Content:   fmt.Sprintf("msg %d", i),
			DedupID:   fmt.Sprintf("d%03d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}, window)
		if err != nil {
			t.Fatalf("AddTurn %d: %v", i, err)
		}
	}

	n, err := s.CountTurns(c.ID)
	if err != nil {
		t.Fatalf("CountTurns: %v", err)
	}
	if n != window {
		t.Fatalf("count after prune = %d, want %d", n, window)
	}

	turns, err := s.RecentTurns(c.ID, window)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if turns[0].Content != "msg 6" {
		t.Errorf("oldest surviving = %q, want msg 6", turns[0].Content)
	}
	if turns[len(turns)-1].Content != "msg 10" {
		t.Errorf("newest = %q, want msg 10", turns[len(turns)-1].Content)
	}
}

func TestRecentTurnsChronological(t *testing.T) {
	s := openTestStore(t)
	_, c := seedAgentChannel(t, s)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, _, err := s.AddTurn(Turn{
			ChannelID: c.ID, SenderName: "bob",
			Content:   fmt.Sprintf("t%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}, 0); err != nil {
			t.Fatalf("AddTurn: %v", err)
		}
	}
	turns, err := s.RecentTurns(c.ID, 10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("len = %d, want 3", len(turns))
	}
	for i, turn := range turns {
		if want := fmt.Sprintf("t%d", i); turn.Content != want {
			t.Errorf("turns[%d] = %q, want %q", i, turn.Content, want)
		}
	}
}

func TestLastTurnAtEmpty(t *testing.T) {
	s := openTestStore(t)
	_, c := seedAgentChannel(t, s)
	ts, err := s.LastTurnAt(c.ID)
	if err != nil {
		t.Fatalf("LastTurnAt: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("ts = %v, want zero", ts)
	}
}

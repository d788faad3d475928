package memory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/botherd/botherd/internal/completion"
	"github.com/botherd/botherd/internal/store"
)

// stubCompleter returns canned JSON for structured calls.
type stubCompleter struct {
	response string
	calls    int
}

func (s *stubCompleter) Complete(ctx context.Context, model string, messages []completion.Message) (string, error) {
	s.calls++
	return s.response, nil
}

func (s *stubCompleter) CompleteJSON(ctx context.Context, model string, messages []completion.Message, out any) error {
	s.calls++
	return json.Unmarshal([]byte(s.response), out)
}

func scanTestStore(t *testing.T) (*store.Store, store.Agent, store.Channel) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	a, err := st.CreateAgent(store.Agent{Name: "nova", Enabled: true, Model: "test-model"})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	c, err := st.CreateChannel(store.Channel{Name: "general", Enabled: true})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if err := st.AssignAgent(a.ID, c.ID); err != nil {
		t.Fatalf("AssignAgent: %v", err)
	}
	return st, a, c
}

func TestScanChannelAppliesOps(t *testing.T) {
	st, _, c := scanTestStore(t)
	if _, _, err := st.AddTurn(store.Turn{
		ChannelID: c.ID, SenderID: "u1", SenderName: "alice",
		Content: "I got a new job at the library", Timestamp: time.Now().UTC(),
	}, 25); err != nil {
		t.Fatalf("AddTurn: %v", err)
	}
	if err := st.SaveSlot(store.MemberSlot{
		ChannelID: c.ID, MemberID: "u1", MemberName: "alice",
		SlotType: store.SlotInterests, Content: "stale fact",
	}); err != nil {
		t.Fatalf("SaveSlot: %v", err)
	}

	stub := &stubCompleter{response: `{"ops": [
		{"op": "set", "member_id": "u1", "member_name": "alice", "slot_type": "work_info", "content": "works at the library"},
		{"op": "delete", "member_name": "alice", "slot_type": "interests"},
		{"op": "set", "member_name": "alice", "slot_type": "bogus_slot", "content": "dropped"}
	]}`}
	sc := NewScanner(st, stub, 6*time.Hour, 100, 0)
	if err := sc.ScanChannel(context.Background(), c.ID); err != nil {
		t.Fatalf("ScanChannel: %v", err)
	}

	slots, err := st.SlotsForMember(c.ID, "alice")
	if err != nil {
		t.Fatalf("SlotsForMember: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("slots = %+v, want only work_info", slots)
	}
	if slots[0].SlotType != store.SlotWorkInfo || slots[0].Content != "works at the library" {
		t.Errorf("slot = %+v", slots[0])
	}

	last, err := st.LastScanAt(c.ID)
	if err != nil {
		t.Fatalf("LastScanAt: %v", err)
	}
	if last.IsZero() {
		t.Error("watermark did not advance")
	}
}

func TestScanChannelEmptyAdvancesWatermark(t *testing.T) {
	st, _, c := scanTestStore(t)
	stub := &stubCompleter{response: `{"ops": []}`}
	sc := NewScanner(st, stub, 6*time.Hour, 100, 0)
	if err := sc.ScanChannel(context.Background(), c.ID); err != nil {
		t.Fatalf("ScanChannel: %v", err)
	}
	if stub.calls != 0 {
		t.Errorf("completer called %d times for an empty channel, want 0", stub.calls)
	}
	last, err := st.LastScanAt(c.ID)
	if err != nil {
		t.Fatalf("LastScanAt: %v", err)
	}
	if last.IsZero() {
		t.Error("watermark should advance for an empty channel")
	}
}

func TestObserveSavesSlots(t *testing.T) {
	st, _, c := scanTestStore(t)
	stub := &stubCompleter{response: `{"skip": false, "slots": [
		{"slot_type": "home_location", "content": "lives in Denver"}
	]}`}
	ex := NewExtractor(st, stub, "test-model")
	ex.Observe(context.Background(), testEvent(c.ID, "u1", "alice", "I'm moving to Denver next month"))

	slots, err := st.SlotsForMember(c.ID, "alice")
	if err != nil {
		t.Fatalf("SlotsForMember: %v", err)
	}
	if len(slots) != 1 || slots[0].SlotType != store.SlotHomeLocation {
		t.Fatalf("slots = %+v", slots)
	}
}

func TestObserveSkipsUnflaggedMessages(t *testing.T) {
	st, _, c := scanTestStore(t)
	stub := &stubCompleter{response: `{"skip": true}`}
	ex := NewExtractor(st, stub, "test-model")
	ex.Observe(context.Background(), testEvent(c.ID, "u1", "alice", "what time is the game"))
	if stub.calls != 0 {
		t.Errorf("completer called %d times for a non-memory message, want 0", stub.calls)
	}
}

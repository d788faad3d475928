package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/botherd/botherd/internal/store"
)

func timep(t time.Time) *time.Time { return &t }

func TestMemberContextTiers(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	slots := []store.MemberSlot{
		{MemberName: "alice", SlotType: store.SlotResponsePrefs, Content: "prefers short answers"},
		{MemberName: "alice", SlotType: store.SlotHomeLocation, Content: "lives in Portland"},
		{MemberName: "bob", SlotType: store.SlotInterests, Content: "into cycling"},
	}

	got := MemberContext(slots, "what movie should we watch", now)
	if !strings.Contains(got, "prefers short answers") {
		t.Error("response prefs should always be included")
	}
	if strings.Contains(got, "Portland") {
		t.Error("home location should stay out of a non-location conversation")
	}
	if !strings.Contains(got, "cycling") {
		t.Error("interests should be included")
	}
	if !strings.Contains(got, "Never recite") {
		t.Error("restraint note missing")
	}

	got = MemberContext(slots, "how's the weather out there", now)
	if !strings.Contains(got, "Portland") {
		t.Error("location talk should pull in home location")
	}
}

func TestMemberContextTravelWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	upcoming := store.MemberSlot{
		MemberName: "carol", SlotType: store.SlotTravelLocation,
		Content:   "visiting Tokyo next week",
		ValidFrom: timep(now.Add(3 * 24 * time.Hour)),
	}
	distant := store.MemberSlot{
		MemberName: "dave", SlotType: store.SlotTravelLocation,
		Content:   "going to Peru in three months",
		ValidFrom: timep(now.Add(90 * 24 * time.Hour)),
	}
	expired := store.MemberSlot{
		MemberName: "erin", SlotType: store.SlotTravelLocation,
		Content:    "was in Paris last spring",
		ValidUntil: timep(now.Add(-30 * 24 * time.Hour)),
	}

	got := MemberContext([]store.MemberSlot{upcoming, distant, expired}, "nothing special", now)
	if !strings.Contains(got, "Tokyo") {
		t.Error("travel within seven days should be included")
	}
	if strings.Contains(got, "Peru") {
		t.Error("distant travel should stay out without location talk")
	}
	if strings.Contains(got, "Paris") {
		t.Error("expired travel must never be included")
	}

	// Location talk pulls in distant travel, but never expired travel.
	got = MemberContext([]store.MemberSlot{distant, expired}, "any trip plans?", now)
	if !strings.Contains(got, "Peru") {
		t.Error("location talk should pull in future travel")
	}
	if strings.Contains(got, "Paris") {
		t.Error("expired travel must never be included, even with location talk")
	}
}

func TestMemberContextEmpty(t *testing.T) {
	if got := MemberContext(nil, "hello", time.Now()); got != "" {
		t.Errorf("got %q, want empty for no slots", got)
	}
}

func TestDetectCategory(t *testing.T) {
	cases := []struct {
		text     string
		category string
		ok       bool
	}{
		{"remember that my anniversary is in June", "explicit", true},
		{"keep it short please", "response_prefs", true},
		{"I'm moving to Denver next month", "location", true},
		{"i love thai food", "interests", true},
		{"we got married last weekend", "life_events", true},
		{"I work at the hospital downtown", "work_info", true},
		{"what time is the game tonight", "", false},
	}
	for _, tc := range cases {
		cat, ok := DetectCategory(tc.text)
		if ok != tc.ok || cat != tc.category {
			t.Errorf("DetectCategory(%q) = %q, %v; want %q, %v", tc.text, cat, ok, tc.category, tc.ok)
		}
	}
}

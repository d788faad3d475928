package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/botherd/botherd/internal/store"
)

// locationKeywords pull situational location memories into the prompt
// when the conversation is actually about places.
var locationKeywords = []string{
	"where", "city", "town", "weather", "travel", "trip", "flight",
	"visit", "vacation", "moving", "move", "local", "near", "timezone",
	"restaurant", "around here",
}

const travelProximity = 7 * 24 * time.Hour

func mentionsLocation(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range locationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// slotRelevant decides whether a slot belongs in the prompt right now.
// Response preferences always go in. Location slots are situational:
// they appear only when the message touches places, or when an upcoming
// travel window is close. Expired travel never appears.
func slotRelevant(slot store.MemberSlot, messageText string, now time.Time) bool {
	switch slot.SlotType {
	case store.SlotResponsePrefs:
		return true
	case store.SlotHomeLocation:
		return mentionsLocation(messageText)
	case store.SlotTravelLocation:
		if slot.ValidUntil != nil && now.After(*slot.ValidUntil) {
			return false
		}
		if mentionsLocation(messageText) {
			return true
		}
		if slot.ValidFrom != nil {
			until := *slot.ValidFrom
			return until.Sub(now) >= 0 && until.Sub(now) <= travelProximity
		}
		return false
	default:
		return true
	}
}

// MemberContext renders the member memory block for a prompt. It ends
// with a restraint note so agents use what they know without reciting
// it.
func MemberContext(slots []store.MemberSlot, messageText string, now time.Time) string {
	byMember := make(map[string][]store.MemberSlot)
	var order []string
	for _, slot := range slots {
		if !slotRelevant(slot, messageText, now) {
			continue
		}
		if _, seen := byMember[slot.MemberName]; !seen {
			order = append(order, slot.MemberName)
		}
		byMember[slot.MemberName] = append(byMember[slot.MemberName], slot)
	}
	if len(order) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("What you know about the people here:\n")
	for _, name := range order {
		fmt.Fprintf(&sb, "%s:\n", name)
		for _, slot := range byMember[name] {
			fmt.Fprintf(&sb, "- %s\n", slot.Content)
		}
	}
	sb.WriteString("Use this naturally when relevant. Never recite it or mention that you keep notes.")
	return sb.String()
}

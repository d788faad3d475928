// Package memory maintains what agents know: rolling windows live in
// storage, this package handles long-term member facts and snippet
// recall on top of them.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/botherd/botherd/internal/completion"
	"github.com/botherd/botherd/internal/store"
	"github.com/botherd/botherd/internal/transport"
)

// categoryPattern routes a message to the extraction prompt for its
// memory category. Order matters: the first match wins, and explicit
// "remember this" requests outrank heuristics.
type categoryPattern struct {
	category string
	re       *regexp.Regexp
}

var categoryPatterns = []categoryPattern{
	{"explicit", regexp.MustCompile(`(?i)\b(remember (that|this)|don'?t forget|note that|keep in mind)\b`)},
	{"response_prefs", regexp.MustCompile(`(?i)\b(keep it short(er)?|too (long|wordy|verbose)|stop (using|with the) emojis?|fewer emojis|more detail|less detail|shorter (answers|replies)|talk less)\b`)},
	{"location", regexp.MustCompile(`(?i)\b(i live in|i'?m (moving|relocating) to|moving to|i'?m in \w+ (this|next) week|travell?ing to|flying to|visiting|on vacation in|headed to)\b`)},
	{"interests", regexp.MustCompile(`(?i)\b(i (love|like|enjoy|hate|can'?t stand)|i'?m (really )?into|my favou?rite|obsessed with)\b`)},
	{"life_events", regexp.MustCompile(`(?i)\b(got (married|engaged|divorced)|had a baby|my (birthday|anniversary)|i graduated|we'?re expecting|just retired)\b`)},
	{"work_info", regexp.MustCompile(`(?i)\b(i work (at|for|in)|my (job|boss|team|manager)|got (promoted|laid off|fired)|new job|started at)\b`)},
}

// DetectCategory reports the memory category a message touches, if any.
// Messages with no match skip extraction entirely, which keeps the
// model out of the hot path for ordinary chatter.
func DetectCategory(text string) (string, bool) {
	for _, p := range categoryPatterns {
		if p.re.MatchString(text) {
			return p.category, true
		}
	}
	return "", false
}

// extraction is the structured output the model returns for one message.
type extraction struct {
	Skip  bool `json:"skip"`
	Slots []struct {
		SlotType   string `json:"slot_type"`
		Content    string `json:"content"`
		ValidUntil string `json:"valid_until,omitempty"` // YYYY-MM-DD
	} `json:"slots"`
}

const extractPrompt = `You extract long-term facts about a chat member from one message.
Return JSON only: {"skip": true} when the message holds nothing worth keeping,
otherwise {"skip": false, "slots": [{"slot_type": "...", "content": "...", "valid_until": "YYYY-MM-DD"}]}.
Valid slot_type values: response_prefs, home_location, travel_location, interests,
media_prefs, life_events, work_info, social_notes.
Set valid_until only for temporary facts like travel. Content must be a short
third-person statement about the member.`

// Extractor turns flagged messages into member memory slots.
type Extractor struct {
	store     *store.Store
	completer completion.Completer
	model     string
	logger    *slog.Logger
}

func NewExtractor(st *store.Store, completer completion.Completer, model string) *Extractor {
	return &Extractor{
		store:     st,
		completer: completer,
		model:     model,
		logger:    slog.With("component", "memory"),
	}
}

// Observe checks one inbound message for memorable facts and saves any
// it finds. Failures are logged and swallowed: memory capture must
// never block a reply.
func (e *Extractor) Observe(ctx context.Context, ev transport.Event) {
	category, ok := DetectCategory(ev.Text)
	if !ok {
		return
	}
	var result extraction
	err := e.completer.CompleteJSON(ctx, e.model, []completion.Message{
		{Role: "system", Content: extractPrompt},
		{Role: "user", Content: fmt.Sprintf("Category hint: %s\nMember %q said: %s",
			category, ev.SenderName, ev.Text)},
	}, &result)
	if err != nil {
		e.logger.Warn("memory extraction failed", "member", ev.SenderName, "error", err)
		return
	}
	if result.Skip {
		return
	}
	for _, raw := range result.Slots {
		if !store.ValidSlotType(raw.SlotType) {
			e.logger.Debug("dropping unknown slot type", "slot_type", raw.SlotType)
			continue
		}
		slot := store.MemberSlot{
			ChannelID:  ev.ChannelID,
			MemberID:   ev.SenderID,
			MemberName: ev.SenderName,
			SlotType:   raw.SlotType,
			Content:    raw.Content,
		}
		if raw.ValidUntil != "" {
			if until, err := time.Parse("2006-01-02", raw.ValidUntil); err == nil {
				slot.ValidUntil = &until
			}
		}
		if err := e.store.SaveSlot(slot); err != nil {
			e.logger.Warn("save member slot", "member", ev.SenderName,
				"slot_type", raw.SlotType, "error", err)
			continue
		}
		e.logger.Info("member memory saved", "member", ev.SenderName,
			"slot_type", raw.SlotType, "channel", ev.ChannelID)
	}
}

package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/botherd/botherd/internal/completion"
	"github.com/botherd/botherd/internal/store"
)

const scanPrompt = `You review a chat transcript and maintain long-term member memory.
Existing memories are listed first; only report changes.
Return JSON only: {"ops": [{"op": "set|update|delete", "member_id": "...",
"member_name": "...", "slot_type": "...", "content": "...", "valid_until": "YYYY-MM-DD"}]}.
Valid slot_type values: response_prefs, home_location, travel_location, interests,
media_prefs, life_events, work_info, social_notes.
Use delete when a memory is clearly stale. Return {"ops": []} when nothing changed.`

type scanResult struct {
	Ops []struct {
		Op         string `json:"op"`
		MemberID   string `json:"member_id"`
		MemberName string `json:"member_name"`
		SlotType   string `json:"slot_type"`
		Content    string `json:"content"`
		ValidUntil string `json:"valid_until,omitempty"`
	} `json:"ops"`
}

// Scanner periodically re-reads each channel's recent turns and
// reconciles member memory in bulk, catching what the per-message
// extractor missed.
type Scanner struct {
	store        *store.Store
	completer    completion.Completer
	interval     time.Duration
	turnsToScan  int
	startupDelay time.Duration
	logger       *slog.Logger
}

func NewScanner(st *store.Store, completer completion.Completer, interval time.Duration, turnsToScan int, startupDelay time.Duration) *Scanner {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if turnsToScan <= 0 {
		turnsToScan = 100
	}
	return &Scanner{
		store:        st,
		completer:    completer,
		interval:     interval,
		turnsToScan:  turnsToScan,
		startupDelay: startupDelay,
		logger:       slog.With("component", "scanner"),
	}
}

// Run blocks until ctx is cancelled. The first pass waits out the
// startup delay so a restart does not stampede the completion API.
func (s *Scanner) Run(ctx context.Context) {
	s.logger.Info("memory scanner started", "interval", s.interval)
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.startupDelay):
	}
	ticker := time.NewTicker(s.interval / 6)
	defer ticker.Stop()
	for {
		s.scanAll(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("memory scanner stopped")
			return
		case <-ticker.C:
		}
	}
}

// scanAll visits every channel that has an enabled agent and rescans
// the ones whose watermark is older than the scan interval.
func (s *Scanner) scanAll(ctx context.Context) {
	channels, err := s.store.ChannelsWithEnabledAgent()
	if err != nil {
		s.logger.Error("list channels", "error", err)
		return
	}
	now := time.Now().UTC()
	for _, ch := range channels {
		last, err := s.store.LastScanAt(ch.ID)
		if err != nil {
			s.logger.Error("load scan state", "channel", ch.ID, "error", err)
			continue
		}
		if !last.IsZero() && now.Sub(last) < s.interval {
			continue
		}
		if err := s.ScanChannel(ctx, ch.ID); err != nil {
			s.logger.Warn("channel scan failed", "channel", ch.ID, "error", err)
		}
	}
}

// ScanChannel runs one reconciliation pass over a channel. Ops are
// applied individually so one bad op cannot void the rest, and the
// watermark advances even when some ops fail.
func (s *Scanner) ScanChannel(ctx context.Context, channelID string) error {
	agent, err := s.store.FirstEnabledAgentForChannel(channelID)
	if err != nil {
		return fmt.Errorf("no agent for channel: %w", err)
	}
	turns, err := s.store.RecentTurns(channelID, s.turnsToScan)
	if err != nil {
		return fmt.Errorf("load turns: %w", err)
	}
	if len(turns) == 0 {
		return s.store.SetScanState(channelID, time.Now().UTC())
	}

	existing, err := s.store.SlotsForChannel(channelID)
	if err != nil {
		return fmt.Errorf("load slots: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Existing memories:\n")
	if len(existing) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, slot := range existing {
		fmt.Fprintf(&sb, "- %s [%s] (%s): %s\n", slot.MemberName, slot.MemberID, slot.SlotType, slot.Content)
	}
	sb.WriteString("\nTranscript:\n")
	for _, t := range turns {
		fmt.Fprintf(&sb, "%s [%s]: %s\n", t.SenderName, t.SenderID, t.Content)
	}

	var result scanResult
	err = s.completer.CompleteJSON(ctx, agent.Model, []completion.Message{
		{Role: "system", Content: scanPrompt},
		{Role: "user", Content: sb.String()},
	}, &result)
	if err != nil {
		return fmt.Errorf("scan completion: %w", err)
	}

	applied := 0
	for _, op := range result.Ops {
		if !store.ValidSlotType(op.SlotType) {
			s.logger.Debug("dropping op with unknown slot type", "slot_type", op.SlotType)
			continue
		}
		switch op.Op {
		case "set", "update":
			slot := store.MemberSlot{
				ChannelID:  channelID,
				MemberID:   op.MemberID,
				MemberName: op.MemberName,
				SlotType:   op.SlotType,
				Content:    op.Content,
			}
			if op.ValidUntil != "" {
				if until, perr := time.Parse("2006-01-02", op.ValidUntil); perr == nil {
					slot.ValidUntil = &until
				}
			}
			if err := s.store.SaveSlot(slot); err != nil {
				s.logger.Warn("apply scan op", "op", op.Op, "member", op.MemberName, "error", err)
				continue
			}
			applied++
		case "delete":
			if err := s.store.DeleteSlot(channelID, op.MemberName, op.SlotType); err != nil {
				s.logger.Warn("apply scan delete", "member", op.MemberName, "error", err)
				continue
			}
			applied++
		default:
			s.logger.Debug("dropping unknown scan op", "op", op.Op)
		}
	}
	now := time.Now().UTC()
	if err := s.store.SetScanState(channelID, now); err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	s.logger.Info("channel scanned", "channel", channelID, "turns", len(turns), "ops_applied", applied)
	return nil
}

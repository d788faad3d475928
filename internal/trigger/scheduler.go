package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/botherd/botherd/internal/completion"
	"github.com/botherd/botherd/internal/store"
	"github.com/botherd/botherd/internal/transport"
)

// OutboundResolver returns the outbound transport for an agent, or
// false when the agent has no live transport.
type OutboundResolver func(agent store.Agent) (transport.Outbound, bool)

// Scheduler fires due triggers on a fixed tick. Reminders are sent
// verbatim; tasks run through the completion pipeline with the
// channel's recent context.
type Scheduler struct {
	store     *store.Store
	completer completion.Completer
	outbound  OutboundResolver
	tick      time.Duration
	logger    *slog.Logger
}

// NewScheduler wires a scheduler. tick defaults to one minute.
func NewScheduler(st *store.Store, completer completion.Completer, outbound OutboundResolver, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{
		store:     st,
		completer: completer,
		outbound:  outbound,
		tick:      tick,
		logger:    slog.With("component", "scheduler"),
	}
}

// Run blocks until ctx is cancelled, checking for due triggers every
// tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "tick", s.tick)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case now := <-ticker.C:
			s.processDue(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) processDue(ctx context.Context, now time.Time) {
	due, err := s.store.DueTriggers(now)
	if err != nil {
		s.logger.Error("load due triggers", "error", err)
		return
	}
	for _, tr := range due {
		s.fire(ctx, tr, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, tr store.Trigger, now time.Time) {
	log := s.logger.With("trigger", tr.ID, "name", tr.Name, "kind", tr.Kind)

	agent, err := s.store.GetAgent(tr.AgentID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("owning agent gone, disabling trigger")
		if err := s.store.SetTriggerEnabled(tr.ID, false); err != nil {
			log.Error("disable orphaned trigger", "error", err)
		}
		return
	}
	if err != nil {
		log.Error("load agent", "error", err)
		return
	}
	channel, err := s.store.GetChannel(tr.ChannelID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("target channel gone, disabling trigger")
		if err := s.store.SetTriggerEnabled(tr.ID, false); err != nil {
			log.Error("disable orphaned trigger", "error", err)
		}
		return
	}
	if err != nil {
		log.Error("load channel", "error", err)
		return
	}

	// Disabled agents and channels skip delivery, but the occurrence is
	// still consumed so the trigger never sits due tick after tick and
	// cannot fire a stale catch-up the moment it is re-enabled.
	if !agent.Enabled || !channel.Enabled || !agent.TriggersEnabled {
		log.Debug("skipping trigger for disabled agent or channel")
		s.advance(tr, now, log)
		return
	}

	out, ok := s.outbound(agent)
	if !ok {
		log.Warn("no transport for agent, rescheduling")
		s.advance(tr, now, log)
		return
	}

	switch tr.Kind {
	case store.TriggerKindReminder:
		if err := out.SendText(ctx, channel.ID, tr.Content); err != nil {
			log.Error("send reminder", "error", err)
		} else {
			s.recordOutbound(agent, channel, tr.Content)
			s.store.LogActivity("trigger_fired", agent.ID, channel.ID,
				fmt.Sprintf("reminder %q fired", tr.Name))
		}
	case store.TriggerKindTask:
		if err := s.runTask(ctx, agent, channel, tr, out); err != nil {
			log.Error("run task", "error", err)
		}
	default:
		log.Warn("unknown trigger kind")
	}

	s.advance(tr, now, log)
}

// advance installs the next occurrence. Failures still reschedule so a
// broken delivery cannot wedge a trigger in a due state.
func (s *Scheduler) advance(tr store.Trigger, now time.Time, log *slog.Logger) {
	prev := now
	if tr.NextFireTime != nil {
		prev = *tr.NextFireTime
	}
	next := NextFireTime(tr, prev, now)
	if err := s.store.MarkTriggerFired(tr.ID, now, next); err != nil {
		log.Error("mark trigger fired", "error", err)
		return
	}
	if next == nil {
		log.Info("trigger completed")
	} else {
		log.Debug("trigger rescheduled", "next", *next)
	}
}

func (s *Scheduler) runTask(ctx context.Context, agent store.Agent, channel store.Channel, tr store.Trigger, out transport.Outbound) error {
	turns, err := s.store.RecentTurns(channel.ID, agent.ContextWindow)
	if err != nil {
		return fmt.Errorf("load context: %w", err)
	}

	var history strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&history, "%s: %s\n", t.SenderName, t.Content)
	}

	messages := []completion.Message{
		{Role: "system", Content: agent.SystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Recent conversation:\n%s\n[Scheduled: %s] %s", history.String(), tr.Name, tr.Content)},
	}
	text, err := s.completer.Complete(ctx, agent.Model, messages)
	if err != nil {
		return fmt.Errorf("task completion: %w", err)
	}
	if text == "" {
		s.logger.Debug("task produced no output", "trigger", tr.ID)
		return nil
	}
	if err := out.SendText(ctx, channel.ID, text); err != nil {
		return fmt.Errorf("send task output: %w", err)
	}
	s.recordOutbound(agent, channel, text)
	s.store.LogActivity("trigger_fired", agent.ID, channel.ID,
		fmt.Sprintf("task %q fired", tr.Name))
	return nil
}

func (s *Scheduler) recordOutbound(agent store.Agent, channel store.Channel, text string) {
	_, _, err := s.store.AddTurn(store.Turn{
		ChannelID:  channel.ID,
		SenderID:   agent.ID,
		SenderName: agent.Name,
		Content:    text,
		IsAgent:    true,
		AgentID:    agent.ID,
		Timestamp:  time.Now().UTC(),
	}, agent.ContextWindow)
	if err != nil {
		s.logger.Warn("record outbound turn", "error", err)
	}
}

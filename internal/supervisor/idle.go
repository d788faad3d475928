package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/botherd/botherd/internal/completion"
	"github.com/botherd/botherd/internal/events"
	"github.com/botherd/botherd/internal/store"
)

// runIdleChecker watches for channels that have gone quiet and, with a
// small chance per check, has an agent break the silence.
func (s *Supervisor) runIdleChecker(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Supervisor.IdleTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.checkIdleChannels(ctx, now.UTC())
		}
	}
}

func (s *Supervisor) checkIdleChannels(ctx context.Context, now time.Time) {
	channels, err := s.store.ChannelsWithEnabledAgent()
	if err != nil {
		s.logger.Error("idle check list channels", "error", err)
		return
	}
	started := s.startTime()
	for _, ch := range channels {
		last, ok := s.activity.last(ch.ID)
		if !ok {
			// Never seen since boot: the idle clock starts at startup,
			// so a long-quiet channel still waits out a full threshold.
			last = started
			s.activity.touch(ch.ID, last)
		}
		if now.Sub(last) < s.cfg.Supervisor.IdleThreshold {
			continue
		}
		// Once idle, only recheck every few minutes so the roll does
		// not repeat every tick.
		if now.Sub(s.activity.lastIdleCheck(ch.ID)) < s.cfg.Supervisor.IdleCheckEvery {
			continue
		}
		s.activity.markIdleCheck(ch.ID, now)
		if s.rollFloat() >= s.cfg.Supervisor.IdleChance {
			continue
		}
		if err := s.postIdleMessage(ctx, ch); err != nil {
			s.logger.Warn("idle post failed", "channel", ch.Name, "error", err)
		}
	}
}

// postIdleMessage picks an idle-enabled running agent in the channel
// and has it start a new thread of conversation.
func (s *Supervisor) postIdleMessage(ctx context.Context, channel store.Channel) error {
	agent, task, ok := s.idleAgentFor(channel.ID)
	if !ok {
		return nil
	}

	turns, err := s.store.RecentTurns(channel.ID, agent.ContextWindow)
	if err != nil {
		return fmt.Errorf("load context: %w", err)
	}
	var history string
	for _, t := range turns {
		history += fmt.Sprintf("%s: %s\n", t.SenderName, t.Content)
	}

	messages := []completion.Message{
		{Role: "system", Content: agent.SystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"The conversation has been quiet for a while. Recent context:\n%s\n"+
				"Share something new: an interesting piece of news, a question for the group, "+
				"or a thought that fits the room. Keep it short and natural. Reply as %s.",
			history, agent.Name)},
	}
	text, err := s.completer.Complete(ctx, agent.Model, messages)
	if err != nil {
		return fmt.Errorf("idle completion: %w", err)
	}
	if text == "" {
		return nil
	}
	if err := task.transport.SendText(ctx, channel.ID, text); err != nil {
		return fmt.Errorf("send idle post: %w", err)
	}
	now := time.Now().UTC()
	s.recordAgentTurn(agent, channel, text)
	s.activity.touch(channel.ID, now)
	s.store.LogActivity("idle_post", agent.ID, channel.ID, "broke the silence")
	s.publisher.Publish(ctx, events.Event{Type: "idle_post", AgentID: agent.ID, ChannelID: channel.ID})
	s.logger.Info("idle post sent", "agent", agent.Name, "channel", channel.Name)
	return nil
}

// idleAgentFor returns a running, idle-enabled agent assigned to the
// channel.
func (s *Supervisor) idleAgentFor(channelID string) (store.Agent, *agentTask, bool) {
	s.mu.Lock()
	candidates := make([]*agentTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		candidates = append(candidates, task)
	}
	s.mu.Unlock()

	for _, task := range candidates {
		agent, err := s.store.GetAgent(task.agent.ID)
		if err != nil || !agent.Enabled || !agent.IdlePostEnabled {
			continue
		}
		assigned, err := s.store.IsAssigned(agent.ID, channelID)
		if err != nil || !assigned {
			continue
		}
		return agent, task, true
	}
	return store.Agent{}, nil, false
}

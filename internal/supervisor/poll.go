package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/botherd/botherd/internal/completion"
	"github.com/botherd/botherd/internal/events"
	"github.com/botherd/botherd/internal/memory"
	"github.com/botherd/botherd/internal/store"
	"github.com/botherd/botherd/internal/transport"
	"github.com/botherd/botherd/internal/trigger"
)

var reactionEmojis = []string{"👍", "😂", "❤️", "🔥", "💯", "😮", "🎉", "👀"}

var imageCommandRe = regexp.MustCompile(`^!image\s+"([^"]+)"`)

// runAgent is one agent's poll loop. Each tick drains the transport and
// handles events one at a time; a failure on one event never takes the
// loop down.
func (s *Supervisor) runAgent(ctx context.Context, task *agentTask) {
	log := s.logger.With("agent", task.agent.Name)
	ticker := time.NewTicker(s.cfg.Supervisor.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		evs, err := task.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("receive failed", "error", err)
			}
			continue
		}
		for _, ev := range evs {
			if err := s.handleEvent(ctx, task, ev); err != nil {
				log.Error("event handling failed", "channel", ev.ChannelID,
					"sender", ev.SenderName, "error", err)
			}
		}
	}
}

// handleEvent runs one inbound message through the pipeline: record,
// observe, decide, respond.
func (s *Supervisor) handleEvent(ctx context.Context, task *agentTask, ev transport.Event) error {
	// Config changes take effect on the next message, not the next
	// restart.
	agent, err := s.store.GetAgent(task.agent.ID)
	if err != nil {
		return fmt.Errorf("refresh agent: %w", err)
	}
	if !agent.Enabled {
		return nil
	}

	channel, err := s.store.GetChannel(ev.ChannelID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load channel: %w", err)
	}
	if !channel.Enabled {
		return nil
	}
	assigned, err := s.store.IsAssigned(agent.ID, channel.ID)
	if err != nil {
		return fmt.Errorf("check assignment: %w", err)
	}
	if !assigned {
		return nil
	}

	_, created, err := s.store.AddTurn(store.Turn{
		ChannelID:  channel.ID,
		SenderID:   ev.SenderID,
		SenderName: ev.SenderName,
		Content:    ev.Text,
		DedupID:    ev.DedupID,
		Timestamp:  ev.Timestamp,
	}, agent.ContextWindow)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	if !created {
		return nil
	}
	s.activity.touch(channel.ID, ev.Timestamp)

	if agent.ReadReceipts {
		if err := task.transport.SendReadReceipt(ctx, channel.ID, ev.SenderID, ev.Timestamp); err != nil {
			slog.Debug("read receipt failed", "agent", agent.Name, "error", err)
		}
	}

	s.extractor.Observe(ctx, ev)
	s.maybeReact(ctx, task, agent, ev)

	decision := trigger.ShouldRespond(agent, ev, s.roll())
	if !decision.Respond {
		return nil
	}
	return s.respond(ctx, task, agent, channel, ev, decision)
}

// maybeReact rolls to drop an emoji reaction on the message.
func (s *Supervisor) maybeReact(ctx context.Context, task *agentTask, agent store.Agent, ev transport.Event) {
	if !agent.ReactionEnabled || agent.ReactionChancePct <= 0 {
		return
	}
	if s.roll() > agent.ReactionChancePct {
		return
	}
	emoji := reactionEmojis[s.pick(len(reactionEmojis))]
	if err := task.transport.SendReaction(ctx, ev.ChannelID, ev.SenderID, emoji, ev.Timestamp); err != nil {
		slog.Debug("reaction failed", "agent", agent.Name, "error", err)
	}
}

// respond runs the typing indicator, the human-feeling delay, and the
// completion, then delivers and records the reply.
func (s *Supervisor) respond(ctx context.Context, task *agentTask, agent store.Agent, channel store.Channel, ev transport.Event, decision trigger.Decision) error {
	log := s.logger.With("agent", agent.Name, "channel", channel.Name, "reason", decision.Reason)

	if agent.TypingEnabled {
		if err := task.transport.StartTyping(ctx, channel.ID); err != nil {
			log.Debug("start typing failed", "error", err)
		}
		defer func() {
			if err := task.transport.StopTyping(ctx, channel.ID); err != nil {
				log.Debug("stop typing failed", "error", err)
			}
		}()
	}

	delay := s.responseDelay(decision.Reason)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	if prompt, ok := parseImageCommand(ev.Text); ok {
		return s.respondImage(ctx, task, agent, channel, prompt)
	}

	text, err := s.generateReply(ctx, agent, channel, ev)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}
	if text == "" {
		log.Debug("model stayed silent")
		return nil
	}
	if err := task.transport.SendText(ctx, channel.ID, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	s.recordAgentTurn(agent, channel, text)
	s.snippets.MaybeCapture(channel.ID, ev.Text, text)
	s.store.LogActivity("agent_replied", agent.ID, channel.ID, string(decision.Reason))
	s.publisher.Publish(ctx, events.Event{Type: "agent_replied", AgentID: agent.ID,
		ChannelID: channel.ID, Description: string(decision.Reason)})
	log.Info("replied", "delay", delay, "chars", len(text))
	return nil
}

// generateReply builds the prompt from the rolling window, member
// memory, and any recalled snippet, retrying empty completions a few
// times before giving up silently.
func (s *Supervisor) generateReply(ctx context.Context, agent store.Agent, channel store.Channel, ev transport.Event) (string, error) {
	turns, err := s.store.RecentTurns(channel.ID, agent.ContextWindow)
	if err != nil {
		return "", fmt.Errorf("load context: %w", err)
	}
	slots, err := s.store.SlotsForChannel(channel.ID)
	if err != nil {
		return "", fmt.Errorf("load member memory: %w", err)
	}

	var system strings.Builder
	system.WriteString(agent.SystemPrompt)
	if memberCtx := memory.MemberContext(slots, ev.Text, time.Now().UTC()); memberCtx != "" {
		system.WriteString("\n\n")
		system.WriteString(memberCtx)
	}
	if recall, ok := s.snippets.MaybeRecall(channel.ID); ok {
		system.WriteString("\n\n")
		system.WriteString(recall)
	}

	var history strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&history, "%s: %s\n", t.SenderName, t.Content)
	}
	messages := []completion.Message{
		{Role: "system", Content: system.String()},
		{Role: "user", Content: fmt.Sprintf("Conversation:\n%sReply as %s.", history.String(), agent.Name)},
	}

	retries := s.cfg.Supervisor.EmptyRetryLimit
	if retries < 1 {
		retries = 1
	}
	for attempt := 0; attempt < retries; attempt++ {
		text, err := s.completer.Complete(ctx, agent.Model, messages)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	return "", nil
}

func (s *Supervisor) respondImage(ctx context.Context, task *agentTask, agent store.Agent, channel store.Channel, prompt string) error {
	if s.images == nil {
		return task.transport.SendText(ctx, channel.ID, "Image generation is not set up.")
	}
	img, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate image: %w", err)
	}
	if err := task.transport.SendImage(ctx, channel.ID, prompt, img); err != nil {
		return fmt.Errorf("send image: %w", err)
	}
	s.recordAgentTurn(agent, channel, "[image] "+prompt)
	s.store.LogActivity("image_sent", agent.ID, channel.ID, prompt)
	return nil
}

func (s *Supervisor) recordAgentTurn(agent store.Agent, channel store.Channel, text string) {
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
		s.logger.Warn("record agent turn", "agent", agent.Name, "error", err)
	}
}

// parseImageCommand matches the !image "prompt" chat command.
func parseImageCommand(text string) (string, bool) {
	m := imageCommandRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}

package transport

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

var slackMentionRe = regexp.MustCompile(`<@([A-Z0-9]+)>`)

// SlackTransport polls the Slack Web API for one bot token. Channels
// must be registered with Watch before events arrive for them.
type SlackTransport struct {
	api   *slack.Client
	botID string

	mu      sync.Mutex
	cursors map[string]string // channel id -> newest seen ts
	names   map[string]string // user id -> display name
}

// NewSlack returns a transport for the given bot token.
func NewSlack(botToken string) (*SlackTransport, error) {
	api := slack.New(botToken)
	auth, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack auth: %w", err)
	}
	return &SlackTransport{
		api:     api,
		botID:   auth.UserID,
		cursors: make(map[string]string),
		names:   make(map[string]string),
	}, nil
}

func (t *SlackTransport) Name() string { return "slack" }

// Watch registers a channel for polling. New channels start from "now"
// so the backlog is not replayed.
func (t *SlackTransport) Watch(channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.cursors[channelID]; !ok {
		t.cursors[channelID] = fmt.Sprintf("%.6f", float64(time.Now().Unix()))
	}
}

// Receive polls every watched channel for messages newer than its
// cursor. The bot's own messages and subtype events are dropped.
func (t *SlackTransport) Receive(ctx context.Context) ([]Event, error) {
	t.mu.Lock()
	channels := make(map[string]string, len(t.cursors))
	for id, cur := range t.cursors {
		channels[id] = cur
	}
	t.mu.Unlock()

	var events []Event
	for channelID, oldest := range channels {
		resp, err := t.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: channelID,
			Oldest:    oldest,
			Limit:     50,
		})
		if err != nil {
			return events, fmt.Errorf("slack history %s: %w", channelID, err)
		}
		newest := oldest
		// History arrives newest first.
		for i := len(resp.Messages) - 1; i >= 0; i-- {
			msg := resp.Messages[i]
			if msg.Timestamp > newest {
				newest = msg.Timestamp
			}
			if msg.User == "" || msg.User == t.botID || msg.SubType != "" || msg.Text == "" {
				continue
			}
			ev := Event{
				ChannelID:  channelID,
				SenderID:   msg.User,
				SenderName: t.userName(ctx, msg.User),
				Text:       msg.Text,
				DedupID:    msg.Timestamp,
				Timestamp:  slackTSToTime(msg.Timestamp),
			}
			for _, m := range slackMentionRe.FindAllStringSubmatch(msg.Text, -1) {
				ev.Mentions = append(ev.Mentions, m[1])
			}
			events = append(events, ev)
		}
		t.mu.Lock()
		t.cursors[channelID] = newest
		t.mu.Unlock()
	}
	return events, nil
}

func (t *SlackTransport) userName(ctx context.Context, userID string) string {
	t.mu.Lock()
	name, ok := t.names[userID]
	t.mu.Unlock()
	if ok {
		return name
	}
	user, err := t.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return userID
	}
	name = user.Profile.DisplayName
	if name == "" {
		name = user.RealName
	}
	if name == "" {
		name = userID
	}
	t.mu.Lock()
	t.names[userID] = name
	t.mu.Unlock()
	return name
}

func slackTSToTime(ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Now().UTC()
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func (t *SlackTransport) SendText(ctx context.Context, channelID, text string) error {
	_, _, err := t.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}

func (t *SlackTransport) SendImage(ctx context.Context, channelID, caption string, image []byte) error {
	_, err := t.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:        channelID,
		Filename:       "image.png",
		FileSize:       len(image),
		Content:        string(image),
		InitialComment: caption,
	})
	if err != nil {
		return fmt.Errorf("slack upload: %w", err)
	}
	return nil
}

func (t *SlackTransport) SendReaction(ctx context.Context, channelID, targetSender, emoji string, targetTS time.Time) error {
	ts := fmt.Sprintf("%d.%06d", targetTS.Unix(), targetTS.Nanosecond()/1000)
	err := t.api.AddReactionContext(ctx, emoji, slack.ItemRef{Channel: channelID, Timestamp: ts})
	if err != nil {
		return fmt.Errorf("slack reaction: %w", err)
	}
	return nil
}

// Slack's Web API has no typing indicator or read receipt for bots.
func (t *SlackTransport) StartTyping(ctx context.Context, channelID string) error { return nil }
func (t *SlackTransport) StopTyping(ctx context.Context, channelID string) error  { return nil }
func (t *SlackTransport) SendReadReceipt(ctx context.Context, channelID, senderID string, ts time.Time) error {
	return nil
}

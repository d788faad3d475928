// Package transport moves messages between channels (Signal groups,
// Slack channels) and the supervisor. Each agent owns one transport
// bound to its credentials.
package transport

import (
	"context"
	"time"
)

// Event is one inbound message, normalized across transports.
type Event struct {
	ChannelID   string
	SenderID    string
	SenderName  string
	Text        string
	Attachments []string
	// Mentions holds the identifiers (phone numbers, user ids) the
	// message explicitly mentioned.
	Mentions []string
	// DedupID is stable per message on its transport and keys turn
	// deduplication in storage.
	DedupID   string
	Timestamp time.Time
}

// Receiver pulls pending inbound events. An empty slice with a nil
// error means nothing arrived.
type Receiver interface {
	Receive(ctx context.Context) ([]Event, error)
}

// Outbound sends agent output back to a channel. Implementations treat
// partial delivery of multi-part sends as success.
type Outbound interface {
	SendText(ctx context.Context, channelID, text string) error
	SendImage(ctx context.Context, channelID, caption string, image []byte) error
	SendReaction(ctx context.Context, channelID, targetSender, emoji string, targetTS time.Time) error
	StartTyping(ctx context.Context, channelID string) error
	StopTyping(ctx context.Context, channelID string) error
	SendReadReceipt(ctx context.Context, channelID, senderID string, ts time.Time) error
}

// Transport is a full duplex connection to one chat platform account.
type Transport interface {
	Receiver
	Outbound
	Name() string
}

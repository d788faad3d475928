package memory

import (
	"time"

	"github.com/botherd/botherd/internal/transport"
)

func testEvent(channelID, senderID, senderName, text string) transport.Event {
	return transport.Event{
		ChannelID:  channelID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		Timestamp:  time.Now().UTC(),
	}
}

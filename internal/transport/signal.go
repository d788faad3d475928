package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SignalTransport talks to a signal-cli REST gateway for one account.
type SignalTransport struct {
	baseURL string
	phone   string
	client  *http.Client
}

// NewSignal returns a transport for the given account phone number.
func NewSignal(baseURL, phone string, timeout time.Duration) *SignalTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SignalTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		phone:   phone,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *SignalTransport) Name() string { return "signal" }

type signalEnvelope struct {
	Envelope struct {
		Source     string `json:"source"`
		SourceName string `json:"sourceName"`
		Timestamp  int64  `json:"timestamp"`
		DataMsg    *struct {
			Message   string `json:"message"`
			GroupInfo *struct {
				GroupID string `json:"groupId"`
			} `json:"groupInfo"`
			Mentions []struct {
				Number string `json:"number"`
				Name   string `json:"name"`
			} `json:"mentions"`
			Attachments []struct {
				ID          string `json:"id"`
				ContentType string `json:"contentType"`
			} `json:"attachments"`
		} `json:"dataMessage"`
	} `json:"envelope"`
}

// Receive drains pending envelopes for the account. Non-group and
// empty-text envelopes (receipts, typing notices) are dropped.
func (t *SignalTransport) Receive(ctx context.Context) ([]Event, error) {
	u := fmt.Sprintf("%s/v1/receive/%s", t.baseURL, url.PathEscape(t.phone))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signal receive: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("signal receive status: %d", resp.StatusCode)
	}
	var envelopes []signalEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		return nil, fmt.Errorf("signal receive decode: %w", err)
	}

	var events []Event
	for _, env := range envelopes {
		dm := env.Envelope.DataMsg
		if dm == nil || dm.GroupInfo == nil || strings.TrimSpace(dm.Message) == "" {
			continue
		}
		ev := Event{
			ChannelID:  dm.GroupInfo.GroupID,
			SenderID:   env.Envelope.Source,
			SenderName: env.Envelope.SourceName,
			Text:       dm.Message,
			DedupID:    strconv.FormatInt(env.Envelope.Timestamp, 10),
			Timestamp:  time.UnixMilli(env.Envelope.Timestamp).UTC(),
		}
		if ev.SenderName == "" {
			ev.SenderName = ev.SenderID
		}
		for _, m := range dm.Mentions {
			if m.Number != "" {
				ev.Mentions = append(ev.Mentions, m.Number)
			} else if m.Name != "" {
				ev.Mentions = append(ev.Mentions, m.Name)
			}
		}
		for _, a := range dm.Attachments {
			ev.Attachments = append(ev.Attachments, a.ID)
		}
		events = append(events, ev)
	}
	return events, nil
}

// groupRecipient converts an internal group id from an envelope into
// the "group.<base64>" form the send endpoints expect.
func groupRecipient(channelID string) string {
	if strings.HasPrefix(channelID, "group.") {
		return channelID
	}
	return "group." + base64.StdEncoding.EncodeToString([]byte(channelID))
}

func (t *SignalTransport) post(ctx context.Context, method, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("signal %s status: %d", path, resp.StatusCode)
	}
	return nil
}

func (t *SignalTransport) SendText(ctx context.Context, channelID, text string) error {
	return t.post(ctx, http.MethodPost, "/v2/send", map[string]any{
		"message":    text,
		"number":     t.phone,
		"recipients": []string{groupRecipient(channelID)},
	})
}

func (t *SignalTransport) SendImage(ctx context.Context, channelID, caption string, image []byte) error {
	return t.post(ctx, http.MethodPost, "/v2/send", map[string]any{
		"message":            caption,
		"number":             t.phone,
		"recipients":         []string{groupRecipient(channelID)},
		"base64_attachments": []string{base64.StdEncoding.EncodeToString(image)},
	})
}

func (t *SignalTransport) SendReaction(ctx context.Context, channelID, targetSender, emoji string, targetTS time.Time) error {
	return t.post(ctx, http.MethodPost, "/v1/reactions/"+url.PathEscape(t.phone), map[string]any{
		"reaction":      emoji,
		"recipient":     groupRecipient(channelID),
		"target_author": targetSender,
		"timestamp":     targetTS.UnixMilli(),
	})
}

func (t *SignalTransport) StartTyping(ctx context.Context, channelID string) error {
	return t.post(ctx, http.MethodPut, "/v1/typing-indicator/"+url.PathEscape(t.phone), map[string]any{
		"recipient": groupRecipient(channelID),
	})
}

func (t *SignalTransport) StopTyping(ctx context.Context, channelID string) error {
	return t.post(ctx, http.MethodDelete, "/v1/typing-indicator/"+url.PathEscape(t.phone), map[string]any{
		"recipient": groupRecipient(channelID),
	})
}

func (t *SignalTransport) SendReadReceipt(ctx context.Context, channelID, senderID string, ts time.Time) error {
	return t.post(ctx, http.MethodPost, "/v1/receipts/"+url.PathEscape(t.phone), map[string]any{
		"receipt_type": "read",
		"recipient":    senderID,
		"timestamp":    ts.UnixMilli(),
	})
}

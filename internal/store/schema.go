package store

import (
	"time"
)

// Agent is a configured bot identity with its own transport credentials
// and behaviour flags. Config rows are owned by the admin surface; the
// core reads consistent snapshots.
type Agent struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Model              string    `json:"model"`
	PhoneNumber        string    `json:"phone_number"`
	Transport          string    `json:"transport"` // "signal" or "slack"
	Enabled            bool      `json:"enabled"`
	SystemPrompt       string    `json:"system_prompt"`
	RespondOnMention   bool      `json:"respond_on_mention"`
	RandomChancePct    int       `json:"random_chance_percent"` // 0-100
	ContextWindow      int       `json:"context_window"`
	IdlePostEnabled    bool      `json:"idle_post_enabled"`
	TypingEnabled      bool      `json:"typing_enabled"`
	ReadReceipts       bool      `json:"read_receipts_enabled"`
	ReactionEnabled    bool      `json:"reaction_enabled"`
	ReactionChancePct  int       `json:"reaction_chance_percent"`
	TriggersEnabled    bool      `json:"triggers_enabled"`
	MaxTriggers        int       `json:"max_triggers"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Channel is a conversation/group context with its own rolling window
// and memory.
type Channel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignment links an agent to a channel it participates in.
type Assignment struct {
	AgentID   string `json:"agent_id"`
	ChannelID string `json:"channel_id"`
}

// Turn is one conversation turn in a channel's rolling window.
// At most one turn exists per (channel_id, dedup_id).
type Turn struct {
	ID         int64     `json:"id"`
	ChannelID  string    `json:"channel_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	IsAgent    bool      `json:"is_agent"`
	AgentID    string    `json:"agent_id,omitempty"`
	DedupID    string    `json:"dedup_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Snippet is a long-term memorable exchange for "remember when" recalls.
type Snippet struct {
	ID              int64     `json:"id"`
	ChannelID       string    `json:"channel_id"`
	Content         string    `json:"content"`
	Context         string    `json:"context"`
	TimesReferenced int       `json:"times_referenced"`
	CreatedAt       time.Time `json:"created_at"`
}

// Member memory slot types. One row per (channel, member, slot type).
const (
	SlotResponsePrefs  = "response_prefs"
	SlotHomeLocation   = "home_location"
	SlotTravelLocation = "travel_location"
	SlotInterests      = "interests"
	SlotMediaPrefs     = "media_prefs"
	SlotLifeEvents     = "life_events"
	SlotWorkInfo       = "work_info"
	SlotSocialNotes    = "social_notes"
)

// AllSlotTypes lists every valid member memory slot type.
var AllSlotTypes = []string{
	SlotResponsePrefs, SlotHomeLocation, SlotTravelLocation, SlotInterests,
	SlotMediaPrefs, SlotLifeEvents, SlotWorkInfo, SlotSocialNotes,
}

// ValidSlotType reports whether s is a known slot type.
func ValidSlotType(s string) bool {
	for _, t := range AllSlotTypes {
		if t == s {
			return true
		}
	}
	return false
}

// MemberSlot is one long-term fact about a channel member.
type MemberSlot struct {
	ID         int64      `json:"id"`
	ChannelID  string     `json:"channel_id"`
	MemberID   string     `json:"member_id"`
	MemberName string     `json:"member_name"`
	SlotType   string     `json:"slot_type"`
	Content    string     `json:"content"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Trigger kinds, modes and recurrence patterns.
const (
	TriggerKindReminder = "reminder"
	TriggerKindTask     = "task"

	TriggerModeOnce      = "once"
	TriggerModeRecurring = "recurring"

	PatternDaily   = "daily"
	PatternWeekly  = "weekly"
	PatternMonthly = "monthly"
	PatternCustom  = "custom"
)

// Trigger is a scheduled one-time or recurring action owned by an agent.
type Trigger struct {
	ID            string     `json:"id"`
	AgentID       string     `json:"agent_id"`
	ChannelID     string     `json:"channel_id"`
	Kind          string     `json:"kind"` // reminder | task
	Name          string     `json:"name"`
	Content       string     `json:"content"`
	Mode          string     `json:"mode"` // once | recurring
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	Pattern       string     `json:"pattern,omitempty"` // daily | weekly | monthly | custom
	Interval      int        `json:"interval"`
	DayOfWeek     *int       `json:"day_of_week,omitempty"`  // 0=Sunday .. 6=Saturday
	DayOfMonth    *int       `json:"day_of_month,omitempty"` // 1-31, clamped to month length
	TimeOfDay     string     `json:"time_of_day,omitempty"`  // "15:04" local to Timezone
	Timezone      string     `json:"timezone"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Enabled       bool       `json:"enabled"`
	NextFireTime  *time.Time `json:"next_fire_time,omitempty"`
	LastFiredAt   *time.Time `json:"last_fired_at,omitempty"`
	FireCount     int        `json:"fire_count"`
	CreatedVia    string     `json:"created_via"` // admin | agent
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ActivityEvent is one row in the activity log.
type ActivityEvent struct {
	ID          int64     `json:"id"`
	EventType   string    `json:"event_type"`
	AgentID     string    `json:"agent_id,omitempty"`
	ChannelID   string    `json:"channel_id,omitempty"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Schema is applied on every open. Uniqueness invariants (turn dedup,
// member slot) are enforced here, at the storage layer.
const Schema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	phone_number TEXT DEFAULT '',
	transport TEXT NOT NULL DEFAULT 'signal',
	enabled BOOLEAN NOT NULL DEFAULT 0,
	system_prompt TEXT DEFAULT '',
	respond_on_mention BOOLEAN NOT NULL DEFAULT 1,
	random_chance_percent INTEGER NOT NULL DEFAULT 15,
	context_window INTEGER NOT NULL DEFAULT 25,
	idle_post_enabled BOOLEAN NOT NULL DEFAULT 0,
	typing_enabled BOOLEAN NOT NULL DEFAULT 1,
	read_receipts_enabled BOOLEAN NOT NULL DEFAULT 0,
	reaction_enabled BOOLEAN NOT NULL DEFAULT 1,
	reaction_chance_percent INTEGER NOT NULL DEFAULT 5,
	triggers_enabled BOOLEAN NOT NULL DEFAULT 1,
	max_triggers INTEGER NOT NULL DEFAULT 10,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS channels (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS agent_channels (
	agent_id TEXT NOT NULL REFERENCES agents(id),
	channel_id TEXT NOT NULL REFERENCES channels(id),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (agent_id, channel_id)
);

CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id TEXT NOT NULL,
	sender_id TEXT DEFAULT '',
	sender_name TEXT NOT NULL,
	content TEXT NOT NULL,
	is_agent BOOLEAN NOT NULL DEFAULT 0,
	agent_id TEXT DEFAULT '',
	dedup_id TEXT,
	timestamp DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_turns_dedup ON turns(channel_id, dedup_id) WHERE dedup_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_turns_channel_time ON turns(channel_id, timestamp);

CREATE TABLE IF NOT EXISTS snippets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id TEXT NOT NULL,
	content TEXT NOT NULL,
	context TEXT DEFAULT '',
	times_referenced INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_snippets_channel ON snippets(channel_id, times_referenced);

CREATE TABLE IF NOT EXISTS member_slots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id TEXT NOT NULL,
	member_id TEXT NOT NULL,
	member_name TEXT NOT NULL,
	slot_type TEXT NOT NULL,
	content TEXT NOT NULL,
	valid_from DATETIME,
	valid_until DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (channel_id, member_id, slot_type)
);
CREATE INDEX IF NOT EXISTS idx_member_slots_channel ON member_slots(channel_id, member_name);

CREATE TABLE IF NOT EXISTS triggers (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	content TEXT NOT NULL,
	mode TEXT NOT NULL,
	scheduled_time DATETIME,
	pattern TEXT DEFAULT '',
	interval INTEGER NOT NULL DEFAULT 1,
	day_of_week INTEGER,
	day_of_month INTEGER,
	time_of_day TEXT DEFAULT '',
	timezone TEXT NOT NULL DEFAULT 'UTC',
	end_date DATETIME,
	enabled BOOLEAN NOT NULL DEFAULT 1,
	next_fire_time DATETIME,
	last_fired_at DATETIME,
	fire_count INTEGER NOT NULL DEFAULT 0,
	created_via TEXT NOT NULL DEFAULT 'admin',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_triggers_due ON triggers(enabled, next_fire_time);
CREATE INDEX IF NOT EXISTS idx_triggers_agent ON triggers(agent_id);

CREATE TABLE IF NOT EXISTS scan_state (
	channel_id TEXT PRIMARY KEY,
	last_scan_at DATETIME
);

CREATE TABLE IF NOT EXISTS activity_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	agent_id TEXT DEFAULT '',
	channel_id TEXT DEFAULT '',
	description TEXT NOT NULL,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_activity_type ON activity_log(event_type);
`

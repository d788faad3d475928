package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const agentCols = `id, name, model, phone_number, transport, enabled, system_prompt,
	respond_on_mention, random_chance_percent, context_window, idle_post_enabled,
	typing_enabled, read_receipts_enabled, reaction_enabled, reaction_chance_percent,
	triggers_enabled, max_triggers, created_at, updated_at`

func scanAgent(row interface{ Scan(...any) error }) (Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Name, &a.Model, &a.PhoneNumber, &a.Transport, &a.Enabled,
		&a.SystemPrompt, &a.RespondOnMention, &a.RandomChancePct, &a.ContextWindow,
		&a.IdlePostEnabled, &a.TypingEnabled, &a.ReadReceipts, &a.ReactionEnabled,
		&a.ReactionChancePct, &a.TriggersEnabled, &a.MaxTriggers, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateAgent inserts a new agent. A missing ID gets a fresh UUID.
func (s *Store) CreateAgent(a Agent) (Agent, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.ContextWindow <= 0 {
		a.ContextWindow = 25
	}
	if a.MaxTriggers <= 0 {
		a.MaxTriggers = 10
	}
	_, err := s.db.Exec(`INSERT INTO agents (`+agentCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Model, a.PhoneNumber, a.Transport, a.Enabled, a.SystemPrompt,
		a.RespondOnMention, a.RandomChancePct, a.ContextWindow, a.IdlePostEnabled,
		a.TypingEnabled, a.ReadReceipts, a.ReactionEnabled, a.ReactionChancePct,
		a.TriggersEnabled, a.MaxTriggers, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return Agent{}, fmt.Errorf("create agent: %w", err)
	}
	return a, nil
}

// UpdateAgent writes all mutable fields of a back to its row.
func (s *Store) UpdateAgent(a Agent) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`UPDATE agents SET name=?, model=?, phone_number=?, transport=?,
		enabled=?, system_prompt=?, respond_on_mention=?, random_chance_percent=?,
		context_window=?, idle_post_enabled=?, typing_enabled=?, read_receipts_enabled=?,
		reaction_enabled=?, reaction_chance_percent=?, triggers_enabled=?, max_triggers=?,
		updated_at=? WHERE id=?`,
		a.Name, a.Model, a.PhoneNumber, a.Transport, a.Enabled, a.SystemPrompt,
		a.RespondOnMention, a.RandomChancePct, a.ContextWindow, a.IdlePostEnabled,
		a.TypingEnabled, a.ReadReceipts, a.ReactionEnabled, a.ReactionChancePct,
		a.TriggersEnabled, a.MaxTriggers, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAgent fetches one agent by id.
func (s *Store) GetAgent(id string) (Agent, error) {
	a, err := scanAgent(s.db.QueryRow(`SELECT `+agentCols+` FROM agents WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// ListEnabledAgents returns all agents with enabled=true.
func (s *Store) ListEnabledAgents() ([]Agent, error) {
	return s.listAgents(`SELECT ` + agentCols + ` FROM agents WHERE enabled=1 ORDER BY name`)
}

// ListAgents returns every agent.
func (s *Store) ListAgents() ([]Agent, error) {
	return s.listAgents(`SELECT ` + agentCols + ` FROM agents ORDER BY name`)
}

func (s *Store) listAgents(query string, args ...any) ([]Agent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()
	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateChannel inserts a channel row.
func (s *Store) CreateChannel(c Channel) (Channel, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(`INSERT INTO channels (id, name, enabled, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Enabled, c.CreatedAt)
	if err != nil {
		return Channel{}, fmt.Errorf("create channel: %w", err)
	}
	return c, nil
}

// GetChannel fetches one channel by id.
func (s *Store) GetChannel(id string) (Channel, error) {
	var c Channel
	err := s.db.QueryRow(`SELECT id, name, enabled, created_at FROM channels WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &c.Enabled, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return Channel{}, ErrNotFound
	}
	if err != nil {
		return Channel{}, fmt.Errorf("get channel: %w", err)
	}
	return c, nil
}

// SetChannelEnabled flips a channel's enabled flag.
func (s *Store) SetChannelEnabled(id string, enabled bool) error {
	res, err := s.db.Exec(`UPDATE channels SET enabled=? WHERE id=?`, enabled, id)
	if err != nil {
		return fmt.Errorf("set channel enabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignAgent links an agent to a channel. Re-assigning is a no-op.
func (s *Store) AssignAgent(agentID, channelID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO agent_channels (agent_id, channel_id) VALUES (?, ?)`,
		agentID, channelID)
	if err != nil {
		return fmt.Errorf("assign agent: %w", err)
	}
	return nil
}

// IsAssigned reports whether an agent participates in a channel.
func (s *Store) IsAssigned(agentID, channelID string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM agent_channels WHERE agent_id=? AND channel_id=?`,
		agentID, channelID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return n > 0, nil
}

// AgentChannels lists the channels an agent is assigned to.
func (s *Store) AgentChannels(agentID string) ([]Channel, error) {
	rows, err := s.db.Query(`SELECT c.id, c.name, c.enabled, c.created_at
		FROM channels c JOIN agent_channels ac ON ac.channel_id = c.id
		WHERE ac.agent_id=? ORDER BY c.name`, agentID)
	if err != nil {
		return nil, fmt.Errorf("agent channels: %w", err)
	}
	defer rows.Close()
	var out []Channel
	for rows.Next() {
		var c Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ChannelsWithEnabledAgent returns enabled channels that have at least one
// enabled agent assigned. Used by the idle checker and scanner.
func (s *Store) ChannelsWithEnabledAgent() ([]Channel, error) {
	rows, err := s.db.Query(`SELECT DISTINCT c.id, c.name, c.enabled, c.created_at
		FROM channels c
		JOIN agent_channels ac ON ac.channel_id = c.id
		JOIN agents a ON a.id = ac.agent_id
		WHERE c.enabled=1 AND a.enabled=1 ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("channels with agents: %w", err)
	}
	defer rows.Close()
	var out []Channel
	for rows.Next() {
		var c Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FirstEnabledAgentForChannel picks an arbitrary enabled agent assigned to
// the channel, for work that needs any agent (scanner extraction).
func (s *Store) FirstEnabledAgentForChannel(channelID string) (Agent, error) {
	a, err := scanAgent(s.db.QueryRow(`SELECT `+agentCols+` FROM agents
		WHERE enabled=1 AND id IN (SELECT agent_id FROM agent_channels WHERE channel_id=?)
		ORDER BY name LIMIT 1`, channelID))
	if err == sql.ErrNoRows {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, fmt.Errorf("agent for channel: %w", err)
	}
	return a, nil
}

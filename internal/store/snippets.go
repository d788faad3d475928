package store

import (
	"fmt"
	"time"
)

// SaveSnippet stores a memorable exchange for later recall.
func (s *Store) SaveSnippet(sn Snippet) (Snippet, error) {
	sn.CreatedAt = time.Now().UTC()
	res, err := s.db.Exec(`INSERT INTO snippets (channel_id, content, context, times_referenced, created_at)
		VALUES (?, ?, ?, 0, ?)`, sn.ChannelID, sn.Content, sn.Context, sn.CreatedAt)
	if err != nil {
		return Snippet{}, fmt.Errorf("save snippet: %w", err)
	}
	sn.ID, _ = res.LastInsertId()
	return sn, nil
}

// LeastReferencedSnippets returns up to limit snippets for a channel,
// least-recalled first, so recall favours material not yet brought up.
func (s *Store) LeastReferencedSnippets(channelID string, limit int) ([]Snippet, error) {
	rows, err := s.db.Query(`SELECT id, channel_id, content, context, times_referenced, created_at
		FROM snippets WHERE channel_id=? ORDER BY times_referenced ASC, id ASC LIMIT ?`,
		channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	defer rows.Close()
	var out []Snippet
	for rows.Next() {
		var sn Snippet
		if err := rows.Scan(&sn.ID, &sn.ChannelID, &sn.Content, &sn.Context,
			&sn.TimesReferenced, &sn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// IncrementSnippetRef bumps a snippet's recall counter.
func (s *Store) IncrementSnippetRef(id int64) error {
	_, err := s.db.Exec(`UPDATE snippets SET times_referenced = times_referenced + 1 WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("increment snippet: %w", err)
	}
	return nil
}

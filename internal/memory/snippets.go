package memory

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/botherd/botherd/internal/store"
)

const (
	captureChance  = 0.05
	recallChance   = 0.10
	minSnippetLen  = 50
	recallPoolSize = 10
)

// Snippets captures memorable exchanges at random and offers them back
// to prompts later, least-recalled first.
type Snippets struct {
	store  *store.Store
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSnippets(st *store.Store, rng *rand.Rand) *Snippets {
	return &Snippets{
		store:  st,
		logger: slog.With("component", "snippets"),
		rng:    rng,
	}
}

func (s *Snippets) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Snippets) pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// MaybeCapture rolls to save an exchange. Short exchanges never
// qualify.
func (s *Snippets) MaybeCapture(channelID, userText, agentText string) {
	if len(userText)+len(agentText) < minSnippetLen {
		return
	}
	if s.roll() >= captureChance {
		return
	}
	_, err := s.store.SaveSnippet(store.Snippet{
		ChannelID: channelID,
		Content:   userText,
		Context:   agentText,
	})
	if err != nil {
		s.logger.Warn("capture snippet", "channel", channelID, "error", err)
		return
	}
	s.logger.Debug("snippet captured", "channel", channelID)
}

// MaybeRecall rolls to surface an old exchange. Recall draws from the
// least-referenced snippets so the same story is not retold, and bumps
// the chosen snippet's counter.
func (s *Snippets) MaybeRecall(channelID string) (string, bool) {
	if s.roll() >= recallChance {
		return "", false
	}
	pool, err := s.store.LeastReferencedSnippets(channelID, recallPoolSize)
	if err != nil {
		s.logger.Warn("load snippets", "channel", channelID, "error", err)
		return "", false
	}
	if len(pool) == 0 {
		return "", false
	}
	chosen := pool[s.pick(len(pool))]
	if err := s.store.IncrementSnippetRef(chosen.ID); err != nil {
		s.logger.Warn("bump snippet", "snippet", chosen.ID, "error", err)
	}
	return fmt.Sprintf("A while back someone said: %q", chosen.Content), true
}

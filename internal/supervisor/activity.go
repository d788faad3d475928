package supervisor

import (
	"sync"
	"time"
)

// activityMap tracks the last human message per channel and the last
// idle check, in memory. The turn table is the durable record; this map
// just keeps the idle checker off the database.
type activityMap struct {
	mu        sync.Mutex
	lastSeen  map[string]time.Time
	lastCheck map[string]time.Time
}

func newActivityMap() *activityMap {
	return &activityMap{
		lastSeen:  make(map[string]time.Time),
		lastCheck: make(map[string]time.Time),
	}
}

func (m *activityMap) touch(channelID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if at.After(m.lastSeen[channelID]) {
		m.lastSeen[channelID] = at
	}
}

func (m *activityMap) last(channelID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lastSeen[channelID]
	return t, ok
}

func (m *activityMap) lastIdleCheck(channelID string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCheck[channelID]
}

func (m *activityMap) markIdleCheck(channelID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCheck[channelID] = at
}

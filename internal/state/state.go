package state

import "sync"

// Action marks what the next free-text message from a user means.
type Action string

const (
	ActionRegister  Action = "register"
	ActionAnswer    Action = "answer"
	ActionBroadcast Action = "broadcast"
)

// Pending is the per-user conversation state. TeamName is only set for
// ActionAnswer, and only when the team was resolved at /answer time.
type Pending struct {
	Action   Action
	TeamName string
}

// Table maps user IDs to pending actions. It lives in memory only: a restart
// drops every pending conversation, which is acceptable for this bot.
// The last write for a user wins.
type Table struct {
	mu sync.RWMutex
	m  map[int64]Pending
}

func NewTable() *Table {
	return &Table{m: make(map[int64]Pending)}
}

func (t *Table) Set(userID int64, p Pending) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[userID] = p
}

func (t *Table) Get(userID int64) (Pending, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.m[userID]
	return p, ok
}

func (t *Table) Clear(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, userID)
}

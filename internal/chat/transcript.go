package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TurnStatus tracks delivery of a user turn. Assistant turns are always
// delivered.
type TurnStatus string

const (
	StatusPending   TurnStatus = "pending"
	StatusDelivered TurnStatus = "delivered"
	StatusFailed    TurnStatus = "failed"
)

type Turn struct {
	ID      string
	Role    Role
	Content string
	Status  TurnStatus
	Time    time.Time
}

// Transcript is the append-only, session-local sequence of turns. Only the
// status of a turn may change after it was appended.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

func NewTranscript(now func() time.Time) *Transcript {
	if now == nil {
		now = time.Now
	}
	return &Transcript{now: now}
}

func (t *Transcript) AppendUser(content string) Turn {
	return t.append(RoleUser, content, StatusPending)
}

func (t *Transcript) AppendAssistant(content string) Turn {
	return t.append(RoleAssistant, content, StatusDelivered)
}

func (t *Transcript) append(role Role, content string, status TurnStatus) Turn {
	turn := Turn{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		Status:  status,
		Time:    t.now(),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turn)
	return turn
}

// SetStatus updates the status of the turn with the given ID.
func (t *Transcript) SetStatus(id string, status TurnStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.turns {
		if t.turns[i].ID == id {
			t.turns[i].Status = status
			return true
		}
	}
	return false
}

// Turns returns a copy in append order.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Turn(nil), t.turns...)
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

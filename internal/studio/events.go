package studio

import (
	"sync"
	"time"

	"github.com/ashureev/agent-studio/internal/domain"
)

// EventType names a studio state change.
type EventType string

const (
	EventMessageAppended  EventType = "message.appended"
	EventThreadRestored   EventType = "thread.restored"
	EventThreadCleared    EventType = "thread.cleared"
	EventSelectionChanged EventType = "selection.changed"
	EventPanelsUpdated    EventType = "panels.updated"
	EventTrainingJobs     EventType = "training.jobs"
	EventBusyChanged      EventType = "busy.changed"
	EventError            EventType = "error"
)

// Event is published to subscribers after each change.
type Event struct {
	Type    EventType             `json:"type"`
	Key     string                `json:"key,omitempty"`
	Message *domain.StoredMessage `json:"message,omitempty"`
	Jobs    []domain.TrainingJob  `json:"jobs,omitempty"`
	Error   string                `json:"error,omitempty"`
	At      time.Time             `json:"at"`
}

// broker fans events out to subscribers. Slow subscribers lose events
// rather than block the studio.
type broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan Event)}
}

func (b *broker) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *broker) publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

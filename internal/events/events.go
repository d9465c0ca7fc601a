package events

import (
	"context"
	"time"

	uuid2 "github.com/google/uuid"
)

type EventType string

const (
	QuestionCreated   EventType = "question.created"
	QuestionUpdated   EventType = "question.updated"
	QuestionDeleted   EventType = "question.deleted"
	QuestionsImported EventType = "questions.imported"
	LookupCreated     EventType = "lookup.created"
	LookupUpdated     EventType = "lookup.updated"
	LookupDeleted     EventType = "lookup.deleted"
)

// Event is one catalog change as published on the events topic
type Event struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	ActorID    string                 `json:"actor_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent stamps a new event with an id and the current time
func NewEvent(eventType EventType, actorID string, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid2.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Payload:    payload,
	}
}

// EventPublisher delivers catalog events. Callers publish after their
// transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventJobCreated   EventType = "job_created"
	EventJobProgress  EventType = "job_progress"
	EventJobAnalyzed  EventType = "job_analyzed"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
	EventJobDeleted   EventType = "job_deleted"
)

// Event represents a system event
type Event struct {
	Type    EventType
	JobID   string
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}

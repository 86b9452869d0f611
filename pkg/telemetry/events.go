package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the tomlsnap system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// ConversionID is the associated conversion ID, if applicable.
	ConversionID string `json:"conversion_id,omitempty"`

	// Document is the document name or path, if applicable.
	Document string `json:"document,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for conversion lifecycle events.
const (
	EventTypeConversionStarted   = "conversion.started"
	EventTypeConversionSucceeded = "conversion.succeeded"
	EventTypeConversionFailed    = "conversion.failed"
	EventTypeSnapshotClosed      = "snapshot.closed"
	EventTypeDocumentChanged     = "document.changed"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventPublisher fans events out to subscribers through a buffered channel so
// publishing never blocks a conversion pass.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []EventSubscriber
	mu          sync.RWMutex
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewEventPublisher creates a new event publisher with the given
// configuration. A disabled publisher accepts and drops every event.
func NewEventPublisher(cfg EventsConfig) *EventPublisher {
	p := &EventPublisher{
		config: cfg,
		done:   make(chan struct{}),
	}
	if !cfg.Enabled {
		return p
	}

	p.buffer = make(chan Event, cfg.BufferSize)
	p.wg.Add(1)
	go p.dispatch()
	return p
}

// Subscribe registers a subscriber for all future events.
func (p *EventPublisher) Subscribe(sub EventSubscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, sub)
}

// Publish enqueues an event, assigning its ID and timestamp. Events published
// while the buffer is full are dropped rather than blocking the caller.
func (p *EventPublisher) Publish(event Event) {
	if p == nil || p.buffer == nil {
		return
	}
	event.ID = uuid.New().String()
	event.Timestamp = time.Now()

	select {
	case p.buffer <- event:
	default:
		// Buffer full: conversions must never block on telemetry.
	}
}

// Close stops the dispatch loop after draining buffered events.
func (p *EventPublisher) Close() {
	if p == nil || p.buffer == nil {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// dispatch delivers buffered events to subscribers in order.
func (p *EventPublisher) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.buffer:
			p.deliver(event)
		case <-p.done:
			// Drain what is left, then stop.
			for {
				select {
				case event := <-p.buffer:
					p.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (p *EventPublisher) deliver(event Event) {
	p.mu.RLock()
	subs := p.subscribers
	p.mu.RUnlock()
	for _, sub := range subs {
		sub(event)
	}
}

// Package events is the in-process pub/sub plane. Workflow services emit
// events here; the notification hub and any future consumers subscribe.
package events

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Emitter is the publishing side of the bus. Services depend on this
// interface so tests can capture emitted events.
type Emitter interface {
	Emit(eventType, subject string, data map[string]any)
}

// Event types emitted across the system.
const (
	TypeAssetTransitioned  = "asset.transitioned"
	TypeLoanRequested      = "loan.requested"
	TypeLoanDecided        = "loan.decided"
	TypeLoanReturned       = "loan.returned"
	TypeLoanOverdue        = "loan.overdue"
	TypeRentalDispatched   = "rental.dispatched"
	TypeRentalReturned     = "rental.returned"
	TypeRentalOverdue      = "rental.overdue"
	TypeWorkOrderAssigned  = "workorder.assigned"
	TypeWorkOrderCompleted = "workorder.completed"
	TypeApprovalRequested  = "approval.requested"
	TypeApprovalDecided    = "approval.decided"
	TypeTimesheetMoved     = "timesheet.moved"
	TypeBillingInvoiced    = "billing.invoiced"
	TypeSensorAlert        = "sensor.alert"
	TypeMaintenanceDue     = "maintenance.due"
	TypeNotification       = "notification.created"
)

// Event is the envelope carried on the bus and fanned out over websockets.
type Event struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Subject string         `json:"subject,omitempty"`
	Time    time.Time      `json:"time"`
	Data    map[string]any `json:"data,omitempty"`
}

// NewEvent builds an envelope with a fresh id and timestamp.
func NewEvent(eventType, subject string, data map[string]any) *Event {
	return &Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Subject: subject,
		Time:    time.Now().UTC(),
		Data:    data,
	}
}

// JSON serializes the event.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Bus is an in-process pub/sub bus. Delivery is best effort: a subscriber
// whose buffer is full misses the event rather than blocking publishers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *Event
	allSubs     []chan *Event
	logger      *log.Logger
	bufferSize  int
}

// NewBus creates a bus with the default per-subscriber buffer.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string][]chan *Event),
		logger:      log.New(log.Writer(), "[Events] ", log.LstdFlags),
		bufferSize:  100,
	}
}

// Subscribe returns a channel receiving the given event types, or all
// events when no types are named.
func (b *Bus) Subscribe(eventTypes ...string) chan *Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *Event, b.bufferSize)
	if len(eventTypes) == 0 {
		b.allSubs = append(b.allSubs, ch)
	} else {
		for _, et := range eventTypes {
			b.subscribers[et] = append(b.subscribers[et], ch)
		}
	}
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (b *Bus) Unsubscribe(ch chan *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for et, subs := range b.subscribers {
		filtered := make([]chan *Event, 0, len(subs))
		for _, s := range subs {
			if s != ch {
				filtered = append(filtered, s)
			}
		}
		b.subscribers[et] = filtered
	}
	filtered := make([]chan *Event, 0, len(b.allSubs))
	for _, s := range b.allSubs {
		if s != ch {
			filtered = append(filtered, s)
		}
	}
	b.allSubs = filtered
	close(ch)
}

// Publish delivers to every matching subscriber without blocking.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			b.logger.Printf("dropped %s for slow subscriber", event.Type)
		}
	}
	for _, ch := range b.allSubs {
		select {
		case ch <- event:
		default:
			b.logger.Printf("dropped %s for slow subscriber", event.Type)
		}
	}
}

// Emit builds and publishes an event.
func (b *Bus) Emit(eventType, subject string, data map[string]any) {
	b.Publish(NewEvent(eventType, subject, data))
}

// SubscriberCount returns the number of active subscription channels.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := len(b.allSubs)
	for _, subs := range b.subscribers {
		count += len(subs)
	}
	return count
}

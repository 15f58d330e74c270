package events

import (
	"sync"
	"time"
)

// EventType indicates the category of an effect event.
type EventType string

const (
	EventEffectApplied   EventType = "EFFECT_APPLIED"
	EventEffectRemoved   EventType = "EFFECT_REMOVED"
	EventApplyRejected   EventType = "APPLY_REJECTED"
	EventRemoveRejected  EventType = "REMOVE_REJECTED"
	EventPatchFailed     EventType = "PATCH_FAILED"
	EventCharacterWiped  EventType = "CHARACTER_WIPED"
	EventCharacterSaved  EventType = "CHARACTER_SAVED"
	EventResourceChanged EventType = "RESOURCE_CHANGED"
)

// Event carries details about something that happened to a target record.
type Event struct {
	Type        EventType         `json:"type"`
	TargetID    string            `json:"target_id,omitempty"`
	EffectID    string            `json:"effect_id,omitempty"`
	InstanceID  string            `json:"instance_id,omitempty"`
	Adapter     string            `json:"adapter,omitempty"`
	Amount      int               `json:"amount"`
	Reason      string            `json:"reason,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Description string            `json:"description,omitempty"`
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
// A nil bus drops the event.
func (bus *EventBus) Publish(event Event) {
	if bus == nil {
		return
	}
	bus.mu.RLock()
	listeners := make([]Listener, 0, len(bus.listeners))
	for _, l := range bus.listeners {
		listeners = append(listeners, l)
	}
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
	for _, listener := range typed {
		listener.Callback(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, targetID, effectID, instanceID string) Event {
	return Event{
		Type:       eventType,
		TargetID:   targetID,
		EffectID:   effectID,
		InstanceID: instanceID,
		Timestamp:  time.Now(),
		Metadata:   make(map[string]string),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, targetID, effectID, instanceID string, amount int) Event {
	evt := NewEvent(eventType, targetID, effectID, instanceID)
	evt.Amount = amount
	return evt
}

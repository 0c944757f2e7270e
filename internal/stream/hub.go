// Package stream implements the push-only, single-subscriber event hub
// the orchestrator uses to publish one simulation run's progress:
// status lines, live snapshots and a terminal complete or error event.
//
// Grounded on jwmdev-brt08/backend/server/server.go's handleStream (a
// typed-event channel drained by a single HTTP handler goroutine,
// writing SSE frames as they arrive), adapted from net/http's Flusher
// to Fiber's fasthttp.RequestCtx.SetBodyStreamWriter, and generalized
// from one fixed event-type switch to the four tagged event
// kinds with differing backpressure policy.
package stream

import (
	"context"
	"sync"

	"github.com/smartcity/trafficsim/internal/domain"
)

// EventType tags the kind of payload an Event carries.
type EventType string

const (
	EventStatus EventType = "status"
	EventLiveData EventType = "live_data"
	EventComplete EventType = "complete"
	EventError EventType = "error"
)

// Event is one item delivered to the subscriber.
type Event struct {
	Type EventType `json:"type"`
	Payload interface{} `json:"payload"`
}

// Frame builds the value marshaled as <json> in this event's
// `data: <json>\n\n` SSE frame; the caller writes the data prefix. Every
// frame carries a top-level type field; status and error frames
// additionally flatten their message to a top-level message field for
// clients that only look for that legacy key, and complete flattens its
// response the same way rather than nesting it under payload.
func (e Event) Frame() interface{} {
	switch e.Type {
	case EventStatus, EventError:
		message, _ := e.Payload.(string)
		return struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{Type: e.Type, Message: message}
	case EventLiveData:
		payload, _ := e.Payload.(LiveDataPayload)
		return struct {
			Type     EventType           `json:"type"`
			Snapshot domain.LiveSnapshot `json:"snapshot"`
			Message  string              `json:"message"`
		}{Type: e.Type, Snapshot: payload.Snapshot, Message: payload.Message}
	case EventComplete:
		return struct {
			Type     EventType   `json:"type"`
			Done     bool        `json:"done"`
			Response interface{} `json:"response"`
		}{Type: e.Type, Done: true, Response: e.Payload}
	default:
		return struct {
			Type    EventType   `json:"type"`
			Payload interface{} `json:"payload"`
		}{Type: e.Type, Payload: e.Payload}
	}
}

// LiveDataPayload bundles a snapshot with the brief human-readable
// message the wire protocol attaches to live_data events.
type LiveDataPayload struct {
	Snapshot domain.LiveSnapshot `json:"snapshot"`
	Message string `json:"message"`
}

const controlBuffer = 8

// Hub fans out one simulation run's events to at most one subscriber.
// live_data uses a buffer-1 overwrite-newest policy so a slow subscriber
// never stalls the simulation loop; status/complete/error are delivered
// through a small buffered channel since they are infrequent and must
// not be silently dropped.
type Hub struct {
	live chan LiveDataPayload
	events chan Event
	done chan struct{}
	once sync.Once
}

// New creates a hub for a single run.
func New() *Hub {
	return &Hub{
		live: make(chan LiveDataPayload, 1),
		events: make(chan Event, controlBuffer),
		done: make(chan struct{}),
	}
}

// PushLive publishes a live snapshot, overwriting any snapshot still
// waiting to be consumed (bounded buffer, keep latest).
func (h *Hub) PushLive(snapshot domain.LiveSnapshot, message string) {
	payload := LiveDataPayload{Snapshot: snapshot, Message: message}
	select {
	case h.live <- payload:
		return
	default:
	}
	select {
	case <-h.live:
	default:
	}
	select {
	case h.live <- payload:
	default:
	}
}

// PushStatus publishes a human-readable progress line.
func (h *Hub) PushStatus(message string) {
	h.send(Event{Type: EventStatus, Payload: message})
}

// PushComplete publishes the final response and marks the hub as done;
// no further events are delivered afterward.
func (h *Hub) PushComplete(result domain.SimulationResult) {
	h.send(Event{Type: EventComplete, Payload: result})
	h.Close()
}

// PushError publishes a terminal error and marks the hub as done.
func (h *Hub) PushError(message string) {
	h.send(Event{Type: EventError, Payload: message})
	h.Close()
}

func (h *Hub) send(e Event) {
	select {
	case h.events <- e:
	case <-h.done:
	}
}

// Close terminates the hub. Safe to call more than once.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

// Subscribe returns a channel of events for the single subscriber to
// range over. The channel is closed when the hub is closed or ctx is
// cancelled (subscriber cancellation promptly terminates
// delivery).
func (h *Hub) Subscribe(ctx context.Context) <-chan Event {
	out := make(chan Event, controlBuffer)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				// Drain any already-queued control events (e.g. the
				// terminal complete/error) before closing out.
				for {
					select {
					case e := <-h.events:
						select {
						case out <- e:
						case <-ctx.Done():
							return
						}
					default:
						return
					}
				}
			case e := <-h.events:
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			case payload := <-h.live:
				select {
				case out <- Event{Type: EventLiveData, Payload: payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

package httpapi

import (
	"sync"
	"time"

	"pkt.systems/loopgate/schema"
	"pkt.systems/pslog"
)

// StreamEvent is sent to WebSocket clients.
type StreamEvent struct {
	Seq       uint64                     `json:"seq"`
	Type      string                     `json:"type"`
	Data      string                     `json:"data,omitempty"`
	Replace   bool                       `json:"replace,omitempty"`
	Status    *schema.ProcessStatusEvent `json:"status,omitempty"`
	Timestamp time.Time                  `json:"timestamp"`
}

const (
	eventTypeLog           = "log"
	eventTypeProcessStatus = "processStatus"
)

// Hub broadcasts runner events to connected clients. It also folds log
// events into its own bounded buffer so a new subscriber's snapshot and its
// event stream cut over at exactly one point: anything folded before
// Subscribe is in the snapshot, anything after arrives as an event.
type Hub struct {
	mu   sync.Mutex
	seq  uint64
	logs []byte
	subs map[chan StreamEvent]struct{}
	log  pslog.Logger
}

const hubLogMaxBytes = schema.DefaultLogMaxBytes

// NewHub constructs a hub.
func NewHub(logger pslog.Logger) *Hub {
	return &Hub{
		subs: make(map[chan StreamEvent]struct{}),
		log:  logger,
	}
}

// OnLog implements core.EventSink.
func (h *Hub) OnLog(event schema.LogEvent) {
	h.publish(StreamEvent{
		Type:      eventTypeLog,
		Data:      event.Data,
		Replace:   event.Replace,
		Timestamp: time.Now(),
	})
}

// OnProcessStatus implements core.EventSink.
func (h *Hub) OnProcessStatus(event schema.ProcessStatusEvent) {
	status := event
	h.publish(StreamEvent{
		Type:      eventTypeProcessStatus,
		Status:    &status,
		Timestamp: time.Now(),
	})
}

// Subscribe registers a client channel and returns the log snapshot current
// at registration. Events queued after Subscribe are strictly newer than the
// snapshot. The returned func unsubscribes; the channel is never closed, so
// a late publish cannot hit a closed channel.
func (h *Hub) Subscribe() (string, <-chan StreamEvent, func()) {
	h.mu.Lock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = struct{}{}
	snapshot := string(h.logs)
	count := len(h.subs)
	h.mu.Unlock()
	if h.log != nil {
		h.log.Debug("hub subscribe", "subs", count)
	}
	unsub := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		remaining := len(h.subs)
		h.mu.Unlock()
		if h.log != nil {
			h.log.Debug("hub unsubscribe", "subs", remaining)
		}
	}
	return snapshot, ch, unsub
}

func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	if event.Type == eventTypeLog {
		h.foldLocked(event)
	}
	h.seq++
	event.Seq = h.seq
	subs := make([]chan StreamEvent, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 && h.log != nil {
		h.log.Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}

// foldLocked mirrors a log event into the hub's own buffer, front-trimmed
// the same way the runner trims its buffer. Callers must hold mu.
func (h *Hub) foldLocked(event StreamEvent) {
	if event.Replace {
		h.logs = append(h.logs[:0], event.Data...)
	} else {
		h.logs = append(h.logs, event.Data...)
	}
	if len(h.logs) > hubLogMaxBytes {
		trim := len(h.logs) - hubLogMaxBytes
		h.logs = append(h.logs[:0], h.logs[trim:]...)
	}
}

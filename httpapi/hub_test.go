package httpapi

import (
	"fmt"
	"testing"

	"pkt.systems/loopgate/schema"
)

func TestSubscribeSnapshotExcludesQueuedEvents(t *testing.T) {
	hub := NewHub(nil)
	hub.OnLog(schema.LogEvent{Data: "before "})
	hub.OnLog(schema.LogEvent{Data: "subscribe"})

	snapshot, events, unsub := hub.Subscribe()
	defer unsub()
	if snapshot != "before subscribe" {
		t.Fatalf("snapshot = %q", snapshot)
	}
	select {
	case event := <-events:
		t.Fatalf("snapshot content also queued as event: %+v", event)
	default:
	}

	hub.OnLog(schema.LogEvent{Data: " and after"})
	event := <-events
	if event.Type != eventTypeLog || event.Data != " and after" {
		t.Fatalf("event = %+v", event)
	}
}

func TestSubscribeSnapshotHonorsReplace(t *testing.T) {
	hub := NewHub(nil)
	hub.OnLog(schema.LogEvent{Data: "stale"})
	hub.OnLog(schema.LogEvent{Data: "", Replace: true})
	hub.OnLog(schema.LogEvent{Data: "fresh"})

	snapshot, _, unsub := hub.Subscribe()
	defer unsub()
	if snapshot != "fresh" {
		t.Fatalf("snapshot = %q, want %q", snapshot, "fresh")
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			hub.OnLog(schema.LogEvent{Data: fmt.Sprintf("chunk %d", i)})
		}
	}()
	// Churning subscribers while publishing must never panic; a publish
	// landing after unsubscribe is simply dropped.
	for i := 0; i < 2000; i++ {
		_, _, unsub := hub.Subscribe()
		unsub()
	}
	<-done
}

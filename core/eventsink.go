package core

import "pkt.systems/loopgate/schema"

// EventSink receives command output and lifecycle events from the runner.
type EventSink interface {
	OnLog(event schema.LogEvent)
	OnProcessStatus(event schema.ProcessStatusEvent)
}

// Fanout delivers events to multiple sinks.
type Fanout struct {
	sinks []EventSink
}

// NewFanout combines sinks into one. Nil sinks are skipped.
func NewFanout(sinks ...EventSink) Fanout {
	return Fanout{sinks: sinks}
}

// OnLog implements EventSink.
func (f Fanout) OnLog(event schema.LogEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnLog(event)
	}
}

// OnProcessStatus implements EventSink.
func (f Fanout) OnProcessStatus(event schema.ProcessStatusEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnProcessStatus(event)
	}
}

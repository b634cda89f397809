package loopgate

import (
	"pkt.systems/loopgate/schema"
	"pkt.systems/pslog"
)

// traceSink mirrors runner events into the structured log at trace level.
type traceSink struct {
	log pslog.Logger
}

func (s traceSink) OnLog(event schema.LogEvent) {
	if s.log == nil {
		return
	}
	s.log.Trace("command output", "bytes", len(event.Data), "replace", event.Replace)
}

func (s traceSink) OnProcessStatus(event schema.ProcessStatusEvent) {
	if s.log == nil {
		return
	}
	if event.Error != "" {
		s.log.Trace("command status", "running", event.Running, "err", event.Error)
		return
	}
	if event.ExitCode != nil {
		s.log.Trace("command status", "running", event.Running, "exit_code", *event.ExitCode)
		return
	}
	s.log.Trace("command status", "running", event.Running)
}

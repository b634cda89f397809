// Package loopgate wires a feedback UI session together: command runner,
// session store, event hub, and the HTTP server that hosts the browser UI.
package loopgate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"

	"pkt.systems/loopgate/core"
	"pkt.systems/loopgate/httpapi"
	"pkt.systems/loopgate/internal/sessionstore"
	"pkt.systems/pslog"
)

// ServerConfig configures a UI session server.
type ServerConfig struct {
	ProjectDir  string
	Prompt      string
	OutputFile  string
	StateDir    string
	MaxLogBytes int
	HTTP        httpapi.Config
}

// Server hosts one feedback session. It terminates on its own once
// feedback has been submitted and the close delay has elapsed.
type Server struct {
	cfg    ServerConfig
	log    pslog.Logger
	runner *core.Runner
	store  *sessionstore.Store
	hub    *httpapi.Hub
	api    *httpapi.Server

	ln     net.Listener
	port   int
	cancel context.CancelFunc
	done   chan error
}

// New constructs a session server.
func New(cfg ServerConfig, logger pslog.Logger) (*Server, error) {
	if cfg.ProjectDir == "" {
		return nil, errors.New("project directory is required")
	}
	if cfg.OutputFile == "" {
		return nil, errors.New("output file is required")
	}
	store, err := sessionstore.NewStoreWithLogger(filepath.Join(cfg.StateDir, "sessions"), logger)
	if err != nil {
		return nil, err
	}
	hub := httpapi.NewHub(logger)
	runner := core.NewRunner(cfg.ProjectDir, cfg.MaxLogBytes, core.NewFanout(hub, traceSink{log: logger}), logger)
	return &Server{
		cfg:    cfg,
		log:    logger,
		runner: runner,
		store:  store,
		hub:    hub,
		done:   make(chan error, 1),
	}, nil
}

// Start binds the listener and begins serving. The session becomes
// submittable once Start returns nil.
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.api = httpapi.NewServer(s.cfg.HTTP, httpapi.Deps{
		ProjectDir: s.cfg.ProjectDir,
		Prompt:     s.cfg.Prompt,
		OutputFile: s.cfg.OutputFile,
		Runner:     s.runner,
		Store:      s.store,
		Hub:        s.hub,
		Shutdown:   s.Stop,
		Logger:     s.log,
	})

	ln, port, err := httpapi.Listen(s.cfg.HTTP.PreferredPort, s.cfg.HTTP.PortProbeSpan)
	if err != nil {
		cancel()
		return err
	}
	s.ln = ln
	s.port = port
	s.api.MarkListening()
	s.log.Info("ui session listening", "url", s.URL(), "project", s.cfg.ProjectDir)

	s.autoRun(runCtx)

	go func() {
		err := httpapi.Serve(runCtx, ln, s.api.Handler())
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	return nil
}

// autoRun kicks off the saved command when the project opted in, so logs
// are already streaming when the browser connects.
func (s *Server) autoRun(ctx context.Context) {
	cfg := s.store.Load(s.cfg.ProjectDir)
	if !cfg.ExecuteAutomatically || cfg.RunCommand == "" {
		return
	}
	s.log.Info("auto-running saved command", "command", cfg.RunCommand)
	go func() {
		if err := s.runner.Run(ctx, cfg.RunCommand); err != nil {
			s.log.Warn("auto-run failed", "command", cfg.RunCommand, "err", err)
		}
	}()
}

// Wait blocks until the session has terminated and returns the serve error,
// if any. The runner is always stopped before Wait returns.
func (s *Server) Wait() error {
	err := <-s.done
	s.runner.Stop()
	return err
}

// Stop cancels the serve context, unwinding the HTTP server.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// URL returns the browsable address once Start has succeeded.
func (s *Server) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/", s.port)
}

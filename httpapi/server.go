// Package httpapi serves the feedback UI: a localhost HTTP API plus a
// WebSocket stream of command output.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/loopgate/core"
	"pkt.systems/loopgate/internal/ignore"
	"pkt.systems/loopgate/internal/logx"
	"pkt.systems/loopgate/internal/markdown"
	"pkt.systems/loopgate/internal/sessionstore"
	"pkt.systems/loopgate/internal/speech"
	"pkt.systems/loopgate/schema"
	"pkt.systems/pslog"
)

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Enabled() bool
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// Deps carries the collaborators of a feedback session.
type Deps struct {
	ProjectDir string
	Prompt     string
	OutputFile string
	Runner     *core.Runner
	Store      *sessionstore.Store
	Hub        *Hub
	Speech     Transcriber
	// Shutdown is invoked after the post-submission close delay.
	Shutdown func()
	Logger   pslog.Logger
}

// Server serves the feedback UI for one session.
type Server struct {
	cfg     Config
	deps    Deps
	ignores *ignore.Matcher
	session *session
	log     pslog.Logger
}

// NewServer constructs a UI session server.
func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if deps.Speech == nil {
		deps.Speech = speech.NewFromEnv(logger)
	}
	if cfg.CloseDelay <= 0 {
		cfg.CloseDelay = 300 * time.Millisecond
	}
	return &Server{
		cfg:     cfg,
		deps:    deps,
		ignores: ignore.Load(deps.ProjectDir),
		session: &session{},
		log:     logx.WithComponent(logger, "httpapi"),
	}
}

// MarkListening records that the listener is bound and the UI reachable.
func (s *Server) MarkListening() {
	s.session.markListening()
}

// State returns the session state.
func (s *Server) State() SessionState {
	return s.session.State()
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/run-command", s.handleRunCommand)
	mux.HandleFunc("/api/stop-command", s.handleStopCommand)
	mux.HandleFunc("/api/submit-feedback", s.handleSubmitFeedback)
	mux.HandleFunc("/api/browse-files", s.handleBrowseFiles)
	mux.HandleFunc("/api/transcribe", s.handleTranscribe)
	mux.HandleFunc("/ws", s.handleWS)

	return withRequestLogging(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	// Clients may upgrade on the root path as well as /ws.
	if websocket.IsWebSocketUpgrade(r) {
		s.handleWS(w, r)
		return
	}
	data, err := fs.ReadFile(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	stat, err := fs.Stat(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, "index.html", stat.ModTime(), strings.NewReader(string(data)))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleConfigGet(w, r)
	case http.MethodPost:
		s.handleConfigPost(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConfigGet(w http.ResponseWriter, _ *http.Request) {
	cfg := s.deps.Store.Load(s.deps.ProjectDir)
	writeJSON(w, http.StatusOK, map[string]any{
		"project_directory": s.deps.ProjectDir,
		"prompt":            s.deps.Prompt,
		"prompt_html":       markdown.RenderHTML(s.deps.Prompt),
		"config":            cfg,
		"speech_enabled":    s.deps.Speech.Enabled(),
	})
}

func (s *Server) handleConfigPost(w http.ResponseWriter, r *http.Request) {
	log := s.log.With("remote", clientIP(r))
	var patch struct {
		RunCommand            *string         `json:"run_command"`
		ExecuteAutomatically  *bool           `json:"execute_automatically"`
		CommandSectionVisible *bool           `json:"command_section_visible"`
		WindowGeometry        json.RawMessage `json:"window_geometry"`
	}
	if err := decodeJSON(r.Body, &patch); err != nil {
		log.Warn("config decode failed", "err", err)
		writeError(w, http.StatusBadRequest, schema.ErrInvalidRequest)
		return
	}
	cfg := s.deps.Store.Load(s.deps.ProjectDir)
	if patch.RunCommand != nil {
		cfg.RunCommand = *patch.RunCommand
	}
	if patch.ExecuteAutomatically != nil {
		cfg.ExecuteAutomatically = *patch.ExecuteAutomatically
	}
	if patch.CommandSectionVisible != nil {
		cfg.CommandSectionVisible = *patch.CommandSectionVisible
	}
	if len(patch.WindowGeometry) > 0 {
		cfg.WindowGeometry = patch.WindowGeometry
	}
	if err := s.deps.Store.Save(s.deps.ProjectDir, cfg); err != nil {
		log.Warn("config save failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
}

func (s *Server) handleRunCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := s.log.With("remote", clientIP(r))
	var payload struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("run-command decode failed", "err", err)
		writeError(w, http.StatusBadRequest, schema.ErrInvalidRequest)
		return
	}
	command := strings.TrimSpace(payload.Command)
	if command == "" {
		writeError(w, http.StatusBadRequest, schema.ErrEmptyCommand)
		return
	}
	// Fire and forget; output and completion stream over the WebSocket.
	go func() {
		if err := s.deps.Runner.Run(context.Background(), command); err != nil {
			log.Warn("command run failed", "command", command, "err", err)
		}
	}()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleStopCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.deps.Runner.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := s.log.With("remote", clientIP(r))
	var payload struct {
		Feedback string `json:"feedback"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("submit decode failed", "err", err)
		writeError(w, http.StatusBadRequest, schema.ErrInvalidRequest)
		return
	}
	feedback := strings.TrimSpace(payload.Feedback)
	if feedback == "" {
		writeError(w, http.StatusBadRequest, schema.ErrEmptyFeedback)
		return
	}
	if err := s.session.submit(); err != nil {
		status := http.StatusConflict
		if errors.Is(err, schema.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		log.Warn("submit rejected", "state", s.session.State().String(), "err", err)
		writeError(w, status, err)
		return
	}
	result := schema.FeedbackResult{
		CommandLogs:         s.deps.Runner.Logs(),
		InteractiveFeedback: feedback,
	}
	if err := writeHandoff(s.deps.OutputFile, result); err != nil {
		s.session.rollback()
		log.Error("handoff write failed", "path", s.deps.OutputFile, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.Info("feedback submitted", "feedback_len", len(feedback), "logs_len", len(result.CommandLogs))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
	time.AfterFunc(s.cfg.CloseDelay, s.close)
}

// close tears the session down after a successful submission.
func (s *Server) close() {
	s.session.beginClose()
	s.deps.Runner.Stop()
	s.deps.Runner.ClearLogs()
	s.session.markTerminated()
	s.log.Info("session closed")
	if s.deps.Shutdown != nil {
		s.deps.Shutdown()
	}
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := s.log.With("remote", clientIP(r))
	if !s.deps.Speech.Enabled() {
		writeError(w, http.StatusServiceUnavailable, schema.ErrSpeechDisabled)
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, schema.ErrInvalidRequest)
		return
	}
	defer func() { _ = file.Close() }()
	text, err := s.deps.Speech.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		log.Warn("transcription failed", "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": text})
}

// writeHandoff writes the feedback result atomically so the waiting parent
// never observes a partial file.
func writeHandoff(path string, result schema.FeedbackResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "handoff-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

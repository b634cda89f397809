// Package sessionstore persists per-project UI preferences as JSON files.
package sessionstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"pkt.systems/loopgate/schema"
	"pkt.systems/pslog"
)

// Store persists session configs to disk, one file per project directory.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a store rooted at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Load reads the config for a project directory. A missing or unreadable
// file yields the defaults; stored fields are merged over them.
func (s *Store) Load(projectDir string) schema.SessionConfig {
	cfg := schema.DefaultSessionConfig()
	path := s.pathForProject(projectDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && s.log != nil {
			s.log.Warn("session config load failed", "project", projectDir, "err", err)
		}
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		if s.log != nil {
			s.log.Warn("session config load failed", "project", projectDir, "err", err)
		}
		return schema.DefaultSessionConfig()
	}
	if s.log != nil {
		s.log.Debug("session config load ok", "project", projectDir)
	}
	return cfg
}

// Save writes the config for a project directory atomically.
func (s *Store) Save(projectDir string, cfg schema.SessionConfig) error {
	path := s.pathForProject(projectDir)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "session-*.json")
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
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Trace("session config save ok", "project", projectDir)
	}
	return nil
}

// pathForProject derives a stable, human-recognizable file name from a
// project directory: its basename plus a short hash of the full path, so
// equally named projects in different locations stay isolated.
func (s *Store) pathForProject(projectDir string) string {
	clean := filepath.Clean(projectDir)
	name := sanitize(filepath.Base(clean))
	if name == "" {
		name = "project"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(clean))
	return filepath.Join(s.dir, fmt.Sprintf("%s_%08x.json", name, h.Sum32()))
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}

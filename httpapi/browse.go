package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pkt.systems/loopgate/schema"
)

// BrowseEntry is one row in a directory listing.
type BrowseEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

func (s *Server) handleBrowseFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := s.log.With("remote", clientIP(r))
	requested := r.URL.Query().Get("path")

	abs, rel, err := s.resolveProjectPath(requested)
	if err != nil {
		log.Warn("browse rejected", "path", requested, "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if !info.IsDir() {
		writeError(w, http.StatusBadRequest, schema.ErrNotADirectory)
		return
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	entries := make([]BrowseEntry, 0, len(dirEntries))
	for _, entry := range dirEntries {
		entryRel := filepath.ToSlash(filepath.Join(rel, entry.Name()))
		if s.ignores.Ignored(entryRel, entry.IsDir()) {
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil && !entry.IsDir() {
			size = info.Size()
		}
		entries = append(entries, BrowseEntry{
			Name:  entry.Name(),
			Path:  entryRel,
			IsDir: entry.IsDir(),
			Size:  size,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"path":    filepath.ToSlash(rel),
		"entries": entries,
	})
}

// resolveProjectPath resolves a requested path against the project root and
// rejects anything that escapes it. Returns the absolute path and the
// root-relative path.
func (s *Server) resolveProjectPath(requested string) (abs string, rel string, err error) {
	root, err := filepath.Abs(s.deps.ProjectDir)
	if err != nil {
		return "", "", err
	}
	root = filepath.Clean(root)

	target := requested
	if target == "" {
		target = "."
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	abs, err = filepath.Abs(target)
	if err != nil {
		return "", "", err
	}
	abs = filepath.Clean(abs)

	if abs != root && !strings.HasPrefix(abs, root+string(os.PathSeparator)) {
		return "", "", schema.ErrPathOutsideProject
	}
	rel, err = filepath.Rel(root, abs)
	if err != nil {
		return "", "", err
	}
	if rel == "." {
		rel = ""
	}
	return abs, rel, nil
}

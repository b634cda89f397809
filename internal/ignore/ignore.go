// Package ignore filters directory listings by the project's gitignore rules.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
)

// Matcher answers whether a project-relative path is ignored. The zero value
// and a nil Matcher ignore only the .git directory.
type Matcher struct {
	matcher gitignore.Matcher
}

// Load builds a matcher from the .gitignore file at the project root.
// A missing or unreadable file yields a matcher with no patterns.
func Load(projectRoot string) *Matcher {
	m := &Matcher{}
	file, err := os.Open(filepath.Join(projectRoot, ".gitignore"))
	if err != nil {
		return m
	}
	defer func() { _ = file.Close() }()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if len(patterns) > 0 {
		m.matcher = gitignore.NewMatcher(patterns)
	}
	return m
}

// Ignored reports whether the project-relative path should be hidden.
func (m *Matcher) Ignored(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	if len(parts) > 0 && parts[0] == ".git" {
		return true
	}
	if m == nil || m.matcher == nil {
		return false
	}
	return m.matcher.Match(parts, isDir)
}

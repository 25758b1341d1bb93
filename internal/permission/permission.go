// Package permission matches permission nodes against granted patterns.
package permission

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Permission nodes checked by the extension.
const (
	Give     = "itnt.give"
	Reload   = "itnt.reload"
	Help     = "itnt.help"
	PlaceAll = "itnt.place.*"
)

// Place is the node allowing placement of one explosive type.
func Place(typeID string) string {
	return "itnt.place." + typeID
}

// Set is a list of granted patterns. "*" matches one dotted segment and
// "**" any number of them, so "itnt.place.*" grants every type.
type Set struct {
	mu       sync.RWMutex
	patterns []string
	globs    []glob.Glob
}

// NewSet compiles the granted patterns.
func NewSet(patterns ...string) (*Set, error) {
	s := &Set{}
	if err := s.Grant(patterns...); err != nil {
		return nil, err
	}
	return s, nil
}

// Grant adds patterns to the set.
func (s *Set) Grant(patterns ...string) error {
	compiled := make([]glob.Glob, 0, len(patterns))
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '.')
		if err != nil {
			return fmt.Errorf("invalid permission pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
		kept = append(kept, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globs = append(s.globs, compiled...)
	s.patterns = append(s.patterns, kept...)
	return nil
}

// Has reports whether node is granted.
func (s *Set) Has(node string) bool {
	if s == nil {
		return false
	}
	node = strings.ToLower(node)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.globs {
		if g.Match(node) {
			return true
		}
	}
	return false
}

// Patterns returns the granted patterns.
func (s *Set) Patterns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.patterns...)
}

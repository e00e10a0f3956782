package exclusion

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Set holds the repository names that a scan should skip.
type Set struct {
	names map[string]struct{}
}

// NewSet builds a Set from the given names. Names are trimmed; empty
// names are ignored.
func NewSet(names []string) *Set {
	s := &Set{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s.names[name] = struct{}{}
	}
	return s
}

// Contains reports whether the repository name is excluded.
func (s *Set) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[name]
	return ok
}

// Len returns the number of excluded names.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// LoadFile reads an exclusion list from path. The file is line
// oriented: one repository name per line, lines starting with # are
// comments, blank lines are ignored, surrounding whitespace is
// trimmed.
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open exclusion list: %w", err)
	}
	defer f.Close()

	set, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read exclusion list %s: %w", path, err)
	}
	return set, nil
}

// Load reads an exclusion list from r using the same line conventions
// as LoadFile.
func Load(r io.Reader) (*Set, error) {
	s := &Set{names: make(map[string]struct{})}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.names[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

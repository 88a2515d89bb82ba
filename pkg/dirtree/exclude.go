package dirtree

import (
	"bytes"
	"strings"
)

// Excluder decides which directory entries the walk skips. Names that
// start with '.' are always skipped; any other name is skipped when it
// contains one of the configured patterns as a substring.
type Excluder struct {
	patterns [][]byte
}

// NewExcluder builds an Excluder. Patterns are raw substrings; blank ones
// are dropped, as they would otherwise match every name.
func NewExcluder(patterns []string) *Excluder {
	ex := &Excluder{}
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" || ex.has(p) {
			continue
		}
		ex.patterns = append(ex.patterns, []byte(p))
	}
	return ex
}

func (ex *Excluder) has(p string) bool {
	for _, q := range ex.patterns {
		if string(q) == p {
			return true
		}
	}
	return false
}

// IsHidden reports whether name starts with a dot.
func IsHidden(name []byte) bool {
	return len(name) > 0 && name[0] == '.'
}

// Excluded reports whether the entry called name must be skipped.
func (ex *Excluder) Excluded(name []byte) bool {
	if IsHidden(name) {
		return true
	}
	for _, p := range ex.patterns {
		if bytes.Contains(name, p) {
			return true
		}
	}
	return false
}

// Patterns returns the effective patterns in configuration order.
func (ex *Excluder) Patterns() []string {
	out := make([]string, len(ex.patterns))
	for i, p := range ex.patterns {
		out[i] = string(p)
	}
	return out
}

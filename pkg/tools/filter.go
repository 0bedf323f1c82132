package tools

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter scopes which remote tool names get registered. Deny patterns win
// over allow patterns; an empty allow list means everything not denied.
// Patterns are globs (mcp__github__*), falling back to exact match for
// patterns without metacharacters.
type Filter struct {
	allow []string
	deny  []string
}

// NewFilter builds a filter from allow and deny pattern lists.
func NewFilter(allow, deny []string) *Filter {
	return &Filter{allow: allow, deny: deny}
}

// Allowed reports whether a tool name passes the filter.
func (f *Filter) Allowed(name string) bool {
	if matchAny(f.deny, name) {
		return false
	}
	if len(f.allow) == 0 {
		return true
	}
	return matchAny(f.allow, name)
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if isGlobPattern(pattern) {
			if matched, err := doublestar.Match(pattern, name); err == nil && matched {
				return true
			}
			continue
		}
		if pattern == name {
			return true
		}
	}
	return false
}

// isGlobPattern returns true if the pattern contains glob metacharacters.
func isGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// Package classify maps file paths to structural roles.
//
// A role is a pure function of the path: the same path always classifies to
// the same role, and classification never fails. Unmatched paths resolve to
// RoleOther.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Role is the structural classification of a source file.
type Role string

const (
	RoleDomain  Role = "domain"
	RoleService Role = "service"
	RoleAPI     Role = "api"
	RoleOther   Role = "other"
)

// ParseRole converts a config string to a Role. Unknown strings map to
// RoleOther so that a bad config value degrades to "no role-scoped rules"
// instead of failing classification.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "domain":
		return RoleDomain
	case "service":
		return RoleService
	case "api":
		return RoleAPI
	default:
		return RoleOther
	}
}

// Override maps a doublestar glob pattern to a role. Overrides win over
// segment markers, letting a repo pin unconventional layouts
// (e.g. "pkg/core/**" → domain).
type Override struct {
	Pattern string
	Role    Role
}

// Classifier classifies paths by matching segments against directory markers,
// with optional glob overrides checked first.
type Classifier struct {
	markers   map[string]Role
	overrides []Override
}

// DefaultMarkers returns the built-in marker table: a path segment literally
// named domain, service, or api anywhere in the path selects that role.
func DefaultMarkers() map[string]Role {
	return map[string]Role{
		"domain":  RoleDomain,
		"service": RoleService,
		"api":     RoleAPI,
	}
}

// New creates a classifier. A nil markers map falls back to DefaultMarkers.
// Overrides with patterns that fail to compile are dropped so that Classify
// stays total.
func New(markers map[string]Role, overrides []Override) *Classifier {
	if markers == nil {
		markers = DefaultMarkers()
	}

	valid := make([]Override, 0, len(overrides))
	for _, o := range overrides {
		if doublestar.ValidatePattern(o.Pattern) {
			valid = append(valid, o)
		}
	}

	return &Classifier{markers: markers, overrides: valid}
}

// Classify returns the role for a filesystem path, absolute or repo-relative.
// Total over all strings: malformed paths classify to RoleOther.
func (c *Classifier) Classify(path string) Role {
	normalized := filepath.ToSlash(path)

	for _, o := range c.overrides {
		// Patterns were validated in New; Match cannot fail here.
		if ok, _ := doublestar.Match(o.Pattern, normalized); ok {
			return o.Role
		}
		if ok, _ := doublestar.Match("**/"+o.Pattern, normalized); ok {
			return o.Role
		}
	}

	// The final segment is the file name; only directory segments carry
	// markers, so "service.py" under src/ stays RoleOther.
	segments := strings.Split(normalized, "/")
	for _, seg := range segments[:max(len(segments)-1, 0)] {
		if role, ok := c.markers[strings.ToLower(seg)]; ok {
			return role
		}
	}

	return RoleOther
}

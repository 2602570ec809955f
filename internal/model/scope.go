package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// WildcardScope grants every permission.
const WildcardScope = "*"

// ScopeList is the ordered set of permission strings granted to a token.
// It serializes to a JSON array in the database so the store stays portable
// across SQL drivers.
type ScopeList []string

// DefaultScopes returns the scope list applied when issuance specifies none.
func DefaultScopes() ScopeList {
	return ScopeList{WildcardScope}
}

// Matches reports whether the requested permission is covered by the list.
// Matching never errors: unknown syntax in a granted scope is treated as a
// literal string, and an empty request always fails closed. Rules, first
// match wins:
//
//   - "*" anywhere in the list covers any non-empty request
//   - an exact string match covers
//   - a granted scope ending in ".*" covers requests sharing its prefix,
//     so "posts.*" covers "posts.write" but not "comments.read"
func (s ScopeList) Matches(requested string) bool {
	if requested == "" {
		return false
	}
	for _, granted := range s {
		if granted == WildcardScope {
			return true
		}
		if granted == requested {
			return true
		}
		if prefix, ok := strings.CutSuffix(granted, ".*"); ok {
			if strings.HasPrefix(requested, prefix+".") {
				return true
			}
		}
	}
	return false
}

// Normalize trims whitespace, drops empty entries, and falls back to the
// default wildcard list when nothing remains. Issuance guarantees a token
// never carries an empty scope list.
func (s ScopeList) Normalize() ScopeList {
	out := make(ScopeList, 0, len(s))
	for _, scope := range s {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		out = append(out, scope)
	}
	if len(out) == 0 {
		return DefaultScopes()
	}
	return out
}

// Value implements driver.Valuer, storing the list as a JSON array.
func (s ScopeList) Value() (driver.Value, error) {
	if s == nil {
		s = ScopeList{}
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("marshal scopes: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the JSON array representation.
func (s *ScopeList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan scopes: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan scopes: %w", err)
	}
	*s = ScopeList(out)
	return nil
}

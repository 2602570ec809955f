package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestScopeListMatches(t *testing.T) {
	tests := []struct {
		name      string
		scopes    ScopeList
		requested string
		want      bool
	}{
		{"wildcard grants anything", ScopeList{"*"}, "posts.read", true},
		{"wildcard grants deep scope", ScopeList{"*"}, "a.b.c.d", true},
		{"wildcard denies empty request", ScopeList{"*"}, "", false},
		{"exact match", ScopeList{"posts.read"}, "posts.read", true},
		{"exact mismatch", ScopeList{"posts.read"}, "posts.write", false},
		{"prefix wildcard matches", ScopeList{"posts.*"}, "posts.write", true},
		{"prefix wildcard matches nested", ScopeList{"posts.*"}, "posts.comments.read", true},
		{"prefix wildcard other namespace", ScopeList{"posts.*"}, "comments.read", false},
		{"prefix wildcard not a prefix of itself", ScopeList{"posts.*"}, "postsfeed.read", false},
		{"later entry wins", ScopeList{"comments.read", "posts.read"}, "posts.read", true},
		{"empty list denies", ScopeList{}, "posts.read", false},
		{"nil list denies", nil, "posts.read", false},
		{"empty request always denies", ScopeList{"posts.read"}, "", false},
		{"unknown syntax is a literal", ScopeList{"po[sts"}, "po[sts", true},
		{"unknown syntax never errors", ScopeList{"po[sts"}, "posts.read", false},
		{"lone star entry among others", ScopeList{"comments.read", "*"}, "deploy", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scopes.Matches(tt.requested); got != tt.want {
				t.Errorf("ScopeList(%v).Matches(%q) = %v, want %v", tt.scopes, tt.requested, got, tt.want)
			}
		})
	}
}

func TestScopeListNormalize(t *testing.T) {
	got := ScopeList{" posts.read ", "", "deploy"}.Normalize()
	if len(got) != 2 || got[0] != "posts.read" || got[1] != "deploy" {
		t.Errorf("Normalize = %v, want [posts.read deploy]", got)
	}

	// Empty input falls back to the wildcard default.
	got = ScopeList{}.Normalize()
	if len(got) != 1 || got[0] != WildcardScope {
		t.Errorf("Normalize of empty list = %v, want [*]", got)
	}
	got = ScopeList{"  ", ""}.Normalize()
	if len(got) != 1 || got[0] != WildcardScope {
		t.Errorf("Normalize of blank list = %v, want [*]", got)
	}
}

func TestScopeListSQLRoundTrip(t *testing.T) {
	in := ScopeList{"posts.read", "posts.*"}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var out ScopeList
	if err := out.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(out) != 2 || out[0] != "posts.read" || out[1] != "posts.*" {
		t.Errorf("round trip = %v, want %v", out, in)
	}

	// Scanning NULL yields a nil list.
	if err := out.Scan(nil); err != nil {
		t.Fatalf("Scan nil: %v", err)
	}
	if out != nil {
		t.Errorf("Scan nil = %v, want nil", out)
	}

	if err := out.Scan(42); err == nil {
		t.Error("expected error scanning unsupported type")
	}
}

func TestAccessTokenCanCant(t *testing.T) {
	tok := &AccessToken{
		ID:      "km_0123456789abcdef01234567",
		OwnerID: "u1",
		Name:    "ci-bot",
		Scopes:  ScopeList{"deploy"},
	}

	if !tok.Can("deploy") {
		t.Error("Can(deploy) = false, want true")
	}
	if tok.Can("admin") {
		t.Error("Can(admin) = true, want false")
	}

	// Cant must always be the strict negation of Can.
	for _, scope := range []string{"deploy", "admin", "", "*", "deploy.prod"} {
		if tok.Cant(scope) != !tok.Can(scope) {
			t.Errorf("Cant(%q) is not the negation of Can(%q)", scope, scope)
		}
	}

	// A nil token grants nothing.
	var nilTok *AccessToken
	if nilTok.Can("deploy") {
		t.Error("nil token Can = true, want false")
	}
	if !nilTok.Cant("deploy") {
		t.Error("nil token Cant = false, want true")
	}
}

func TestAccessTokenJSON(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	tok := AccessToken{
		ID:         "km_0123456789abcdef01234567",
		OwnerID:    "u1",
		Name:       "ci-bot",
		Scopes:     ScopeList{"deploy"},
		SecretHash: "hmac256$aa$bb",
		CreatedAt:  now,
	}

	b, err := json.Marshal(tok)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	// The secret hash must never serialize (json:"-").
	if _, ok := m["secret_hash"]; ok {
		t.Error("secret_hash leaked into JSON output")
	}
	if m["id"] != tok.ID {
		t.Errorf("id = %v, want %q", m["id"], tok.ID)
	}
	// last_used_at is omitted while the token is unused.
	if _, ok := m["last_used_at"]; ok {
		t.Error("expected last_used_at to be omitted when nil")
	}
}

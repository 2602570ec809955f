package openapi

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGenerateDocumentShape(t *testing.T) {
	doc := Generate("http://localhost:8080", "1.2.3")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI version = %q, want 3.1.0", doc.OpenAPI)
	}
	if doc.Info.Version != "1.2.3" {
		t.Errorf("Info.Version = %q, want 1.2.3", doc.Info.Version)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("unexpected servers: %+v", doc.Servers)
	}

	wantPaths := []string{
		"/api/v1/token",
		"/api/v1/token/{tokenID}",
		"/api/v1/whoami",
		"/healthz",
		"/readyz",
	}
	for _, p := range wantPaths {
		if doc.Paths.Value(p) == nil {
			t.Errorf("path %s missing from spec", p)
		}
	}
}

func TestGenerateTokenOperations(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	collection := doc.Paths.Value("/api/v1/token")
	if collection.Get == nil || collection.Post == nil || collection.Delete == nil {
		t.Fatal("expected GET, POST, and DELETE on /api/v1/token")
	}
	if collection.Post.RequestBody == nil || !collection.Post.RequestBody.Value.Required {
		t.Error("POST /api/v1/token should require a request body")
	}
	if _, ok := collection.Post.Responses.Map()["201"]; !ok {
		t.Error("POST /api/v1/token should document a 201 response")
	}

	item := doc.Paths.Value("/api/v1/token/{tokenID}")
	if item.Get == nil || item.Delete == nil {
		t.Fatal("expected GET and DELETE on /api/v1/token/{tokenID}")
	}
	if len(item.Parameters) != 1 || item.Parameters[0].Value.Name != "tokenID" {
		t.Errorf("expected a tokenID path parameter, got %+v", item.Parameters)
	}
}

func TestGenerateSecuritySchemes(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	for _, name := range []string{"bearerAuth", "apiToken"} {
		if _, ok := doc.Components.SecuritySchemes[name]; !ok {
			t.Errorf("security scheme %s missing", name)
		}
	}
	if doc.Components.SecuritySchemes["apiToken"].Value.Name != "X-API-Token" {
		t.Errorf("apiToken header = %q, want X-API-Token", doc.Components.SecuritySchemes["apiToken"].Value.Name)
	}

	// Health endpoints are open: they override the document security with
	// an empty requirement list.
	hz := doc.Paths.Value("/healthz").Get
	if hz.Security == nil || len(*hz.Security) != 0 {
		t.Errorf("healthz should carry an empty security override, got %+v", hz.Security)
	}
}

func TestGenerateErrorResponsesShared(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	op := doc.Paths.Value("/api/v1/token").Get
	for _, code := range []string{"400", "401", "403", "404", "500"} {
		ref, ok := op.Responses.Map()[code]
		if !ok {
			t.Errorf("list operation missing %s response", code)
			continue
		}
		media := ref.Value.Content.Get("application/json")
		if media == nil || media.Schema.Ref != "#/components/schemas/ErrorResponse" {
			t.Errorf("%s response should reference the shared ErrorResponse schema", code)
		}
	}
}

func TestGenerateMarshalsWithoutSecrets(t *testing.T) {
	doc := Generate("http://localhost:8080", "dev")

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal spec: %v", err)
	}
	body := string(raw)

	for _, schema := range []string{"AccessToken", "IssuedTokenResponse", "TokenListResponse", "ErrorResponse"} {
		if !strings.Contains(body, schema) {
			t.Errorf("serialized spec missing %s schema", schema)
		}
	}
	// The stored hash is server-internal and must not leak into the API
	// description.
	if strings.Contains(body, "secret_hash") {
		t.Error("spec exposes secret_hash")
	}
}

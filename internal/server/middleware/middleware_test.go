package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/keymint/keymint/internal/model"
	"github.com/keymint/keymint/internal/store"
	"github.com/keymint/keymint/internal/token"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestManager(t *testing.T) *token.Manager {
	t.Helper()
	s, err := store.Open("sqlite", "")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return token.NewManager(s)
}

func okHandler(t *testing.T, sawBinding *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetBinding(r.Context()).Token() != nil {
			*sawBinding = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

// ---------------------------------------------------------------------------
// Authenticate middleware tests
// ---------------------------------------------------------------------------

func TestAuthenticateBearer(t *testing.T) {
	mgr := newTestManager(t)
	_, raw, err := mgr.Generate(context.Background(), "u1", "ci-bot", model.ScopeList{"deploy"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var sawBinding bool
	handler := Authenticate(mgr)(okHandler(t, &sawBinding))

	req := httptest.NewRequest("GET", "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !sawBinding {
		t.Error("handler did not see a bound token")
	}
}

func TestAuthenticateTokenHeader(t *testing.T) {
	mgr := newTestManager(t)
	_, raw, err := mgr.Generate(context.Background(), "u1", "ci-bot", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var sawBinding bool
	handler := Authenticate(mgr)(okHandler(t, &sawBinding))

	req := httptest.NewRequest("GET", "/api/v1/whoami", nil)
	req.Header.Set(TokenHeader, raw)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !sawBinding {
		t.Error("handler did not see a bound token")
	}
}

func TestAuthenticateRejectsUniformly(t *testing.T) {
	mgr := newTestManager(t)

	handler := Authenticate(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached despite failed authentication")
	}))

	// Malformed and unknown credentials must be indistinguishable in the
	// response: same status, same body.
	var bodies []string
	for _, cred := range []string{
		"garbage",
		"km_000000000000000000000000.0000000000000000000000000000000000000000000000000000000000000000",
	} {
		req := httptest.NewRequest("GET", "/api/v1/token", nil)
		req.Header.Set("Authorization", "Bearer "+cred)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status for %q = %d, want 401", cred, rr.Code)
		}
		bodies = append(bodies, rr.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Errorf("malformed and invalid credentials are distinguishable: %q vs %q", bodies[0], bodies[1])
	}
}

func TestAuthenticateMissingCredential(t *testing.T) {
	mgr := newTestManager(t)
	handler := Authenticate(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without credentials")
	}))

	req := httptest.NewRequest("GET", "/api/v1/token", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RequireScope middleware tests
// ---------------------------------------------------------------------------

func TestRequireScope(t *testing.T) {
	mgr := newTestManager(t)
	_, raw, err := mgr.Generate(context.Background(), "u1", "reader", model.ScopeList{"tokens.read"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	authed := func(scope string) http.Handler {
		return Authenticate(mgr)(RequireScope(scope)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))
	}

	// Granted scope passes.
	req := httptest.NewRequest("GET", "/api/v1/token", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	authed("tokens.read").ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("granted scope: status = %d, want 200", rr.Code)
	}

	// Missing scope is forbidden.
	req = httptest.NewRequest("DELETE", "/api/v1/token", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr = httptest.NewRecorder()
	authed("tokens.write").ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("missing scope: status = %d, want 403", rr.Code)
	}
}

func TestRequireScopeFailsClosedWithoutBinding(t *testing.T) {
	// RequireScope used without Authenticate must deny.
	handler := RequireScope("tokens.read")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a binding")
	}))

	req := httptest.NewRequest("GET", "/api/v1/token", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

func TestGetBindingEmptyContext(t *testing.T) {
	b := GetBinding(context.Background())
	if b != nil {
		t.Errorf("GetBinding on empty context = %v, want nil", b)
	}
	// The nil binding still answers scope checks, failing closed.
	if b.Can("anything") {
		t.Error("nil binding Can = true, want false")
	}
	if !b.Cant("anything") {
		t.Error("nil binding Cant = false, want true")
	}
}

func TestAuthErrorBodyUsesStandardEnvelope(t *testing.T) {
	mgr := newTestManager(t)
	handler := Authenticate(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached despite failed authentication")
	}))

	req := httptest.NewRequest("GET", "/api/v1/token", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	var body model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not the standard envelope: %v", err)
	}
	if body.Error.Code != http.StatusUnauthorized {
		t.Errorf("error code = %d, want 401", body.Error.Code)
	}
	if body.Error.Message != "Invalid credential" {
		t.Errorf("error message = %q, want %q", body.Error.Message, "Invalid credential")
	}
}

// ---------------------------------------------------------------------------
// Logger middleware tests
// ---------------------------------------------------------------------------

func TestLoggerEmitsBoundTokenID(t *testing.T) {
	mgr := newTestManager(t)
	tok, raw, err := mgr.Generate(context.Background(), "u1", "ci-bot", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	// Logger is mounted upstream of Authenticate, as in the router.
	handler := Logger(logger)(Authenticate(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(buf.String(), "token_id="+tok.ID) {
		t.Errorf("log line missing token_id attribute: %s", buf.String())
	}
}

func TestLoggerOmitsTokenIDWhenUnauthenticated(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if strings.Contains(buf.String(), "token_id=") {
		t.Errorf("unauthenticated log line carries token_id: %s", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Rate limit middleware tests
// ---------------------------------------------------------------------------

func TestRateLimitByTokenKeysOnTokenID(t *testing.T) {
	mgr := newTestManager(t)
	_, rawA, err := mgr.Generate(context.Background(), "u1", "first", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, rawB, err := mgr.Generate(context.Background(), "u1", "second", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// One request per minute, keyed on the bound token.
	handler := Authenticate(mgr)(RateLimitByToken(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	do := func(credential string) int {
		req := httptest.NewRequest("GET", "/api/v1/token", nil)
		req.Header.Set("Authorization", "Bearer "+credential)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := do(rawA); code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", code)
	}
	if code := do(rawA); code != http.StatusTooManyRequests {
		t.Errorf("second request with same token: status = %d, want 429", code)
	}
	// The limit is per token: both requests come from the same test IP, yet
	// a different credential still has its own budget.
	if code := do(rawB); code != http.StatusOK {
		t.Errorf("request with different token: status = %d, want 200", code)
	}
}

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGenerated(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q", respID)
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	const clientID = "trace-abc-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != clientID {
			t.Errorf("context ID = %q, want %q", got, clientID)
		}
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != clientID {
		t.Errorf("response X-Request-ID = %q, want %q", got, clientID)
	}
}

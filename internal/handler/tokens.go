package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keymint/keymint/internal/model"
	"github.com/keymint/keymint/internal/server/middleware"
	"github.com/keymint/keymint/internal/token"
)

// TokenHandler exposes the token lifecycle over HTTP. Every endpoint acts
// within the namespace of the owner whose token authenticated the request;
// there is no way to reach another owner's tokens through this surface.
type TokenHandler struct {
	manager *token.Manager
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(manager *token.Manager) *TokenHandler {
	return &TokenHandler{manager: manager}
}

// owner resolves the calling owner from the request's token binding.
func (h *TokenHandler) owner(r *http.Request) (string, bool) {
	tok := middleware.GetBinding(r.Context()).Token()
	if tok == nil {
		return "", false
	}
	return tok.OwnerID, true
}

// createTokenRequest is the expected payload for token issuance.
type createTokenRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

// Create issues a new token for the calling owner. The response carries the
// raw credential exactly once; it is never retrievable afterwards.
// POST /api/v1/token
func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createTokenRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Token name is required")
		return
	}

	tok, credential, err := h.manager.Generate(r.Context(), ownerID, req.Name, model.ScopeList(req.Scopes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusCreated, model.IssuedTokenResponse{
		Token:      *tok,
		Credential: credential,
	})
}

// List returns the calling owner's tokens in creation order.
// GET /api/v1/token
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	toks, err := h.manager.List(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tokens")
		return
	}

	writeJSON(w, http.StatusOK, model.TokenListResponse{
		Resource: toks,
		Count:    len(toks),
	})
}

// Get returns a single token owned by the caller. Foreign and unknown ids
// are both 404.
// GET /api/v1/token/{tokenID}
func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	tok, err := h.manager.FindByID(r.Context(), ownerID, chi.URLParam(r, "tokenID"))
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Token not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to look up token")
		return
	}

	writeJSON(w, http.StatusOK, tok)
}

// Revoke hard-deletes one of the caller's tokens.
// DELETE /api/v1/token/{tokenID}
func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	err := h.manager.Revoke(r.Context(), ownerID, chi.URLParam(r, "tokenID"))
	if err != nil {
		if errors.Is(err, token.ErrNotFound) || errors.Is(err, token.ErrMalformedCredential) {
			writeError(w, http.StatusNotFound, "Token not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to revoke token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"revoked": true})
}

// RevokeAll hard-deletes every token of the calling owner, including the one
// that authenticated this request.
// DELETE /api/v1/token
func (h *TokenHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	n, err := h.manager.RevokeAll(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to revoke tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"revoked": n})
}

// Whoami returns the token that authenticated the current request.
// GET /api/v1/whoami
func (h *TokenHandler) Whoami(w http.ResponseWriter, r *http.Request) {
	tok := middleware.GetBinding(r.Context()).Token()
	if tok == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

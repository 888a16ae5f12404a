package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pathtracker/pathtracker/domain/apikey"
)

type keyView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Preview    string     `json:"preview"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Revoked    bool       `json:"revoked"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	UsageCount int64      `json:"usage_count"`
}

func newKeyView(k apikey.Key) keyView {
	return keyView{
		ID:         k.ID,
		Name:       k.Name,
		Preview:    k.Preview(),
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
		Revoked:    k.Revoked,
		RevokedAt:  k.RevokedAt,
		LastUsedAt: k.LastUsedAt,
		UsageCount: k.UsageCount,
	}
}

// KeyCreate mints a new API key. The response carries the plaintext
// secret exactly once; it is never retrievable afterwards.
func (h *Handler) KeyCreate(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())

	var req struct {
		Name      string     `json:"name"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "name is required")
		return
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "expires_at must be in the future")
		return
	}

	created, err := h.keys.Create(r.Context(), sess.TenantID, req.Name, req.ExpiresAt)
	if err != nil {
		h.handleError(w, r, "key create", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"key":    newKeyView(created.Key),
		"secret": created.Secret,
	})
}

// KeyList returns the tenant's keys: previews and metadata, never a
// secret or hash.
func (h *Handler) KeyList(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())

	keys, err := h.keys.List(r.Context(), sess.TenantID)
	if err != nil {
		h.handleError(w, r, "key list", err)
		return
	}

	views := make([]keyView, len(keys))
	for i, k := range keys {
		views[i] = newKeyView(k)
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": views})
}

// KeyRevoke permanently disables a key. Keys belonging to another tenant
// answer 404, indistinguishable from absence.
func (h *Handler) KeyRevoke(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())
	keyID := chi.URLParam(r, "keyID")

	if err := h.keys.Revoke(r.Context(), sess.TenantID, keyID); err != nil {
		h.handleError(w, r, "key revoke", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// KeyRename changes a key's display name.
func (h *Handler) KeyRename(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())
	keyID := chi.URLParam(r, "keyID")

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "name is required")
		return
	}

	if err := h.keys.Rename(r.Context(), sess.TenantID, keyID, req.Name); err != nil {
		h.handleError(w, r, "key rename", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pathtracker/pathtracker/app"
	"github.com/pathtracker/pathtracker/domain/session"
	"github.com/pathtracker/pathtracker/ports"
)

// sessionCookie is the dashboard session cookie name.
const sessionCookie = "pathtracker_session"

// apiKeyAuth authenticates ingestion requests via the Authorization
// header. Credential failures answer 401 with the typed code; a store
// failure is a 500, never a 401.
func (h *Handler) apiKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, fail, err := h.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			h.handleError(w, r, "api key auth", err)
			return
		}
		if fail != nil {
			if h.collector != nil {
				h.collector.AuthFailures.WithLabelValues(fail.Code).Inc()
			}
			writeError(w, http.StatusUnauthorized, fail.Code, fail.Message)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

// sessionAuth authenticates dashboard requests. The token comes from the
// session cookie or, for non-browser clients, a bearer Authorization
// header carrying a ptses_ token.
func (h *Handler) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing session")
			return
		}

		sess, err := h.sessions.Resolve(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrSessionExpired):
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Session expired")
			case errors.Is(err, ports.ErrNotFound):
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid session")
			default:
				h.handleError(w, r, "session resolve", err)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && strings.HasPrefix(parts[1], session.TokenPrefix) {
		return parts[1]
	}
	return ""
}

// Logout deletes the current session and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := getSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing session")
		return
	}

	if err := h.sessions.Delete(r.Context(), sess.ID); err != nil && !errors.Is(err, ports.ErrNotFound) {
		h.handleError(w, r, "logout", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

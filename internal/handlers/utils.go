// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/squadpick/squadpick/internal/auth"
)

const (
	sessionCookie = "session_token"
	anonCookie    = "anon_id"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// EnsureSession returns the caller's session id, minting a fresh anonymous
// session (signed JWT cookie) if none is present or the token is invalid.
// The session id scopes the per-room identity cache; there is no account
// behind it.
func EnsureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	cookieHeader := r.Header.Get("Cookie")
	if strings.Contains(cookieHeader, sessionCookie+"=") {
		token := extractCookieToken(cookieHeader, sessionCookie)
		if sid, err := auth.AuthenticateJWT(token); err == nil {
			return sid, nil
		}
		// Fall through and replace the bad cookie.
	}

	sid := uuid.NewString()
	token, err := auth.CreateJWT(sid)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return sid, nil
}

// EnsureAnonID returns the caller's persistent anonymous voter id, minting
// one if absent. A plain cookie: the id only needs to be stable, not
// trusted.
func EnsureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:   anonCookie,
		Value:  id,
		Path:   "/",
		MaxAge: 60 * 60 * 24 * 365,
	})
	return id
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Package identity tags console requests with an operator id and a
// per-tab session id.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	OperatorCookieName    = "studio_operator_id"
	SessionHeaderName     = "X-Studio-Session-ID"
	DefaultSessionIDValue = "default"
	operatorCookieMaxAge  = 30 * 24 * time.Hour
)

type contextKey int

const (
	operatorIDKey contextKey = iota
	sessionIDKey
)

var (
	operatorIDPattern = regexp.MustCompile(`^op_[a-f0-9]{32}$`)
	sessionIDPattern  = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// OperatorIDFromContext extracts the operator ID from the request context.
func OperatorIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(operatorIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithSession returns ctx carrying the given identity. Used by non-HTTP
// callers such as the terminal console.
func WithSession(ctx context.Context, operatorID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, operatorIDKey, operatorID)
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

func generateOperatorID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate operator id: %w", err)
	}
	return "op_" + hex.EncodeToString(buf), nil
}

func isValidOperatorID(id string) bool {
	return operatorIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func setOperatorCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     OperatorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(operatorCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(operatorCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateOperatorID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(OperatorCookieName); err == nil && isValidOperatorID(c.Value) {
		setOperatorCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateOperatorID()
	if err != nil {
		return "", err
	}
	setOperatorCookie(w, id, isDev)
	return id, nil
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// Middleware injects the operator id cookie and per-request session ID.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operatorID, err := getOrCreateOperatorID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish operator identity"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), operatorIDKey, operatorID)
			ctx = context.WithValue(ctx, sessionIDKey, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

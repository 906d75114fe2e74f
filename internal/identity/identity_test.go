package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSanitizeSessionID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultSessionIDValue},
		{"  tab-1 ", "tab-1"},
		{"tab:2.a_b", "tab:2.a_b"},
		{"bad id", DefaultSessionIDValue},
		{strings.Repeat("x", 129), DefaultSessionIDValue},
	}
	for _, tt := range tests {
		if got := sanitizeSessionID(tt.in); got != tt.want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMiddlewareIssuesAndReusesOperatorCookie(t *testing.T) {
	t.Parallel()

	var gotOperator, gotSession string
	h := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOperator = OperatorIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/studio/state", nil)
	req.Header.Set(SessionHeaderName, "tab-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !isValidOperatorID(gotOperator) {
		t.Fatalf("operator id %q is not valid", gotOperator)
	}
	if gotSession != "tab-7" {
		t.Errorf("session = %q, want tab-7", gotSession)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != gotOperator {
		t.Fatalf("expected operator cookie, got %v", cookies)
	}

	first := gotOperator
	req = httptest.NewRequest(http.MethodGet, "/api/studio/state?session_id=tab-8", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)
	if gotOperator != first {
		t.Errorf("operator id changed: %q -> %q", first, gotOperator)
	}
	if gotSession != "tab-8" {
		t.Errorf("session = %q, want tab-8", gotSession)
	}
}

func TestWithSession(t *testing.T) {
	t.Parallel()

	ctx := WithSession(context.Background(), "op_local", "bad id")
	if OperatorIDFromContext(ctx) != "op_local" {
		t.Errorf("operator not carried")
	}
	if SessionIDFromContext(ctx) != DefaultSessionIDValue {
		t.Errorf("session not sanitized")
	}
	if SessionIDFromContext(context.Background()) != DefaultSessionIDValue {
		t.Errorf("default session expected")
	}
}

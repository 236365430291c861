package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func identityEcho(t *testing.T) (http.Handler, *string, *string) {
	t.Helper()
	var userID, email string
	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
		email = EmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &userID, &email
}

func TestMiddleware_RejectsMissingIdentity(t *testing.T) {
	handler, _, _ := identityEcho(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestMiddleware_RejectsMalformedEmail(t *testing.T) {
	handler, _, _ := identityEcho(t)

	for _, bad := range []string{"not-an-email", "a@b", "user@", "@host.com", "two words@x.com"} {
		r := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		r.Header.Set(EmailHeader, bad)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for email %q, got %d", bad, w.Code)
		}
	}
}

func TestMiddleware_AcceptsForwardedIdentity(t *testing.T) {
	handler, userID, email := identityEcho(t)

	r := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	r.Header.Set(EmailHeader, "Dev@Example.COM")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if *email != "dev@example.com" {
		t.Errorf("Expected lowercased email, got %q", *email)
	}
	if *userID != "dev@example.com" {
		t.Errorf("Expected user id to default to email, got %q", *userID)
	}
}

func TestMiddleware_UsesUserHeaderWhenPresent(t *testing.T) {
	handler, userID, _ := identityEcho(t)

	r := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	r.Header.Set(EmailHeader, "dev@example.com")
	r.Header.Set(UserHeader, "github|12345")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if *userID != "github|12345" {
		t.Errorf("Expected forwarded user id, got %q", *userID)
	}
}

func TestWithIdentity(t *testing.T) {
	ctx := WithIdentity(t.Context(), "user-1", "dev@example.com")

	if got := UserIDFromContext(ctx); got != "user-1" {
		t.Errorf("Expected user-1, got %q", got)
	}
	if got := EmailFromContext(ctx); got != "dev@example.com" {
		t.Errorf("Expected dev@example.com, got %q", got)
	}
	if got := UserIDFromContext(t.Context()); got != "" {
		t.Errorf("Expected empty user id from bare context, got %q", got)
	}
}

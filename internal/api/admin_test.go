package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"docpilot/internal/authz"
	"docpilot/internal/gate"
)

func TestAdmin_RequiresAuthentication(t *testing.T) {
	authz.ResetForTest()
	t.Setenv("ADMIN_EMAILS", "admin@example.com")
	router, _ := newTestRouter(t)

	// Anonymous callers see 401, never a privilege-revealing 403.
	w := doRequest(t, router, http.MethodGet, "/api/admin/killswitch", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without identity, got %d", w.Code)
	}
}

func TestAdmin_RequiresAllowlist(t *testing.T) {
	authz.ResetForTest()
	t.Setenv("ADMIN_EMAILS", "admin@example.com")
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/admin/killswitch", "dev@example.com", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodPut, "/api/admin/killswitch", "dev@example.com",
		map[string]bool{"enabled": true})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin toggle, got %d", w.Code)
	}
}

func TestAdmin_GetAndSetKillSwitch(t *testing.T) {
	authz.ResetForTest()
	t.Setenv("ADMIN_EMAILS", "admin@example.com")
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/admin/killswitch", "admin@example.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var status gate.Status
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.Enabled {
		t.Error("Expected kill switch to start disabled")
	}

	w = doRequest(t, router, http.MethodPut, "/api/admin/killswitch", "admin@example.com",
		map[string]bool{"enabled": true})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if !status.Enabled {
		t.Error("Expected kill switch to be enabled")
	}
	if status.LastToggledBy != "admin@example.com" {
		t.Errorf("Expected actor to be recorded, got %q", status.LastToggledBy)
	}
	if status.LastToggledAt == nil {
		t.Error("Expected audit timestamp")
	}
}

func TestAdmin_DisableTwiceStillStamps(t *testing.T) {
	authz.ResetForTest()
	t.Setenv("ADMIN_EMAILS", "admin@example.com")
	router, _ := newTestRouter(t)

	var first, second gate.Status
	w := doRequest(t, router, http.MethodPut, "/api/admin/killswitch", "admin@example.com",
		map[string]bool{"enabled": false})
	if err := json.NewDecoder(w.Body).Decode(&first); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	w = doRequest(t, router, http.MethodPut, "/api/admin/killswitch", "admin@example.com",
		map[string]bool{"enabled": false})
	if err := json.NewDecoder(w.Body).Decode(&second); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}

	if first.Enabled || second.Enabled {
		t.Error("Expected both toggles to leave the switch disabled")
	}
	if first.LastToggledAt == nil || second.LastToggledAt == nil {
		t.Fatal("Expected audit stamps on both toggles")
	}
	if second.LastToggledAt.Before(*first.LastToggledAt) {
		t.Error("Expected the second stamp to not precede the first")
	}
}

func TestAdmin_CaseInsensitiveAllowlist(t *testing.T) {
	authz.ResetForTest()
	t.Setenv("ADMIN_EMAILS", "ADMIN@Example.COM")
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/admin/killswitch", "admin@example.com", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected case-insensitive allowlist match, got %d", w.Code)
	}
}

// Package authz decides which identities may operate the admin surface.
//
// The allowlist comes from ADMIN_EMAILS (comma-separated), is
// lowercased, and is loaded once for the process lifetime. Fail-closed:
// an unset or empty allowlist means no one is admin, never "allow all".
package authz

import (
	"os"
	"strings"
	"sync"
)

const adminEnvVar = "ADMIN_EMAILS"

type allowlist struct {
	mu     sync.RWMutex
	loaded bool
	admins map[string]struct{}
}

var cache allowlist

// IsAdmin reports whether identifier is on the configured allowlist.
// Comparison is case-insensitive; empty input is never admin.
func IsAdmin(identifier string) bool {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return false
	}

	admins := cache.get()
	_, ok := admins[identifier]
	return ok
}

func (a *allowlist) get() map[string]struct{} {
	a.mu.RLock()
	if a.loaded {
		admins := a.admins
		a.mu.RUnlock()
		return admins
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded {
		a.admins = parseAdminEmails(os.Getenv(adminEnvVar))
		a.loaded = true
	}
	return a.admins
}

func parseAdminEmails(raw string) map[string]struct{} {
	admins := make(map[string]struct{})
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			admins[entry] = struct{}{}
		}
	}
	return admins
}

// ResetForTest drops the cached allowlist so tests can vary
// ADMIN_EMAILS. Production treats the allowlist as immutable for the
// process lifetime and must not call this.
func ResetForTest() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.loaded = false
	cache.admins = nil
}

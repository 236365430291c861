// Package policy classifies repository-relative paths the agent may
// write. It is pure: every check recomputes from the rule sets, nothing
// is persisted.
//
// The policy is default-deny on two independent axes. A denylist
// protects secrets, lockfiles and CI config; an allowlist restricts
// agent writes to documentation-like paths. Each axis can only be
// bypassed by its own explicit option, never by path content.
package policy

import (
	"fmt"
	"path"
	"strings"
)

// Result is the outcome of a policy check.
type Result struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Options override the default-deny axes. Both flags default to false.
type Options struct {
	// AllowForbidden skips the denylist check.
	AllowForbidden bool
	// AllowNonWhitelisted skips the allowlist check.
	AllowNonWhitelisted bool
}

// Ruleset holds the two rule lists. A rule matches a normalized path
// exactly, as a directory prefix, or as a bare filename anywhere in the
// tree (rules without a slash only).
type Ruleset struct {
	Forbidden []string
	Allowed   []string
}

// Default is the rule set used by Check.
var Default = Ruleset{
	Forbidden: []string{
		"package.json",
		"package-lock.json",
		"yarn.lock",
		"pnpm-lock.yaml",
		".env",
		".env.local",
		".env.production",
		".git",
		".github/workflows",
		"node_modules",
		"secrets",
	},
	Allowed: []string{
		"docs",
		".repo",
		"README.md",
	},
}

// Check evaluates p against the default rule set.
func Check(p string, opts Options) Result {
	return Default.Check(p, opts)
}

// Check evaluates p against rs. The path is normalized first; a path
// that still escapes the repository root after lexical `..` resolution
// is forbidden regardless of options.
func (rs Ruleset) Check(p string, opts Options) Result {
	normalized, ok := Normalize(p)
	if !ok {
		return Result{Allowed: false, Reason: "path escapes the repository root"}
	}
	if normalized == "" {
		return Result{Allowed: false, Reason: "empty path"}
	}

	if !opts.AllowForbidden {
		if rule, matched := matchAny(normalized, rs.Forbidden); matched {
			return Result{Allowed: false, Reason: fmt.Sprintf("path matches forbidden rule %q", rule)}
		}
	}

	if !opts.AllowNonWhitelisted {
		if _, matched := matchAny(normalized, rs.Allowed); !matched {
			return Result{Allowed: false, Reason: "path is not in the allowed list"}
		}
	}

	return Result{Allowed: true}
}

// Normalize converts backslashes to forward slashes, strips surrounding
// slashes and whitespace, and resolves "." and ".." segments lexically.
// ok is false when the path climbs out of the repository root; naive
// prefix checks on an unresolved path would otherwise be bypassed by
// sequences like "docs/../../../package.json".
func Normalize(p string) (normalized string, ok bool) {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return "", true
	}

	p = path.Clean(p)
	if p == "." {
		return "", true
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

func matchAny(p string, rules []string) (string, bool) {
	for _, rule := range rules {
		if matchRule(p, rule) {
			return rule, true
		}
	}
	return "", false
}

// matchRule applies the three match forms: exact, directory prefix, and
// "ends with /name" for bare filenames.
func matchRule(p, rule string) bool {
	rule = strings.Trim(strings.TrimSpace(rule), "/")
	if rule == "" {
		return false
	}
	if p == rule {
		return true
	}
	if strings.HasPrefix(p, rule+"/") {
		return true
	}
	if !strings.Contains(rule, "/") && strings.HasSuffix(p, "/"+rule) {
		return true
	}
	return false
}

package pageview

import "strings"

const normalizedPathMaxLength = 500

// blockedPathPrefixes lists operational paths whose views are never recorded.
// A prefix matches only on a path-segment boundary, so "/administration"
// stays collectable while "/admin/users" does not.
var blockedPathPrefixes = []string{
	"/api",
	"/uploads",
	"/favicon.ico",
	"/robots.txt",
	"/admin",
	"/login",
}

// NormalizePath strips the query string and fragment and collapses a trailing
// slash (root excepted). Idempotent: NormalizePath(NormalizePath(p)) ==
// NormalizePath(p) for every input.
func NormalizePath(rawPage string) string {
	page := rawPage
	if cut := strings.IndexAny(page, "?#"); cut >= 0 {
		page = page[:cut]
	}
	if len(page) > 1 && strings.HasSuffix(page, "/") {
		page = strings.TrimSuffix(page, "/")
	}
	return page
}

// IsAllowedPath reports whether a normalized page path may be recorded.
// Rejections are invisible to callers of the ingestion endpoint; the HTTP
// layer acknowledges filtered views exactly like stored ones.
func IsAllowedPath(normalizedPage string) bool {
	if normalizedPage == "" || len(normalizedPage) > normalizedPathMaxLength {
		return false
	}
	if !strings.HasPrefix(normalizedPage, "/") {
		return false
	}
	for _, blocked := range blockedPathPrefixes {
		if matchesBlockedPrefix(normalizedPage, blocked) {
			return false
		}
	}
	return true
}

func matchesBlockedPrefix(page string, blocked string) bool {
	if page == blocked {
		return true
	}
	if !strings.HasPrefix(page, blocked) {
		return false
	}
	boundary := page[len(blocked)]
	return boundary == '/' || boundary == '?'
}

package app

import "trivia-quiz-service/internal/domain"

// NavEntry is a navigation target guarded by declarative capability predicates.
type NavEntry struct {
	Path         string `json:"path"`
	Label        string `json:"label"`
	RequiresAuth bool   `json:"requiresAuth,omitempty"`
	RequiresRole string `json:"requiresRole,omitempty"`
}

// Allows reports whether principal (nil when anonymous) may see the entry.
func (e NavEntry) Allows(principal *domain.Principal) bool {
	if (e.RequiresAuth || e.RequiresRole != "") && principal == nil {
		return false
	}
	if e.RequiresRole != "" && principal.Role != e.RequiresRole {
		return false
	}
	return true
}

// DefaultNavigation is the full menu in display order.
var DefaultNavigation = []NavEntry{
	{Path: "/", Label: "Home"},
	{Path: "/dashboard", Label: "Dashboard", RequiresAuth: true},
	{Path: "/play", Label: "Play"},
	{Path: "/leaderboard", Label: "Leaderboard"},
	{Path: "/profile", Label: "Profile", RequiresAuth: true},
	{Path: "/admin", Label: "Admin", RequiresAuth: true, RequiresRole: domain.RoleAdmin},
}

// Visible filters entries down to the ones principal may see, keeping order.
func Visible(entries []NavEntry, principal *domain.Principal) []NavEntry {
	out := make([]NavEntry, 0, len(entries))
	for _, e := range entries {
		if e.Allows(principal) {
			out = append(out, e)
		}
	}
	return out
}

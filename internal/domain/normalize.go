package domain

import "strings"

// NormalizeAlias lowercases a user token and strips a leading "@".
// It is the lookup key for the alias registry.
func NormalizeAlias(s string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "@")
}

package bot

import "strings"

// ValidateEmail accepts a string with exactly one "@", a non-empty local
// part, and a dotted domain whose final segment is at least two characters.
// Anything else re-prompts the user.
func ValidateEmail(s string) bool {
	local, domain, found := strings.Cut(s, "@")
	if !found || strings.Contains(domain, "@") {
		return false
	}
	if local == "" {
		return false
	}

	lastDot := strings.LastIndex(domain, ".")
	if lastDot <= 0 {
		// No dot, or the domain starts with one.
		return false
	}
	return len(domain)-lastDot-1 >= 2
}

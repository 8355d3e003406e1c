package llm

import (
	"regexp"
	"strings"
)

var (
	htmlTag = regexp.MustCompile(`<[^>]*>`)

	// roleSpoof matches role-prefix markers a prompt injection would use
	// to impersonate another participant in the conversation.
	roleSpoof = regexp.MustCompile(`(?i)\b(system|assistant|user)\s*:`)
)

// blockedMarker replaces role-spoofing substrings in user-authored text.
const blockedMarker = "[blocked]"

// Sanitize prepares user-authored text for insertion into a prompt.
// HTML tags are stripped and role-spoofing prefixes are replaced with a
// literal block marker so a note cannot smuggle instructions into the
// conversation.
func Sanitize(text string) string {
	s := htmlTag.ReplaceAllString(text, "")
	s = roleSpoof.ReplaceAllString(s, blockedMarker)
	return strings.TrimSpace(s)
}

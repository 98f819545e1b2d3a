package translate

import (
	"regexp"
	"strings"
)

var (
	emoteRe   = regexp.MustCompile(`<a?:\w+:\d+>`)
	mentionRe = regexp.MustCompile(`<(?:@[!&]?|#)\d+>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
)

// Sanitize removes custom emotes and user, role and channel mentions from a
// chat message and collapses runs of blanks. Line breaks are kept.
func Sanitize(text string) string {
	text = emoteRe.ReplaceAllString(text, "")
	text = mentionRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

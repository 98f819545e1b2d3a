package translate

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultCandidateLimit is the most choices a command option may offer.
const DefaultCandidateLimit = 25

// CandidateLanguages picks at most limit languages from supported to offer
// as command choices. Preferred codes that are supported come first, the
// rest is filled from supported in order, and the result is sorted by name.
func CandidateLanguages(supported []Language, preferred []string, limit int) []Language {
	if limit <= 0 || len(supported) == 0 {
		return nil
	}

	byCode := make(map[string]Language, len(supported))
	for _, l := range supported {
		byCode[strings.ToLower(l.Code)] = l
	}

	out := make([]Language, 0, min(limit, len(supported)))
	seen := make(map[string]bool, limit)
	add := func(l Language) {
		key := strings.ToLower(l.Code)
		if len(out) >= limit || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, l)
	}

	for _, code := range preferred {
		if l, ok := byCode[strings.ToLower(strings.TrimSpace(code))]; ok {
			add(l)
		}
	}
	for _, l := range supported {
		add(l)
	}

	col := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		if c := col.CompareString(out[i].Name, out[j].Name); c != 0 {
			return c < 0
		}
		return out[i].Code < out[j].Code
	})
	return out
}

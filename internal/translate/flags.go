package translate

import (
	"golang.org/x/text/language"
)

const (
	regionalA = '\U0001F1E6'
	regionalZ = '\U0001F1FF'
)

// flagOverrides pins flags whose region would otherwise resolve to a
// language users do not expect.
var flagOverrides = map[string]language.Tag{
	"🇺🇳": language.English,
	"🇪🇺": language.English,
	"🇨🇭": language.German,
	"🇧🇪": language.Dutch,
	"🇮🇳": language.Hindi,
	"🇨🇦": language.English,
}

// FlagLocale maps a flag emoji (a pair of regional indicator symbols) to the
// tag of its region, e.g. 🇫🇷 to und-FR, which a language.Matcher resolves to
// French. It reports false for anything else.
func FlagLocale(emoji string) (language.Tag, bool) {
	if tag, ok := flagOverrides[emoji]; ok {
		return tag, true
	}

	runes := []rune(emoji)
	if len(runes) != 2 {
		return language.Und, false
	}
	code := make([]byte, 0, 2)
	for _, r := range runes {
		if r < regionalA || r > regionalZ {
			return language.Und, false
		}
		code = append(code, byte('A'+(r-regionalA)))
	}

	region, err := language.ParseRegion(string(code))
	if err != nil {
		return language.Und, false
	}
	tag, err := language.Compose(region)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

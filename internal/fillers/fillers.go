package fillers

import (
	"regexp"
	"strings"
)

// Per-language disfluency patterns. Elongated hesitations (yyy, eee, umm,
// hmm) are matched through repeating-letter forms rather than an exhaustive
// enumeration. Alternation order matters: phrases come before the single
// words they contain.
var patterns = map[string]*regexp.Regexp{
	"pl": regexp.MustCompile(
		`(?i)\b(?:no więc|no właśnie|no wiesz|no nie|no tak` +
			`|tak jakby|w zasadzie` +
			`|yyy+|eee+|hmm+|hm+` +
			`|no|znaczy|jakby|wiesz|powiedzmy|generalnie)\b` +
			// \b is ASCII-only and never fires after "ę"; capture the
			// boundary character instead and re-emit it.
			`|\bkurczę([^\p{L}\p{N}_]|$)`),
	"en": regexp.MustCompile(
		`(?i)\b(?:um+|uh+|hmm+|hm+|like|you know|basically|actually` +
			`|literally|i mean|sort of|kind of|right)\b`),
}

var multiSpace = regexp.MustCompile(`  +`)

// Strip removes every filler occurrence defined for the language, collapses
// the space runs left behind and trims the ends. Idempotent; input that is
// nothing but fillers collapses to an empty string.
func Strip(text, lang string) string {
	if pattern, ok := patterns[lang]; ok {
		text = pattern.ReplaceAllString(text, "$1")
	}
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

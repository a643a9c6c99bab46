package rules

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Rule is a compiled, immutable word-correction rule. The pattern is
// case-insensitive; how the replacement is applied depends on the template
// kind decided at compile time: literal templates mirror the capitalization
// of each match, backreference templates are expanded verbatim because they
// echo captured text.
type Rule struct {
	pattern     *regexp.Regexp
	replacement string
	description string

	// backref marks templates with positional backreferences ($1, ${2}, ...).
	backref bool
	// tailGroup marks the pattern's last capture group as trailing context
	// (or a word-boundary delimiter): it is re-emitted verbatim after the
	// replacement and excluded from the case-shape inspection.
	tailGroup bool
	// leadCheck requires a programmatic left word-boundary check, used when
	// the pattern starts with a letter RE2's ASCII \b cannot anchor.
	leadCheck bool
}

// Description returns the rule's human-readable label.
func (r *Rule) Description() string {
	return r.description
}

// Apply substitutes every non-overlapping match in text and reports whether
// anything changed.
func (r *Rule) Apply(text string) (string, bool) {
	locs := r.pattern.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return text, false
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		if r.leadCheck && !boundaryBefore(text, loc[0]) {
			continue
		}
		b.WriteString(text[last:loc[0]])

		if r.backref {
			b.Write(r.pattern.ExpandString(nil, r.replacement, text, loc))
		} else {
			end := loc[1]
			tail := ""
			if r.tailGroup {
				n := r.pattern.NumSubexp()
				if ts, te := loc[2*n], loc[2*n+1]; ts >= 0 {
					tail = text[ts:te]
					end = ts
				}
			}
			b.WriteString(matchCase(text[loc[0]:end], r.replacement))
			b.WriteString(tail)
		}
		last = loc[1]
	}
	b.WriteString(text[last:])

	out := b.String()
	return out, out != text
}

// ApplySet applies rules in declaration order, each rule operating on the
// output of the previous one. A single pass: a rule already passed over is
// never revisited, even if a later rule produces text it would match.
func ApplySet(set []*Rule, text string, log *zap.Logger) string {
	for _, r := range set {
		next, changed := r.Apply(text)
		if changed {
			if log != nil {
				log.Debug("correction applied", zap.String("rule", r.Description()))
			}
			text = next
		}
	}
	return text
}

// matchCase shapes replacement after the capitalization of match: an
// all-uppercase match upper-cases the whole replacement, a leading capital
// upper-cases only the replacement's first rune, anything else leaves the
// replacement's own casing authoritative.
func matchCase(match, replacement string) string {
	if replacement == "" {
		return replacement
	}
	if isAllUpper(match) {
		return strings.ToUpper(replacement)
	}
	first, _ := utf8.DecodeRuneInString(match)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(replacement)
		return string(unicode.ToUpper(r)) + replacement[size:]
	}
	return replacement
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			hasLetter = true
		}
	}
	return hasLetter
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

package rules

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Spec is a declarative correction rule before compilation. Exactly one of
// Pattern and Literal must be set: Pattern is a regular expression whose
// author is responsible for word boundaries, Literal is plain text that gets
// escaped and word-bounded automatically so "loose" never matches inside
// "loosened".
type Spec struct {
	Pattern     string
	Literal     string
	Replacement string
	Description string
	// ContextTail marks the pattern's last capture group as trailing
	// context to re-emit verbatim after the case-shaped replacement.
	ContextTail bool
}

// nonWordBoundary consumes one non-word rune (or end of input) where RE2's
// ASCII-only \b cannot assert a boundary after a non-ASCII letter.
const nonWordBoundary = `([^\p{L}\p{N}_]|$)`

var backrefMarker = regexp.MustCompile(`\$(\d|\{\d+\})`)

// Compile turns a Spec into an executable Rule. The pattern is compiled
// case-insensitive; the template kind (literal vs backreferenced) is decided
// here, once, so the substitution engine never re-inspects it.
func Compile(spec Spec) (*Rule, error) {
	switch {
	case spec.Literal != "" && spec.Pattern != "":
		return nil, errors.New("rule sets both literal and pattern")
	case spec.Literal != "":
		return compileLiteral(spec)
	case spec.Pattern != "":
		return compilePattern(spec)
	default:
		return nil, errors.New("rule has neither literal nor pattern")
	}
}

func compilePattern(spec Spec) (*Rule, error) {
	re, err := regexp.Compile(`(?i)` + spec.Pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", spec.Pattern, err)
	}
	rule := &Rule{
		pattern:     re,
		replacement: spec.Replacement,
		description: spec.Description,
		backref:     backrefMarker.MatchString(spec.Replacement),
		tailGroup:   spec.ContextTail,
	}
	if rule.backref && rule.tailGroup {
		return nil, fmt.Errorf("pattern %q: context tail cannot combine with a backreference template", spec.Pattern)
	}
	if rule.tailGroup && re.NumSubexp() == 0 {
		return nil, fmt.Errorf("pattern %q: context tail requires a capture group", spec.Pattern)
	}
	return rule, nil
}

func compileLiteral(spec Spec) (*Rule, error) {
	pat := regexp.QuoteMeta(spec.Literal)

	first, _ := utf8.DecodeRuneInString(spec.Literal)
	leadCheck := false
	if isASCIIWord(first) {
		pat = `\b` + pat
	} else {
		leadCheck = true
	}

	lastRune, _ := utf8.DecodeLastRuneInString(spec.Literal)
	tailGroup := false
	if isASCIIWord(lastRune) {
		pat += `\b`
	} else {
		pat += nonWordBoundary
		tailGroup = true
	}

	re, err := regexp.Compile(`(?i)` + pat)
	if err != nil {
		return nil, fmt.Errorf("literal %q: %w", spec.Literal, err)
	}
	return &Rule{
		pattern:     re,
		replacement: spec.Replacement,
		description: spec.Description,
		tailGroup:   tailGroup,
		leadCheck:   leadCheck,
	}, nil
}

// CompileAll compiles specs in declaration order. A malformed spec is skipped
// with a warning rather than failing the batch: partial success is expected
// and correct, in particular for user-supplied configuration.
func CompileAll(specs []Spec, log *zap.Logger) []*Rule {
	out := make([]*Rule, 0, len(specs))
	for i, spec := range specs {
		rule, err := Compile(spec)
		if err != nil {
			if log != nil {
				log.Warn("skipping invalid correction rule",
					zap.Int("index", i),
					zap.String("description", spec.Description),
					zap.Error(err),
				)
			}
			continue
		}
		out = append(out, rule)
	}
	return out
}

func isASCIIWord(r rune) bool {
	return r < utf8.RuneSelf &&
		(r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
}

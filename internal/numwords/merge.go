package numwords

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Parser converts one run of number words into its digit form. A parse
// failure is local to the run: the merger leaves the original text in place.
type Parser interface {
	Parse(fragment, lang string) (string, error)
}

const numberWord = `zero|one|two|three|four|five|six|seven|eight|nine|ten` +
	`|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen` +
	`|eighteen|nineteen|twenty|thirty|forty|fifty|sixty|seventy` +
	`|eighty|ninety|hundred|thousand|million|billion|trillion`

// A run must start and end on a real number word; "and" is only admitted
// between them, so "cats and five dogs" converts the "five" instead of
// feeding an unparseable "and five" to the parser. The optional trailing
// space is consumed so the caller can restore the original spacing.
var runPattern = regexp.MustCompile(
	`(?i)\b(?:` + numberWord + `)(?:\s+(?:and\s+)?(?:` + numberWord + `))* ?\b`)

// Merge rewrites every maximal run of English number words in text as
// digits. Runs the parser rejects stay unchanged; a trailing space consumed
// by the run match is preserved in the output.
func Merge(text string, parser Parser, log *zap.Logger) string {
	if parser == nil {
		return text
	}
	return runPattern.ReplaceAllStringFunc(text, func(raw string) string {
		fragment := strings.TrimSpace(raw)
		digits, err := parser.Parse(fragment, "en")
		if err != nil {
			if log != nil {
				log.Debug("number run left unchanged",
					zap.String("fragment", fragment), zap.Error(err))
			}
			return raw
		}
		if strings.HasSuffix(raw, " ") {
			digits += " "
		}
		return digits
	})
}

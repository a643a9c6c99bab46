package numwords

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// English parses English number-word sequences into digit strings. It is
// deliberately strict: an out-of-place word fails the whole fragment, which
// the merger then leaves untouched.
type English struct{}

var units = map[string]uint64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9,
}

var teens = map[string]uint64{
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tens = map[string]uint64{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var magnitudes = map[string]uint64{
	"thousand": 1_000, "million": 1_000_000,
	"billion": 1_000_000_000, "trillion": 1_000_000_000_000,
}

type wordKind int

const (
	kindNone wordKind = iota
	kindDigit
	kindHundred
	kindMagnitude
	kindAnd
)

// Parse converts a whitespace-separated fragment of number words into its
// digit string, e.g. "twenty three" -> "23".
func (English) Parse(fragment, lang string) (string, error) {
	if lang != "en" {
		return "", fmt.Errorf("unsupported language %q", lang)
	}

	words := strings.Fields(strings.ToLower(fragment))
	if len(words) == 0 {
		return "", errors.New("empty fragment")
	}
	if words[0] == "zero" {
		if len(words) != 1 {
			return "", errors.New(`"zero" is only valid on its own`)
		}
		return "0", nil
	}

	var total, group uint64
	lastMagnitude := uint64(0)
	prev := kindNone

	for _, w := range words {
		switch {
		case w == "and":
			if prev != kindHundred && prev != kindMagnitude {
				return "", errors.New(`misplaced "and"`)
			}
			prev = kindAnd

		case units[w] != 0:
			if group%10 != 0 || (group%100 >= 10 && group%100 <= 19) {
				return "", fmt.Errorf("unit %q out of place", w)
			}
			group += units[w]
			prev = kindDigit

		case teens[w] != 0:
			if group%100 != 0 {
				return "", fmt.Errorf("teen %q out of place", w)
			}
			group += teens[w]
			prev = kindDigit

		case tens[w] != 0:
			if group%100 != 0 {
				return "", fmt.Errorf("tens %q out of place", w)
			}
			group += tens[w]
			prev = kindDigit

		case w == "hundred":
			if group == 0 || group > 99 {
				return "", errors.New(`"hundred" out of place`)
			}
			group *= 100
			prev = kindHundred

		case magnitudes[w] != 0:
			if group == 0 {
				return "", fmt.Errorf("magnitude %q without a leading value", w)
			}
			if lastMagnitude != 0 && magnitudes[w] >= lastMagnitude {
				return "", fmt.Errorf("magnitude %q out of order", w)
			}
			total += group * magnitudes[w]
			group = 0
			lastMagnitude = magnitudes[w]
			prev = kindMagnitude

		case w == "zero":
			return "", errors.New(`"zero" is only valid on its own`)

		default:
			return "", fmt.Errorf("unrecognized number word %q", w)
		}
	}

	if prev == kindAnd {
		return "", errors.New(`dangling "and"`)
	}
	return strconv.FormatUint(total+group, 10), nil
}

package langid

import (
	"errors"
	"strings"
)

// Detector guesses whether a transcript is Polish or English from stopword
// and diacritic profiles. It is intentionally small: transcripts are short,
// and a wrong guess only selects the other language's rule tables.
type Detector struct {
	defaultTag string
}

// New creates a detector that falls back to defaultTag on a tie.
func New(defaultTag string) *Detector {
	return &Detector{defaultTag: defaultTag}
}

var polishStopwords = makeSet(
	"i", "w", "z", "na", "do", "to", "że", "się", "nie", "jest", "o",
	"jak", "po", "za", "co", "tak", "ale", "czy", "dla", "od", "przez",
	"przy", "być", "są", "był", "była", "było", "mam", "mnie", "ten",
	"ta", "te", "już", "tylko", "bardzo", "może", "trzeba", "jego",
	"jej", "ich", "bo", "więc", "kiedy", "gdzie", "który", "która",
)

var englishStopwords = makeSet(
	"the", "a", "an", "is", "are", "was", "were", "am", "be", "been",
	"i", "you", "he", "she", "it", "we", "they", "to", "of", "and",
	"in", "that", "this", "have", "has", "had", "for", "not", "on",
	"with", "as", "at", "but", "by", "from", "or", "what", "do",
	"does", "don't", "going", "my", "your", "his", "her", "their",
)

const polishDiacritics = "ąćęłńóśźż"

// Detect returns "pl" or "en" for the given text. It fails only on
// empty/whitespace input; the caller substitutes the default tag.
func (d *Detector) Detect(text string) (string, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return "", errors.New("empty text")
	}

	var plScore, enScore int
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'")
		if polishStopwords[w] {
			plScore += 2
		}
		if englishStopwords[w] {
			enScore += 2
		}
	}
	for _, r := range text {
		if strings.ContainsRune(polishDiacritics, r) {
			plScore += 3
		}
	}

	switch {
	case enScore > plScore:
		return "en", nil
	case plScore > enScore:
		return "pl", nil
	default:
		return d.defaultTag, nil
	}
}

func makeSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

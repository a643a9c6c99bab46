package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Match is one grammar finding with its suggested replacements, offsets in
// runes into the checked text.
type Match struct {
	Offset       int
	Length       int
	Message      string
	Replacements []string
}

// Checker is a LanguageTool-backed grammar checker bound to one language.
type Checker struct {
	baseURL  string
	language string // LanguageTool code, e.g. pl-PL
	client   *http.Client
	logger   *zap.Logger
}

// languageCodes maps pipeline language tags to LanguageTool codes.
var languageCodes = map[string]string{
	"pl": "pl-PL",
	"en": "en-US",
}

// NewChecker creates a checker for the given pipeline language tag against a
// LanguageTool server base URL.
func NewChecker(baseURL, lang string, timeout time.Duration, log *zap.Logger) (*Checker, error) {
	code, ok := languageCodes[lang]
	if !ok {
		return nil, fmt.Errorf("no LanguageTool code for language %q", lang)
	}
	return &Checker{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: code,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}, nil
}

type checkResponse struct {
	Matches []struct {
		Offset       int    `json:"offset"`
		Length       int    `json:"length"`
		Message      string `json:"message"`
		Replacements []struct {
			Value string `json:"value"`
		} `json:"replacements"`
	} `json:"matches"`
}

// Check submits text to the LanguageTool /v2/check endpoint and returns its
// findings.
func (c *Checker) Check(ctx context.Context, text string) ([]Match, error) {
	form := url.Values{
		"text":     {text},
		"language": {c.language},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grammar check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grammar service returned status %d", resp.StatusCode)
	}

	var decoded checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("grammar response decode failed: %w", err)
	}

	matches := make([]Match, 0, len(decoded.Matches))
	for _, m := range decoded.Matches {
		match := Match{Offset: m.Offset, Length: m.Length, Message: m.Message}
		for _, r := range m.Replacements {
			match.Replacements = append(match.Replacements, r.Value)
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Correct applies each match's first suggested replacement to text. Matches
// are applied right to left so earlier offsets stay valid; matches without a
// suggestion, out of bounds, or overlapping an already-applied one are
// skipped.
func (c *Checker) Correct(text string, matches []Match) (string, error) {
	if len(matches) == 0 {
		return text, nil
	}

	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Offset > ordered[j].Offset
	})

	runes := []rune(text)
	appliedStart := len(runes) + 1
	for _, m := range ordered {
		if len(m.Replacements) == 0 || m.Length <= 0 {
			continue
		}
		end := m.Offset + m.Length
		if m.Offset < 0 || end > len(runes) || end > appliedStart {
			continue
		}
		patched := make([]rune, 0, len(runes))
		patched = append(patched, runes[:m.Offset]...)
		patched = append(patched, []rune(m.Replacements[0])...)
		patched = append(patched, runes[end:]...)
		runes = patched
		appliedStart = m.Offset
	}
	return string(runes), nil
}

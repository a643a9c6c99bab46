package replace

import (
	"encoding/json"
	"errors"
	"hash/fnv"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxkit/cleanscribe/internal/rules"
)

// Rule is a user-authored replacement: a compiled correction rule plus an
// optional language restriction (empty means unrestricted).
type Rule struct {
	*rules.Rule
	Lang string
}

// Store caches user replacement rules loaded from a JSON file and reloads
// them transparently whenever the file's modification time changes. Readers
// always observe either the pre-reload or the fully-loaded post-reload
// sequence, never a partially parsed one.
type Store struct {
	path      string
	languages map[string]bool
	logger    *zap.Logger

	mu          sync.Mutex
	rules       []Rule
	modTime     time.Time
	hasModTime  bool
	fingerprint uint64
}

// NewStore creates a store for the given file path. languages lists the
// valid values for an entry's "lang" field; anything else loses its filter
// with a warning.
func NewStore(path string, languages []string, log *zap.Logger) *Store {
	valid := make(map[string]bool, len(languages))
	for _, lang := range languages {
		valid[lang] = true
	}
	return &Store{path: path, languages: valid, logger: log}
}

// Get returns the current rule sequence, reloading first if the backing file
// changed. A missing file clears the cache once and stays empty until the
// file reappears.
func (s *Store) Get() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return s.rules
}

// Fingerprint identifies the current rule sequence; it changes whenever a
// reload produces different rules. Callers use it to key derived caches.
func (s *Store) Fingerprint() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return s.fingerprint
}

func (s *Store) refreshLocked() {
	fi, err := os.Stat(s.path)
	if err != nil {
		if s.hasModTime {
			s.logger.Info("user replacements file removed, clearing rules",
				zap.String("path", s.path))
			s.rules = nil
			s.hasModTime = false
			s.fingerprint = 0
		}
		return
	}

	if s.hasModTime && fi.ModTime().Equal(s.modTime) {
		return
	}
	if s.hasModTime {
		s.logger.Info("user replacements file changed, reloading",
			zap.String("path", s.path))
	}
	s.rules = s.load()
	s.modTime = fi.ModTime()
	s.hasModTime = true
	s.fingerprint = fingerprintRules(s.rules)
}

type rawEntry struct {
	From any `json:"from"`
	To   any `json:"to"`
	Lang any `json:"lang"`
}

func (s *Store) load() []Rule {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("failed to read user replacements file", zap.Error(err))
		return nil
	}

	entries, err := decodeEntries(data)
	if err != nil {
		s.logger.Warn("invalid user replacements file", zap.Error(err))
		return nil
	}

	out := make([]Rule, 0, len(entries))
	for i, raw := range entries {
		var e rawEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			s.logger.Warn("user replacement entry is not an object, skipping",
				zap.Int("index", i))
			continue
		}

		from, ok := e.From.(string)
		if !ok || from == "" {
			s.logger.Warn("user replacement missing or invalid 'from', skipping",
				zap.Int("index", i))
			continue
		}
		to, ok := e.To.(string)
		if !ok {
			s.logger.Warn("user replacement missing or invalid 'to', skipping",
				zap.Int("index", i))
			continue
		}

		lang := ""
		if e.Lang != nil {
			if l, ok := e.Lang.(string); ok && s.languages[l] {
				lang = l
			} else {
				s.logger.Warn("user replacement has invalid language filter, ignoring it",
					zap.Int("index", i), zap.Any("lang", e.Lang))
			}
		}

		compiled, err := rules.Compile(rules.Spec{
			Literal:     from,
			Replacement: to,
			Description: from + " -> " + to,
		})
		if err != nil {
			s.logger.Warn("user replacement failed to compile, skipping",
				zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, Rule{Rule: compiled, Lang: lang})
	}

	s.logger.Info("loaded user replacement rules",
		zap.Int("count", len(out)), zap.String("path", s.path))
	return out
}

// decodeEntries accepts either a top-level array of rule entries or an
// object with a "rules" array.
func decodeEntries(data []byte) ([]json.RawMessage, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var obj struct {
		Rules []json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj.Rules, nil
	}
	return nil, errors.New("expected an object or an array at the top level")
}

func fingerprintRules(list []Rule) uint64 {
	h := fnv.New64a()
	for _, r := range list {
		h.Write([]byte(r.Description()))
		h.Write([]byte{0})
		h.Write([]byte(r.Lang))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

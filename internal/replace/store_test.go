package replace

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voxkit/cleanscribe/internal/rules"
)

func writeRules(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write rules file: %v", err)
	}
}

// touch moves the file mtime forward so a reload is detected even on
// filesystems with coarse timestamp resolution.
func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	when := time.Now().Add(offset)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("Failed to change mtime: %v", err)
	}
}

func applyAll(list []Rule, text string) string {
	for _, r := range list {
		text, _ = r.Apply(text)
	}
	return text
}

func TestStoreLoad(t *testing.T) {
	languages := []string{"pl", "en"}

	t.Run("ArrayFormat", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `[{"from": "foo", "to": "bar"}]`)

		store := NewStore(path, languages, zap.NewNop())
		list := store.Get()
		if len(list) != 1 {
			t.Fatalf("Got %d rules, want 1", len(list))
		}
		if out := applyAll(list, "foo baz"); out != "bar baz" {
			t.Errorf("Apply = %q", out)
		}
	})

	t.Run("ObjectFormat", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `{"rules": [{"from": "foo", "to": "bar", "lang": "en"}]}`)

		store := NewStore(path, languages, zap.NewNop())
		list := store.Get()
		if len(list) != 1 {
			t.Fatalf("Got %d rules, want 1", len(list))
		}
		if list[0].Lang != "en" {
			t.Errorf("Lang = %q, want en", list[0].Lang)
		}
	})

	t.Run("InvalidEntriesSkipped", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `[
			{"from": "good", "to": "fixed"},
			{"from": "", "to": "x"},
			{"from": 5, "to": "x"},
			{"to": "orphan"},
			"not an object",
			{"from": "also good", "to": ""}
		]`)

		store := NewStore(path, languages, zap.NewNop())
		list := store.Get()
		if len(list) != 2 {
			t.Fatalf("Got %d rules, want 2", len(list))
		}
	})

	t.Run("InvalidLanguageFilterDropped", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `[{"from": "foo", "to": "bar", "lang": "de"}]`)

		store := NewStore(path, languages, zap.NewNop())
		list := store.Get()
		if len(list) != 1 {
			t.Fatalf("Got %d rules, want 1", len(list))
		}
		// The rule survives, the bogus filter does not
		if list[0].Lang != "" {
			t.Errorf("Lang = %q, want empty", list[0].Lang)
		}
	})

	t.Run("MalformedFileYieldsNoRules", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `{{{not json`)

		store := NewStore(path, languages, zap.NewNop())
		if list := store.Get(); len(list) != 0 {
			t.Errorf("Got %d rules, want 0", len(list))
		}
	})

	t.Run("MissingFileYieldsNoRules", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "does-not-exist.json")
		store := NewStore(path, languages, zap.NewNop())
		if list := store.Get(); len(list) != 0 {
			t.Errorf("Got %d rules, want 0", len(list))
		}
	})

	t.Run("UserRulesAreLiteral", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `[{"from": "a.c", "to": "abc"}]`)

		store := NewStore(path, languages, zap.NewNop())
		list := store.Get()
		if len(list) != 1 {
			t.Fatalf("Got %d rules, want 1", len(list))
		}
		if out := applyAll(list, "say a.c now"); out != "say abc now" {
			t.Errorf("Apply = %q", out)
		}
		// Regex metacharacters in "from" must not act as wildcards
		if out := applyAll(list, "say aXc now"); out != "say aXc now" {
			t.Errorf("Apply = %q, literal rule matched as regex", out)
		}
	})
}

func TestStoreHotReload(t *testing.T) {
	languages := []string{"pl", "en"}

	t.Run("ReloadOnMtimeChange", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `[{"from": "foo", "to": "bar"}]`)

		store := NewStore(path, languages, zap.NewNop())
		if out := applyAll(store.Get(), "foo"); out != "bar" {
			t.Fatalf("Initial rules not loaded: %q", out)
		}
		before := store.Fingerprint()

		writeRules(t, path, `[{"from": "foo", "to": "qux"}]`)
		touch(t, path, time.Second)

		if out := applyAll(store.Get(), "foo"); out != "qux" {
			t.Errorf("Apply after reload = %q, want %q", out, "qux")
		}
		if after := store.Fingerprint(); after == before {
			t.Error("Fingerprint unchanged across a rule change")
		}
	})

	t.Run("NoReloadWithoutMtimeChange", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `[{"from": "foo", "to": "bar"}]`)

		store := NewStore(path, languages, zap.NewNop())
		first := store.Get()
		second := store.Get()
		if len(first) != 1 || len(second) != 1 {
			t.Fatalf("Rules not loaded")
		}
		// Same backing slice: no reload happened
		if &first[0] != &second[0] {
			t.Error("Store reloaded despite unchanged mtime")
		}
	})

	t.Run("FileDeletionClearsRules", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `[{"from": "foo", "to": "bar"}]`)

		store := NewStore(path, languages, zap.NewNop())
		if len(store.Get()) != 1 {
			t.Fatal("Initial rules not loaded")
		}

		if err := os.Remove(path); err != nil {
			t.Fatalf("Failed to remove file: %v", err)
		}
		if list := store.Get(); len(list) != 0 {
			t.Errorf("Got %d rules after deletion, want 0", len(list))
		}
		if fp := store.Fingerprint(); fp != 0 {
			t.Errorf("Fingerprint after deletion = %d, want 0", fp)
		}
	})

	t.Run("FileReappearanceRestoresRules", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "replacements.json")
		writeRules(t, path, `[{"from": "foo", "to": "bar"}]`)

		store := NewStore(path, languages, zap.NewNop())
		store.Get()
		os.Remove(path)
		store.Get()

		writeRules(t, path, `[{"from": "foo", "to": "back"}]`)
		if out := applyAll(store.Get(), "foo"); out != "back" {
			t.Errorf("Apply = %q, want %q", out, "back")
		}
	})
}

func TestStoreConcurrentAccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replacements.json")
	writeRules(t, path, `[{"from": "aaa", "to": "bbb"}]`)
	store := NewStore(path, []string{"pl", "en"}, zap.NewNop())

	// Alternate between a one-rule and a three-rule file under reader
	// load. Every Get must hand back a fully formed slice, never one in
	// the middle of a reload.
	contents := []string{
		`[{"from": "aaa", "to": "bbb"}]`,
		`[{"from": "aaa", "to": "bbb"}, {"from": "ccc", "to": "ddd", "lang": "en"}, {"from": "eee", "to": "fff"}]`,
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				list := store.Get()
				if len(list) != 1 && len(list) != 3 {
					t.Errorf("Got %d rules, want 1 or 3", len(list))
					return
				}
				for _, r := range list {
					if r.Rule == nil {
						t.Error("Observed a rule with no compiled pattern")
						return
					}
				}
			}
		}()
	}

	// Fatalf is not allowed off the test goroutine, so the writer
	// reports failures with Errorf.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			// Replace the file atomically: a plain WriteFile truncates
			// first, letting a concurrent Get read a half-written file.
			tmp := path + ".tmp"
			if err := os.WriteFile(tmp, []byte(contents[j%2]), 0o644); err != nil {
				t.Errorf("Failed to write rules file: %v", err)
				return
			}
			if err := os.Rename(tmp, path); err != nil {
				t.Errorf("Failed to replace rules file: %v", err)
				return
			}
			when := time.Now().Add(time.Duration(j+1) * time.Second)
			if err := os.Chtimes(path, when, when); err != nil {
				t.Errorf("Failed to change mtime: %v", err)
				return
			}
		}
	}()

	wg.Wait()
}

func TestFingerprintStability(t *testing.T) {
	compile := func(from, to string) *rules.Rule {
		r, err := rules.Compile(rules.Spec{Literal: from, Replacement: to, Description: from + " -> " + to})
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		return r
	}

	a := []Rule{{Rule: compile("x", "y"), Lang: "en"}}
	b := []Rule{{Rule: compile("x", "y"), Lang: "en"}}
	c := []Rule{{Rule: compile("x", "z"), Lang: "en"}}
	d := []Rule{{Rule: compile("x", "y"), Lang: "pl"}}

	if fingerprintRules(a) != fingerprintRules(b) {
		t.Error("Equal rule sequences produced different fingerprints")
	}
	if fingerprintRules(a) == fingerprintRules(c) {
		t.Error("Different replacements produced the same fingerprint")
	}
	if fingerprintRules(a) == fingerprintRules(d) {
		t.Error("Different language filters produced the same fingerprint")
	}
}

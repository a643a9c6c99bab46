package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voxkit/cleanscribe/internal/grammar"
	"github.com/voxkit/cleanscribe/internal/langid"
	"github.com/voxkit/cleanscribe/internal/logger"
	"github.com/voxkit/cleanscribe/internal/numwords"
	"github.com/voxkit/cleanscribe/internal/replace"
)

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

// failingDetector always errors, for failure-isolation tests.
type failingDetector struct{}

func (failingDetector) Detect(string) (string, error) { return "", errors.New("boom") }

// failingNormalizer always errors.
type failingNormalizer struct{}

func (failingNormalizer) Normalize(context.Context, string) (string, error) {
	return "", errors.New("itn down")
}

// staticNormalizer returns a fixed string.
type staticNormalizer struct{ out string }

func (n staticNormalizer) Normalize(context.Context, string) (string, error) {
	return n.out, nil
}

// failingPunct always errors.
type failingPunct struct{}

func (failingPunct) Infer(context.Context, string) ([]string, error) {
	return nil, errors.New("model gone")
}

func stageOutput(res Result, stage string) (string, bool) {
	for _, s := range res.Stages {
		if s.Stage == stage {
			return s.Output, true
		}
	}
	return "", false
}

func TestRunEnglish(t *testing.T) {
	p := New(Config{
		DefaultLanguage: "en",
		Numerals:        numwords.English{},
	}, nopLogger())

	cases := []struct{ in, want string }{
		{"your going to loose alot", "you're going to lose a lot"},
		{"um like you know basically its fine", "its fine"},
		{"i have twenty three cats and five dogs", "i have 23 cats and 5 dogs"},
		{"hello world", "hello world"},
	}
	for _, c := range cases {
		res := p.Run(context.Background(), c.in)
		if res.Output != c.want {
			t.Errorf("Run(%q) = %q, want %q", c.in, res.Output, c.want)
		}
		if res.Language != "en" {
			t.Errorf("Run(%q) language = %q", c.in, res.Language)
		}
	}
}

func TestRunPolish(t *testing.T) {
	p := New(Config{DefaultLanguage: "pl"}, nopLogger())

	res := p.Run(context.Background(), "napewno to jest na prawdę ważne")
	if want := "na pewno to jest naprawdę ważne"; res.Output != want {
		t.Errorf("Run = %q, want %q", res.Output, want)
	}
}

func TestRunWithDetector(t *testing.T) {
	p := New(Config{
		DefaultLanguage: "pl",
		Detector:        langid.New("pl"),
		Numerals:        numwords.English{},
	}, nopLogger())

	t.Run("RoutesEnglish", func(t *testing.T) {
		res := p.Run(context.Background(), "i think your going to loose alot of the time")
		if res.Language != "en" {
			t.Fatalf("Language = %q, want en", res.Language)
		}
		if want := "i think you're going to lose a lot of the time"; res.Output != want {
			t.Errorf("Run = %q, want %q", res.Output, want)
		}
	})

	t.Run("RoutesPolish", func(t *testing.T) {
		res := p.Run(context.Background(), "no więc napewno trzeba to zrobić")
		if res.Language != "pl" {
			t.Fatalf("Language = %q, want pl", res.Language)
		}
		if want := "na pewno trzeba to zrobić"; res.Output != want {
			t.Errorf("Run = %q, want %q", res.Output, want)
		}
	})
}

func TestRunEdgeCases(t *testing.T) {
	p := New(Config{DefaultLanguage: "en"}, nopLogger())

	t.Run("EmptyInput", func(t *testing.T) {
		res := p.Run(context.Background(), "")
		if res.Output != "" {
			t.Errorf("Output = %q, want empty", res.Output)
		}
		if len(res.Stages) != 0 {
			t.Errorf("Got %d stages for empty input, want 0", len(res.Stages))
		}
	})

	t.Run("WhitespaceInput", func(t *testing.T) {
		res := p.Run(context.Background(), "   ")
		if res.Output != "   " {
			t.Errorf("Output = %q, want input passthrough", res.Output)
		}
	})

	t.Run("AllFillersShortCircuits", func(t *testing.T) {
		res := p.Run(context.Background(), "um like you know")
		if res.Output != "" {
			t.Errorf("Output = %q, want empty", res.Output)
		}
		if _, ok := stageOutput(res, "fillers"); !ok {
			t.Error("Fillers stage missing from trace")
		}
		if _, ok := stageOutput(res, "corrections"); ok {
			t.Error("Corrections stage ran after the filler short-circuit")
		}
	})
}

func TestRunStageTrace(t *testing.T) {
	p := New(Config{
		DefaultLanguage: "en",
		Numerals:        numwords.English{},
	}, nopLogger())

	res := p.Run(context.Background(), "um its going to be twenty three")
	want := []string{"language", "fillers", "itn", "punct", "corrections", "user", "grammar"}
	if len(res.Stages) != len(want) {
		t.Fatalf("Got %d stages, want %d: %+v", len(res.Stages), len(want), res.Stages)
	}
	for i, name := range want {
		if res.Stages[i].Stage != name {
			t.Errorf("Stage %d = %q, want %q", i, res.Stages[i].Stage, name)
		}
	}
	if out, _ := stageOutput(res, "itn"); out != "its going to be 23" {
		t.Errorf("ITN stage output = %q", out)
	}
	if res.Output != "it's going to be 23" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestRunFailureIsolation(t *testing.T) {
	t.Run("DetectorFailureFallsBackToDefault", func(t *testing.T) {
		p := New(Config{
			DefaultLanguage: "en",
			Detector:        failingDetector{},
		}, nopLogger())
		res := p.Run(context.Background(), "hello world")
		if res.Language != "en" {
			t.Errorf("Language = %q, want default en", res.Language)
		}
		if res.Output != "hello world" {
			t.Errorf("Output = %q", res.Output)
		}
	})

	t.Run("ITNFailurePassesThrough", func(t *testing.T) {
		p := New(Config{
			DefaultLanguage: "pl",
			ITN:             failingNormalizer{},
		}, nopLogger())
		res := p.Run(context.Background(), "mam dwadzieścia trzy lata")
		if out, _ := stageOutput(res, "itn"); out != "mam dwadzieścia trzy lata" {
			t.Errorf("ITN stage output = %q, want passthrough", out)
		}
	})

	t.Run("PunctFailurePassesThrough", func(t *testing.T) {
		p := New(Config{
			DefaultLanguage: "en",
			Punct:           failingPunct{},
		}, nopLogger())
		res := p.Run(context.Background(), "hello world")
		if res.Output != "hello world" {
			t.Errorf("Output = %q", res.Output)
		}
	})

	t.Run("PolishITNApplied", func(t *testing.T) {
		p := New(Config{
			DefaultLanguage: "pl",
			ITN:             staticNormalizer{out: "mam 23 lata"},
		}, nopLogger())
		res := p.Run(context.Background(), "mam dwadzieścia trzy lata")
		if out, _ := stageOutput(res, "itn"); out != "mam 23 lata" {
			t.Errorf("ITN stage output = %q", out)
		}
	})
}

func TestRunUserReplacements(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "replacements.json")
	if err := os.WriteFile(path, []byte(`[
		{"from": "cleanscribe", "to": "CleanScribe"},
		{"from": "tylko po polsku", "to": "only in Polish", "lang": "pl"}
	]`), 0o644); err != nil {
		t.Fatalf("Failed to write replacements: %v", err)
	}

	store := replace.NewStore(path, []string{"pl", "en"}, zap.NewNop())
	p := New(Config{
		DefaultLanguage: "en",
		Store:           store,
	}, nopLogger())

	t.Run("UnrestrictedRuleApplies", func(t *testing.T) {
		res := p.Run(context.Background(), "try cleanscribe today")
		if want := "try CleanScribe today"; res.Output != want {
			t.Errorf("Output = %q, want %q", res.Output, want)
		}
	})

	t.Run("LanguageFilteredRuleSkipped", func(t *testing.T) {
		res := p.Run(context.Background(), "this is tylko po polsku")
		if res.Output != "this is tylko po polsku" {
			t.Errorf("Output = %q, want untouched", res.Output)
		}
	})

	t.Run("UserRulesRunAfterBuiltins", func(t *testing.T) {
		// Built-in fixes "alot"; the user rule then matches its output
		if err := os.WriteFile(path, []byte(`[{"from": "a lot", "to": "plenty"}]`), 0o644); err != nil {
			t.Fatalf("Failed to rewrite replacements: %v", err)
		}
		touchForward(t, path)
		res := p.Run(context.Background(), "thanks alot")
		if want := "thanks plenty"; res.Output != want {
			t.Errorf("Output = %q, want %q", res.Output, want)
		}
	})
}

func TestRunGrammarStage(t *testing.T) {
	srv := newGrammarStub(t, `{"matches":[{"offset":0,"length":2,"message":"casing","replacements":[{"value":"He"}]}]}`)
	defer srv.Close()

	checker, err := grammar.NewChecker(srv.URL, "en", 0, zap.NewNop())
	if err != nil {
		t.Fatalf("NewChecker failed: %v", err)
	}

	p := New(Config{
		DefaultLanguage: "en",
		Grammar:         map[string]GrammarChecker{"en": checker},
	}, nopLogger())

	res := p.Run(context.Background(), "he said nothing new here today")
	if want := "He said nothing new here today"; res.Output != want {
		t.Errorf("Output = %q, want %q", res.Output, want)
	}
}

// newGrammarStub serves a canned LanguageTool /v2/check response.
func newGrammarStub(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/check" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

// touchForward bumps the file mtime so the store's reload check fires.
func touchForward(t *testing.T, path string) {
	t.Helper()
	when := time.Now().Add(time.Second)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("Failed to change mtime: %v", err)
	}
}

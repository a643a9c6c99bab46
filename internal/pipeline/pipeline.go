package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/voxkit/cleanscribe/internal/fillers"
	"github.com/voxkit/cleanscribe/internal/grammar"
	"github.com/voxkit/cleanscribe/internal/logger"
	"github.com/voxkit/cleanscribe/internal/numwords"
	"github.com/voxkit/cleanscribe/internal/replace"
	"github.com/voxkit/cleanscribe/internal/rules"
)

// Each collaborator is optional: a nil handle degrades its stage to a
// pass-through, and a runtime failure is treated the same way.

// LanguageDetector guesses the language tag of a transcript.
type LanguageDetector interface {
	Detect(text string) (string, error)
}

// Normalizer converts spoken-form text into written form (Polish ITN).
type Normalizer interface {
	Normalize(ctx context.Context, text string) (string, error)
}

// PunctuationModel restores punctuation/capitalization as text segments.
type PunctuationModel interface {
	Infer(ctx context.Context, text string) ([]string, error)
}

// GrammarChecker finds and applies grammar fixes for one language.
type GrammarChecker interface {
	Check(ctx context.Context, text string) ([]grammar.Match, error)
	Correct(text string, matches []grammar.Match) (string, error)
}

// Config wires a pipeline: the default language plus one handle per
// collaborator. Store may be nil when user replacements are disabled.
type Config struct {
	DefaultLanguage string
	Detector        LanguageDetector
	Numerals        numwords.Parser
	ITN             Normalizer
	Punct           PunctuationModel
	Grammar         map[string]GrammarChecker
	Store           *replace.Store
}

// StageTrace records one stage's output, for logging and the live feed.
type StageTrace struct {
	Stage  string `json:"stage"`
	Output string `json:"output"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	Output   string       `json:"output"`
	Language string       `json:"language"`
	Stages   []StageTrace `json:"stages"`
}

// Pipeline sequences the correction stages for a single transcript. All rule
// data is read-only after construction; concurrent Run calls are safe.
type Pipeline struct {
	cfg     Config
	builtin map[string][]*rules.Rule
	logger  *logger.Logger
}

// New builds a pipeline with the built-in correction tables compiled once.
func New(cfg Config, log *logger.Logger) *Pipeline {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "pl"
	}
	return &Pipeline{
		cfg:     cfg,
		builtin: rules.Builtin(log.Logger),
		logger:  log,
	}
}

// Run pushes text through the staged correction sequence and always returns
// a result: every stage failure is isolated to a warning and the stage's
// input passed through unchanged.
func (p *Pipeline) Run(ctx context.Context, text string) Result {
	res := Result{Output: text, Language: p.cfg.DefaultLanguage}
	if strings.TrimSpace(text) == "" {
		return res
	}
	p.logger.Debug("pipeline input", zap.String("text", text))

	lang := p.detectLanguage(text)
	res.Language = lang
	res.trace("language", lang)

	text = fillers.Strip(text, lang)
	res.trace("fillers", text)
	if strings.TrimSpace(text) == "" {
		// Nothing but fillers; the remaining stages are skipped.
		res.Output = text
		return res
	}

	text = p.inverseNormalize(ctx, text, lang)
	res.trace("itn", text)

	text = p.restorePunctuation(ctx, text)
	res.trace("punct", text)

	text = rules.ApplySet(p.builtin[lang], text, p.logger.Logger)
	res.trace("corrections", text)

	text = p.applyUserReplacements(text, lang)
	res.trace("user", text)

	text = p.correctGrammar(ctx, text, lang)
	res.trace("grammar", text)

	res.Output = text
	return res
}

func (p *Pipeline) detectLanguage(text string) string {
	if p.cfg.Detector == nil {
		return p.cfg.DefaultLanguage
	}
	lang, err := p.cfg.Detector.Detect(text)
	if err != nil {
		p.logger.Warn("language detection failed", zap.Error(err))
		return p.cfg.DefaultLanguage
	}
	if _, ok := p.builtin[lang]; !ok {
		p.logger.Warn("detected language has no rule table, using default",
			zap.String("language", lang))
		return p.cfg.DefaultLanguage
	}
	return lang
}

func (p *Pipeline) inverseNormalize(ctx context.Context, text, lang string) string {
	switch lang {
	case "pl":
		if p.cfg.ITN == nil {
			return text
		}
		normalized, err := p.cfg.ITN.Normalize(ctx, text)
		if err != nil {
			p.logger.Warn("polish itn failed", zap.Error(err))
			return text
		}
		return normalized
	case "en":
		return numwords.Merge(text, p.cfg.Numerals, p.logger.Logger)
	default:
		return text
	}
}

func (p *Pipeline) restorePunctuation(ctx context.Context, text string) string {
	if p.cfg.Punct == nil {
		return text
	}
	segments, err := p.cfg.Punct.Infer(ctx, text)
	if err != nil {
		p.logger.Warn("punctuation restoration failed", zap.Error(err))
		return text
	}
	if len(segments) == 0 {
		return text
	}
	return strings.Join(segments, " ")
}

func (p *Pipeline) applyUserReplacements(text, lang string) string {
	if p.cfg.Store == nil {
		return text
	}
	for _, r := range p.cfg.Store.Get() {
		if r.Lang != "" && r.Lang != lang {
			continue
		}
		next, changed := r.Apply(text)
		if changed {
			p.logger.Debug("user replacement applied", zap.String("rule", r.Description()))
			text = next
		}
	}
	return text
}

func (p *Pipeline) correctGrammar(ctx context.Context, text, lang string) string {
	checker := p.cfg.Grammar[lang]
	if checker == nil {
		return text
	}
	matches, err := checker.Check(ctx, text)
	if err != nil {
		p.logger.Warn("grammar check failed", zap.Error(err))
		return text
	}
	corrected, err := checker.Correct(text, matches)
	if err != nil {
		p.logger.Warn("grammar correction failed", zap.Error(err))
		return text
	}
	return corrected
}

func (r *Result) trace(stage, output string) {
	r.Stages = append(r.Stages, StageTrace{Stage: stage, Output: output})
}

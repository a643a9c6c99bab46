//go:build onnx
// +build onnx

package punct

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// punctLabels are the per-token punctuation classes the model emits; the
// second half of the class space carries the same labels with the
// capitalization flag set.
var punctLabels = []string{"", ",", ".", "?"}

// onnxModel implements Model using ONNX Runtime (via yalue/onnxruntime_go).
type onnxModel struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	vocab      map[string]int64
	unkID      int64
	maxTokens  int
	logger     *zap.Logger
	mu         sync.Mutex
}

// NewModel initializes the ONNX Runtime backend. Requires build tag 'onnx'.
// Returns nil on any initialization failure so the caller degrades the
// punctuation stage instead of aborting startup.
func NewModel(cfg Config, logger *zap.Logger) Model {
	if cfg.ModelPath == "" || cfg.VocabPath == "" {
		return nil
	}

	// Allow user to provide shared library path via environment variable.
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		logger.Error("ONNX Runtime environment init failed", zap.Error(err))
		return nil
	}

	vocab, unkID, err := loadVocab(cfg.VocabPath)
	if err != nil {
		logger.Error("Failed to load punctuation vocabulary", zap.Error(err),
			zap.String("vocab", cfg.VocabPath))
		return nil
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		logger.Error("Failed to inspect ONNX model IO", zap.Error(err),
			zap.String("model", cfg.ModelPath))
		return nil
	}

	// Prefer common transformer input order.
	preferred := []string{"input_ids", "attention_mask"}
	available := map[string]bool{}
	for _, ii := range inputsInfo {
		available[strings.ToLower(ii.Name)] = true
	}
	var inputNames []string
	for _, name := range preferred {
		if available[name] {
			inputNames = append(inputNames, name)
		}
	}
	if len(inputNames) == 0 && len(inputsInfo) > 0 {
		inputNames = []string{inputsInfo[0].Name}
	}
	if len(outputsInfo) == 0 {
		logger.Error("ONNX model reports no outputs", zap.String("model", cfg.ModelPath))
		return nil
	}
	outputName := outputsInfo[0].Name

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, []string{outputName}, nil)
	if err != nil {
		logger.Error("ONNX Runtime session creation failed", zap.Error(err),
			zap.String("model", cfg.ModelPath))
		return nil
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}

	logger.Info("Punctuation model ready",
		zap.String("model", cfg.ModelPath),
		zap.Strings("inputs", inputNames),
		zap.String("output", outputName),
		zap.Int("vocab_size", len(vocab)))

	return &onnxModel{
		session:    session,
		inputNames: inputNames,
		outputName: outputName,
		vocab:      vocab,
		unkID:      unkID,
		maxTokens:  maxTokens,
		logger:     logger,
	}
}

// Infer tokenizes the text on whitespace, classifies each token and
// reassembles punctuated, capitalized segments.
func (m *onnxModel) Infer(ctx context.Context, text string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	rest := []string(nil)
	if len(tokens) > m.maxTokens {
		rest = tokens[m.maxTokens:]
		tokens = tokens[:m.maxTokens]
	}

	ids := make([]int64, len(tokens))
	mask := make([]int64, len(tokens))
	for i, tok := range tokens {
		id, ok := m.vocab[strings.ToLower(tok)]
		if !ok {
			id = m.unkID
		}
		ids[i] = id
		mask[i] = 1
	}

	classes, err := m.run(ids, mask)
	if err != nil {
		return nil, err
	}

	var segments []string
	var current []string
	for i, tok := range tokens {
		class := classes[i]
		word := tok
		if class >= int64(len(punctLabels)) || (i == 0 && len(segments) == 0) {
			word = capitalize(word)
		}
		punct := punctLabels[class%int64(len(punctLabels))]
		current = append(current, word+punct)
		if punct == "." || punct == "?" {
			segments = append(segments, strings.Join(current, " "))
			current = nil
		}
	}
	current = append(current, rest...)
	if len(current) > 0 {
		segments = append(segments, strings.Join(current, " "))
	}
	return segments, nil
}

// run executes one inference and returns the argmax class per token.
func (m *onnxModel) run(ids, mask []int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	shape := ort.NewShape(1, int64(len(ids)))
	idTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer idTensor.Destroy()

	inputs := []ort.Value{idTensor}
	if len(m.inputNames) > 1 {
		maskTensor, err := ort.NewTensor(shape, mask)
		if err != nil {
			return nil, fmt.Errorf("mask tensor: %w", err)
		}
		defer maskTensor.Destroy()
		inputs = append(inputs, maskTensor)
	}

	outputs := []ort.Value{nil}
	if err := m.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	logits, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	defer logits.Destroy()

	dims := logits.GetShape()
	if len(dims) != 3 || dims[1] != int64(len(ids)) {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	numClasses := int(dims[2])
	data := logits.GetData()

	classes := make([]int64, len(ids))
	for i := range ids {
		best, bestScore := 0, float32(0)
		for c := 0; c < numClasses; c++ {
			score := data[i*numClasses+c]
			if c == 0 || score > bestScore {
				best, bestScore = c, score
			}
		}
		classes[i] = int64(best)
	}
	return classes, nil
}

func (m *onnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	return nil
}

// loadVocab reads a one-token-per-line vocabulary file.
func loadVocab(path string) (map[string]int64, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	vocab := make(map[string]int64)
	unkID := int64(0)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		tok := strings.TrimSpace(scanner.Text())
		if tok == "" {
			continue
		}
		vocab[tok] = id
		if tok == "[UNK]" || tok == "<unk>" {
			unkID = id
		}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return vocab, unkID, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

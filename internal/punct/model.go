package punct

import "context"

// Model restores punctuation and capitalization, returning text segments
// that the pipeline joins with single spaces.
type Model interface {
	Infer(ctx context.Context, text string) ([]string, error)
	Close() error
}

// Config locates the token-classification model and its vocabulary.
type Config struct {
	ModelPath string
	VocabPath string
	MaxTokens int
}

// NewModel creates a model backend if supported by the current build. The
// default build (no 'onnx' tag) returns nil so the punctuation stage
// degrades to pass-through without pulling in the ONNX Runtime; see
// model_onnx.go for the real backend.

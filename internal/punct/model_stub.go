//go:build !onnx
// +build !onnx

package punct

import (
	"go.uber.org/zap"
)

// Stub used when the 'onnx' build tag is not set.
func NewModel(cfg Config, logger *zap.Logger) Model {
	return nil
}

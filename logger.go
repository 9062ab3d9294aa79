package gifp4

import "go.uber.org/zap"

// NewLogger builds a JSON logger writing to stderr at the given level
// (debug, info, warn, error).
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	return cfg.Build()
}

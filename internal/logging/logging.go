package logging

import (
	"fmt"

	"bakery/internal/config"

	"go.uber.org/zap"
)

// Newは設定からzapロガーを作る（devは見やすい形式）
func New(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.IsDev() {
		zc = zap.NewDevelopmentConfig()
	}

	if cfg.Log.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		zc.Level = lvl
	}
	if cfg.Log.Encoding != "" {
		zc.Encoding = cfg.Log.Encoding
	}
	if len(cfg.Log.OutputPaths) > 0 {
		zc.OutputPaths = cfg.Log.OutputPaths
	}

	return zc.Build()
}

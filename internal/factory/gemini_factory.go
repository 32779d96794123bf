package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/adapters/gemini"
	"github.com/mikey/usenet-explorer/internal/config"
	"github.com/mikey/usenet-explorer/internal/core"
	"github.com/mikey/usenet-explorer/internal/utils"
)

// GeminiFactory creates Gemini relevance gateways
type GeminiFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *GeminiFactory {
	return &GeminiFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateGateway creates a Gemini relevance gateway
func (f *GeminiFactory) CreateGateway() (core.RelevanceGateway, error) {
	geminiCfg := f.cfg.GetGemini()
	gateway, err := gemini.NewGateway(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		geminiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini gateway: %w", err)
	}
	return gateway, nil
}

package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/adapters/keyword"
	"github.com/mikey/usenet-explorer/internal/config"
	"github.com/mikey/usenet-explorer/internal/core"
	"github.com/mikey/usenet-explorer/internal/utils"
)

// RelevanceFactory creates relevance gateways
type RelevanceFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewRelevanceFactory creates a new relevance gateway factory
func NewRelevanceFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *RelevanceFactory {
	return &RelevanceFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateGateway creates a relevance gateway based on the configuration
func (f *RelevanceFactory) CreateGateway() (core.RelevanceGateway, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "keyword":
		return keyword.NewGateway(f.logger), nil
	case "openai":
		factory := NewOpenAIFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateGateway()
	case "gemini":
		factory := NewGeminiFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateGateway()
	case "bedrock":
		factory := NewBedrockFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateGateway()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}

// CreateFallback creates the keyword gateway used when no LLM is reachable.
func (f *RelevanceFactory) CreateFallback() *keyword.Gateway {
	return keyword.NewGateway(f.logger)
}

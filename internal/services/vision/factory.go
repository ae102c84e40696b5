package vision

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
)

// NewVisionService creates the vision service implementation selected by
// llm.default_provider
func NewVisionService(cfg *common.Config, logger arbor.ILogger) (interfaces.VisionService, error) {
	provider := cfg.LLM.DefaultProvider
	if provider == "" {
		provider = common.LLMProviderClaude
	}

	logger.Info().Str("provider", string(provider)).Msg("Initializing vision service")

	switch provider {
	case common.LLMProviderClaude:
		return NewClaudeService(&cfg.Claude, logger)

	case common.LLMProviderGemini:
		return NewGeminiService(&cfg.Gemini, logger)

	default:
		return nil, fmt.Errorf("invalid LLM provider '%s': must be 'claude' or 'gemini'", provider)
	}
}

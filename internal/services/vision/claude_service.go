package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
	"golang.org/x/time/rate"
)

// ClaudeService implements the VisionService interface using the
// Anthropic Claude API. Image calls send the image as a base64 block
// alongside the prompt; chart calls are text only.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    *anthropic.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	maxTokens int
}

var _ interfaces.VisionService = (*ClaudeService)(nil)

// NewClaudeService creates a new Claude vision service instance
func NewClaudeService(claudeConfig *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Claude vision service (set via ANTHROPIC_API_KEY, DECKTAG_CLAUDE_API_KEY, or claude.api_key in config)")
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-haiku-3-5-20241022"
	}

	timeout, err := time.ParseDuration(claudeConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", claudeConfig.Timeout, err)
	}

	rateLimit, err := time.ParseDuration(claudeConfig.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit duration '%s': %w", claudeConfig.RateLimit, err)
	}

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(
		option.WithAPIKey(claudeConfig.APIKey),
	)

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    &client,
		limiter:   rate.NewLimiter(rate.Every(rateLimit), 1),
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude vision service initialized")

	return service, nil
}

// DescribeImage generates alt text for an image using Claude vision
func (s *ClaudeService) DescribeImage(ctx context.Context, data []byte, mimeType, slideContext string) (*interfaces.ImageDescription, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image data cannot be empty")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("image_bytes", len(data)).
		Str("mime_type", mimeType).
		Msg("Starting Claude image description")

	encoded := base64.StdEncoding.EncodeToString(data)
	message, err := s.client.Messages.New(timeoutCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, encoded),
				anthropic.NewTextBlock(buildAltTextPrompt(slideContext)),
			),
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Claude image description failed")
		return nil, fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}

	response := extractText(message)
	if response == "" {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	s.logger.Debug().
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Claude image description completed")

	return parseAltTextResponse(response, s.config.Model), nil
}

// DescribeChart generates a textual description of a chart from its data
func (s *ClaudeService) DescribeChart(ctx context.Context, chart *models.ChartContent, slideContext string) (string, error) {
	if chart == nil {
		return "", fmt.Errorf("chart cannot be nil")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	message, err := s.client.Messages.New(timeoutCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(buildChartPrompt(chart, slideContext)),
			),
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Claude chart description failed")
		return "", fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}

	response := strings.TrimSpace(extractText(message))
	if response == "" {
		return "", fmt.Errorf("no response generated from Claude API")
	}
	return response, nil
}

// ModelName returns the configured vision model identifier
func (s *ClaudeService) ModelName() string {
	return s.config.Model
}

// HealthCheck verifies the Claude service is operational
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("Claude client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	message, err := s.client.Messages.New(healthCheckCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: 16,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Claude probe failed: %w", err)
	}
	if strings.TrimSpace(extractText(message)) == "" {
		return fmt.Errorf("Claude probe returned empty response")
	}
	return nil
}

// extractText concatenates the text blocks of a Claude response
func extractText(message *anthropic.Message) string {
	var response strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	return response.String()
}

package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiService implements the VisionService interface using the Google
// Gemini API. Images are sent inline as blobs alongside the prompt.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

var _ interfaces.VisionService = (*GeminiService)(nil)

// NewGeminiService creates a new Gemini vision service instance
func NewGeminiService(geminiConfig *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for Gemini vision service (set via GEMINI_API_KEY, DECKTAG_GEMINI_API_KEY, or gemini.api_key in config)")
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-3-flash-preview"
	}

	timeout, err := time.ParseDuration(geminiConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", geminiConfig.Timeout, err)
	}

	rateLimit, err := time.ParseDuration(geminiConfig.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit duration '%s': %w", geminiConfig.RateLimit, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: geminiConfig.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(rateLimit), 1),
		timeout: timeout,
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Dur("timeout", timeout).
		Msg("Gemini vision service initialized")

	return service, nil
}

// DescribeImage generates alt text for an image using Gemini vision
func (s *GeminiService) DescribeImage(ctx context.Context, data []byte, mimeType, slideContext string) (*interfaces.ImageDescription, error) {
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
		Msg("Starting Gemini image description")

	res, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, []*genai.Content{
		{Parts: []*genai.Part{
			{Text: buildAltTextPrompt(slideContext)},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
		}},
	}, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Gemini image description failed")
		return nil, fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}

	response := res.Text()
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("no response generated from Gemini API")
	}

	s.logger.Debug().
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini image description completed")

	return parseAltTextResponse(response, s.config.Model), nil
}

// DescribeChart generates a textual description of a chart from its data
func (s *GeminiService) DescribeChart(ctx context.Context, chart *models.ChartContent, slideContext string) (string, error) {
	if chart == nil {
		return "", fmt.Errorf("chart cannot be nil")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.Models.GenerateContent(timeoutCtx, s.config.Model, []*genai.Content{
		genai.NewContentFromText(buildChartPrompt(chart, slideContext), genai.RoleUser),
	}, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Gemini chart description failed")
		return "", fmt.Errorf("%w: %v", models.ErrServiceUnavailable, err)
	}

	response := strings.TrimSpace(res.Text())
	if response == "" {
		return "", fmt.Errorf("no response generated from Gemini API")
	}
	return response, nil
}

// ModelName returns the configured vision model identifier
func (s *GeminiService) ModelName() string {
	return s.config.Model
}

// HealthCheck verifies the Gemini service is operational
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("Gemini client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := s.client.Models.GenerateContent(healthCheckCtx, s.config.Model, []*genai.Content{
		genai.NewContentFromText("ping", genai.RoleUser),
	}, nil)
	if err != nil {
		return fmt.Errorf("Gemini probe failed: %w", err)
	}
	if strings.TrimSpace(res.Text()) == "" {
		return fmt.Errorf("Gemini probe returned empty response")
	}
	return nil
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// OpenAIConfig configures an OpenAI-compatible chat completions backend
// such as OpenRouter.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	VisionModel string
	Timeout     time.Duration
}

type openAIProvider struct {
	client      openai.Client
	textModel   string
	visionModel string
	logger      *utils.Logger
}

func NewOpenAIProvider(cfg OpenAIConfig, logger *utils.Logger) Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are handled by WithRetry
		option.WithMaxRetries(0),
		option.WithHeader("HTTP-Referer", "https://github.com/BerylCAtieno/bill-extractor-api"),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &openAIProvider{
		client:      openai.NewClient(opts...),
		textModel:   cfg.TextModel,
		visionModel: cfg.VisionModel,
		logger:      logger,
	}
}

func (p *openAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, p.textModel, openai.UserMessage(prompt))
}

func (p *openAIProvider) Transcribe(ctx context.Context, instruction string, image Image) (string, error) {
	msg := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(instruction),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: image.DataURL(),
		}),
	})
	return p.complete(ctx, p.visionModel, msg)
}

func (p *openAIProvider) complete(ctx context.Context, model string, msg openai.ChatCompletionMessageParamUnion) (string, error) {
	start := time.Now()
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    []openai.ChatCompletionMessageParamUnion{msg},
		Temperature: openai.Float(0),
	})
	if err != nil {
		p.logger.Error("LLM request failed", "model", model, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return "", err
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	p.logger.Debug("LLM request completed",
		"model", model,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds())

	return content, nil
}

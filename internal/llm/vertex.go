package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// VertexConfig configures Gemini models served by Vertex AI.
type VertexConfig struct {
	ProjectID   string
	Region      string
	TextModel   string
	VisionModel string
	// Timeout bounds each GenerateContent call. Zero means no limit beyond
	// the caller's context.
	Timeout time.Duration
}

// VertexProvider calls Gemini through Vertex AI. Close releases the client.
type VertexProvider struct {
	client      *genai.Client
	textModel   *genai.GenerativeModel
	visionModel *genai.GenerativeModel
	timeout     time.Duration
	logger      *utils.Logger
}

func NewVertexProvider(ctx context.Context, cfg VertexConfig, logger *utils.Logger) (*VertexProvider, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("vertex: project and region cannot be empty")
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	textModel := client.GenerativeModel(cfg.TextModel)
	textModel.SetTemperature(0)
	// the only text prompt is the bill JSON extraction
	textModel.GenerationConfig.ResponseMIMEType = "application/json"

	visionModel := client.GenerativeModel(cfg.VisionModel)
	visionModel.SetTemperature(0)

	return &VertexProvider{
		client:      client,
		textModel:   textModel,
		visionModel: visionModel,
		timeout:     cfg.Timeout,
		logger:      logger,
	}, nil
}

func (p *VertexProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withCallTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.textModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		p.logger.Error("Vertex generate failed", "error", err)
		return "", err
	}
	return responseText(resp), nil
}

func (p *VertexProvider) Transcribe(ctx context.Context, instruction string, image Image) (string, error) {
	ctx, cancel := withCallTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.visionModel.GenerateContent(ctx,
		genai.Text(instruction),
		genai.Blob{MIMEType: image.MIMEType, Data: image.Data},
	)
	if err != nil {
		p.logger.Error("Vertex transcribe failed", "error", err)
		return "", err
	}
	return responseText(resp), nil
}

func (p *VertexProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func withCallTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

package llm

import (
	"context"
	"encoding/base64"
)

// Image is an inline image sent to a vision-capable model.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL encodes the image as a base64 data URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Provider is an LLM backend. Implementations are safe for concurrent use.
type Provider interface {
	// Generate sends a single text prompt and returns the model's text.
	Generate(ctx context.Context, prompt string) (string, error)
	// Transcribe asks a vision model to follow instruction on image.
	Transcribe(ctx context.Context, instruction string, image Image) (string, error)
}

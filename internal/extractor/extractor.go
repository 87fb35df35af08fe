package extractor

import (
	"context"
	"strings"

	"github.com/BerylCAtieno/bill-extractor-api/internal/llm"
	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// Kind is the extraction path chosen for a file extension.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindText  Kind = "text"
	KindDOCX  Kind = "docx"
)

// TranscribeInstruction is sent with every bill image.
const TranscribeInstruction = "Extract ALL visible text from this medical bill image.\nReturn ONLY text. No markdown. No comments."

var imageMIMETypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// KindFor maps a lower-case file extension to its extraction path.
func KindFor(ext string) (Kind, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "pdf":
		return KindPDF, nil
	case "txt":
		return KindText, nil
	case "docx":
		return KindDOCX, nil
	}
	if _, ok := imageMIMETypes[ext]; ok {
		return KindImage, nil
	}
	return "", utils.NewUnsupportedTypeError(ext)
}

// TextExtractor turns a downloaded document into ordered page texts.
type TextExtractor struct {
	vision llm.Provider
	logger *utils.Logger
}

func New(vision llm.Provider, logger *utils.Logger) *TextExtractor {
	return &TextExtractor{
		vision: vision,
		logger: logger,
	}
}

// Extract returns one string per page in document order. Images always
// yield a single page.
func (e *TextExtractor) Extract(ctx context.Context, ext string, data []byte) ([]string, error) {
	kind, err := KindFor(ext)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindPDF:
		return ExtractPDFPages(data)
	case KindText:
		return ExtractTXTPages(data)
	case KindDOCX:
		return ExtractDOCXPages(data)
	default:
		return e.transcribe(ctx, imageMIMETypes[strings.ToLower(ext)], data)
	}
}

func (e *TextExtractor) transcribe(ctx context.Context, mimeType string, data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, utils.NewParseError("image file is empty", nil)
	}

	text, err := e.vision.Transcribe(ctx, TranscribeInstruction, llm.Image{MIMEType: mimeType, Data: data})
	if err != nil {
		e.logger.Error("Vision transcription failed", "mime_type", mimeType, "error", err)
		return nil, utils.NewExternalServiceError("vision model request failed", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, utils.NewExternalServiceError("vision model returned an empty response", nil)
	}

	e.logger.Debug("Image transcribed", "mime_type", mimeType, "chars", len(text))
	return []string{text}, nil
}

package analyzer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BerylCAtieno/bill-extractor-api/internal/llm"
	"github.com/BerylCAtieno/bill-extractor-api/internal/models"
	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// maxLoggedResponse bounds the model output copied into logs.
const maxLoggedResponse = 2000

type Analyzer interface {
	Analyze(ctx context.Context, pages []string) (*models.BillExtraction, error)
}

type billAnalyzer struct {
	provider       llm.Provider
	maxPromptChars int
	logger         *utils.Logger
}

func NewBillAnalyzer(provider llm.Provider, maxPromptChars int, logger *utils.Logger) Analyzer {
	return &billAnalyzer{
		provider:       provider,
		maxPromptChars: maxPromptChars,
		logger:         logger,
	}
}

// Analyze sends all pages to the text model in one call and returns the
// decoded line items. Totals are left for the aggregator.
func (a *billAnalyzer) Analyze(ctx context.Context, pages []string) (*models.BillExtraction, error) {
	if len(pages) == 0 {
		return &models.BillExtraction{PagewiseLineItems: []models.PageItems{}}, nil
	}

	prompt := BuildPrompt(pages)
	if chars := utf8.RuneCountInString(prompt); a.maxPromptChars > 0 && chars > a.maxPromptChars {
		return nil, utils.NewInputTooLargeError(fmt.Sprintf("bill text needs a %d character prompt, limit is %d", chars, a.maxPromptChars))
	}

	raw, err := a.provider.Generate(ctx, prompt)
	if err != nil {
		a.logger.Error("Text model request failed", "pages", len(pages), "error", err)
		return nil, utils.NewExternalServiceError("text model request failed", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, utils.NewExternalServiceError("text model returned an empty response", nil)
	}

	extraction, err := DecodeExtraction(raw)
	if err != nil {
		a.logger.Error("Failed to decode model response",
			"error", err,
			"response_chars", utf8.RuneCountInString(raw),
			"raw", truncate(raw, maxLoggedResponse))
		return nil, err
	}

	a.logger.Debug("Bill items extracted", "pages", len(pages), "result_pages", len(extraction.PagewiseLineItems))
	return extraction, nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "...(truncated)"
}

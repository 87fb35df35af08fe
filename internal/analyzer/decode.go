package analyzer

import (
	"encoding/json"
	"strings"

	"github.com/BerylCAtieno/bill-extractor-api/internal/models"
	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// CleanResponse strips a surrounding markdown code fence from model output.
func CleanResponse(raw string) string {
	content := strings.TrimSpace(raw)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	// drop the language tag on the opening fence line
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	} else {
		content = strings.TrimPrefix(strings.TrimSpace(content), "json")
	}

	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// extractJSON returns the outermost {...} span of content, if any.
func extractJSON(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

// DecodeExtraction parses raw model output into the pre-aggregation shape.
// Invalid JSON yields a MalformedResponseError carrying raw; JSON of the
// wrong shape yields a SchemaViolationError.
func DecodeExtraction(raw string) (*models.BillExtraction, error) {
	content := CleanResponse(raw)

	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		candidate, ok := extractJSON(content)
		if !ok {
			return nil, utils.NewMalformedResponseError(raw, err)
		}
		if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
			return nil, utils.NewMalformedResponseError(raw, err)
		}
		content = candidate
	}

	if err := billSchema.Validate(doc); err != nil {
		return nil, utils.NewSchemaViolationError("model response does not match the bill schema", err)
	}

	var parsed struct {
		PagewiseLineItems []models.PageItems `json:"pagewise_line_items"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, utils.NewSchemaViolationError("model response does not match the bill schema", err)
	}

	for i := range parsed.PagewiseLineItems {
		if parsed.PagewiseLineItems[i].BillItems == nil {
			parsed.PagewiseLineItems[i].BillItems = []models.BillItem{}
		}
	}
	if parsed.PagewiseLineItems == nil {
		parsed.PagewiseLineItems = []models.PageItems{}
	}

	return &models.BillExtraction{PagewiseLineItems: parsed.PagewiseLineItems}, nil
}

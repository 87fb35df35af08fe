package analyzer

import (
	"fmt"
	"strings"
)

const extractionInstructions = `You are an expert medical bill extraction AI.

Extract ALL line items strictly in this JSON structure:

{
  "pagewise_line_items": [
    {
      "page_no": "1",
      "page_type": "Bill Detail | Final Bill | Pharmacy",
      "bill_items": [
        {
          "item_name": "string",
          "item_rate": 0,
          "item_quantity": 0,
          "item_amount": 0
        }
      ]
    }
  ]
}

RULES:
- No markdown.
- No comments.
- No extra fields.
- item_amount = item_rate * item_quantity
- Use EXACT item names from bill text
- If a value is missing, put 0 (never hallucinate)

BILL TEXT:
`

// BuildPrompt embeds every page, in order, after the extraction rules.
func BuildPrompt(pages []string) string {
	var b strings.Builder
	b.WriteString(extractionInstructions)
	for i, page := range pages {
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i+1)
		b.WriteString(page)
		b.WriteString("\n")
	}
	return b.String()
}

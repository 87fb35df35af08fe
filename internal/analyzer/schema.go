package analyzer

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const billExtractionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["pagewise_line_items"],
  "properties": {
    "pagewise_line_items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["bill_items"],
        "properties": {
          "page_no": {"type": ["string", "number", "null"]},
          "page_type": {"type": ["string", "null"]},
          "bill_items": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "item_name": {"type": ["string", "null"]}
              }
            }
          }
        }
      }
    }
  }
}`

var billSchema = jsonschema.MustCompileString("bill_extraction.json", billExtractionSchema)

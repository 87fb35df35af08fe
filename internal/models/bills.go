package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ExtractionRequest is the body accepted by the extract endpoint.
type ExtractionRequest struct {
	Document string `json:"document"`
}

// Number is a float that decodes from JSON numbers and numeric strings.
// Anything else (null, booleans, non-numeric text, NaN, infinities) decodes
// to 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(finite(f))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = Number(parseLooseNumber(s))
		return nil
	}

	*n = 0
	return nil
}

func parseLooseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimLeft(s, "₹$€£ ")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// PageLabel is a page identifier the model may return as a number or string.
type PageLabel string

func (p *PageLabel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PageLabel(s)
		return nil
	}

	var f json.Number
	if err := json.Unmarshal(data, &f); err == nil {
		*p = PageLabel(f.String())
		return nil
	}

	*p = ""
	return nil
}

type BillItem struct {
	ItemName     string `json:"item_name"`
	ItemRate     Number `json:"item_rate"`
	ItemQuantity Number `json:"item_quantity"`
	ItemAmount   Number `json:"item_amount"`
}

type PageItems struct {
	PageNo    PageLabel  `json:"page_no"`
	PageType  string     `json:"page_type"`
	BillItems []BillItem `json:"bill_items"`
}

type BillExtraction struct {
	PagewiseLineItems []PageItems `json:"pagewise_line_items"`
	TotalItemCount    int         `json:"total_item_count"`
	SubTotalAmount    float64     `json:"sub_total_amount"`
	FinalTotalAmount  float64     `json:"final_total_amount"`
}

// ExtractionResponse is the envelope returned to callers. On success only
// IsSuccess and Data are set.
type ExtractionResponse struct {
	IsSuccess bool            `json:"is_success"`
	Data      *BillExtraction `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Message   string          `json:"message,omitempty"`
}

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ExtractionRecord is the persisted outcome of one extraction request.
type ExtractionRecord struct {
	ID               string     `json:"id" db:"id"`
	DocumentURL      string     `json:"document_url" db:"document_url"`
	FileExtension    string     `json:"file_extension,omitempty" db:"file_extension"`
	PageCount        int        `json:"page_count" db:"page_count"`
	Status           string     `json:"status" db:"status"`
	ErrorKind        string     `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage     string     `json:"error_message,omitempty" db:"error_message"`
	TotalItemCount   int        `json:"total_item_count" db:"total_item_count"`
	FinalTotalAmount float64    `json:"final_total_amount" db:"final_total_amount"`
	Response         string     `json:"-" db:"response_json"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// RecordResponse is the view of a stored record returned by the API.
type RecordResponse struct {
	ExtractionRecord
	Result *ExtractionResponse `json:"result,omitempty"`
}

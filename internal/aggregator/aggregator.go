package aggregator

import (
	"math"

	"github.com/BerylCAtieno/bill-extractor-api/internal/models"
	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// mismatchTolerance absorbs rounding in amounts printed to two decimals.
const mismatchTolerance = 0.01

// Aggregate counts every line item and sums item_amount as given by the
// model. Subtotal and final total are the same sum.
func Aggregate(extraction *models.BillExtraction) *models.BillExtraction {
	if extraction.PagewiseLineItems == nil {
		extraction.PagewiseLineItems = []models.PageItems{}
	}

	count := 0
	total := 0.0
	for _, page := range extraction.PagewiseLineItems {
		for _, item := range page.BillItems {
			count++
			total += float64(item.ItemAmount)
		}
	}

	extraction.TotalItemCount = count
	extraction.SubTotalAmount = total
	extraction.FinalTotalAmount = total

	return extraction
}

// Envelope wraps an aggregated extraction in the success response.
func Envelope(extraction *models.BillExtraction) *models.ExtractionResponse {
	return &models.ExtractionResponse{
		IsSuccess: true,
		Data:      extraction,
	}
}

// Failure converts a pipeline error into the failure response.
func Failure(err error) *models.ExtractionResponse {
	appErr := utils.AsAppError(err)
	return &models.ExtractionResponse{
		IsSuccess: false,
		Error:     string(appErr.Kind),
		Message:   appErr.Message,
	}
}

// Mismatch is a line item whose amount differs from rate times quantity.
type Mismatch struct {
	PageNo   string
	ItemName string
	Expected float64
	Amount   float64
}

// AmountMismatches lists items where item_amount disagrees with
// item_rate * item_quantity. Items missing a rate or quantity are skipped.
func AmountMismatches(extraction *models.BillExtraction) []Mismatch {
	var mismatches []Mismatch
	for _, page := range extraction.PagewiseLineItems {
		for _, item := range page.BillItems {
			if item.ItemRate == 0 || item.ItemQuantity == 0 {
				continue
			}
			expected := float64(item.ItemRate) * float64(item.ItemQuantity)
			if math.Abs(expected-float64(item.ItemAmount)) > mismatchTolerance {
				mismatches = append(mismatches, Mismatch{
					PageNo:   string(page.PageNo),
					ItemName: item.ItemName,
					Expected: expected,
					Amount:   float64(item.ItemAmount),
				})
			}
		}
	}
	return mismatches
}

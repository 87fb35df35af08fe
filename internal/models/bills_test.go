package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Number
	}{
		{"integer", `10`, 10},
		{"float", `12.5`, 12.5},
		{"numeric string", `"42.75"`, 42.75},
		{"thousands separator", `"1,200.50"`, 1200.5},
		{"currency prefix", `"₹ 300"`, 300},
		{"null", `null`, 0},
		{"non numeric string", `"N/A"`, 0},
		{"boolean", `true`, 0},
		{"object", `{"v":1}`, 0},
		{"nan string", `"NaN"`, 0},
		{"inf string", `"inf"`, 0},
		{"infinity string", `"-Infinity"`, 0},
		{"overflow", `1e999`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestBillItem_MissingFieldsAreZero(t *testing.T) {
	var item BillItem
	require.NoError(t, json.Unmarshal([]byte(`{"item_name":"Consultation"}`), &item))

	assert.Equal(t, "Consultation", item.ItemName)
	assert.Zero(t, item.ItemRate)
	assert.Zero(t, item.ItemQuantity)
	assert.Zero(t, item.ItemAmount)
}

func TestPageLabel_NumberOrString(t *testing.T) {
	var pages []PageItems
	raw := `[{"page_no":"1","bill_items":[]},{"page_no":2,"bill_items":[]},{"bill_items":[]}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &pages))

	require.Len(t, pages, 3)
	assert.Equal(t, PageLabel("1"), pages[0].PageNo)
	assert.Equal(t, PageLabel("2"), pages[1].PageNo)
	assert.Equal(t, PageLabel(""), pages[2].PageNo)
}

func TestExtractionResponse_SuccessShape(t *testing.T) {
	resp := ExtractionResponse{
		IsSuccess: true,
		Data: &BillExtraction{
			PagewiseLineItems: []PageItems{},
		},
	}

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"is_success": true,
		"data": {
			"pagewise_line_items": [],
			"total_item_count": 0,
			"sub_total_amount": 0,
			"final_total_amount": 0
		}
	}`, string(b))
}

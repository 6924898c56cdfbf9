package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCustomer = `{
	"customerId": "C-1001",
	"age": 32,
	"churnSegment": "Active",
	"valueSegment": "Standard",
	"loyaltyTier": "Gold",
	"affinityCategory": "SKINCARE",
	"diversityProfile": "Loyal",
	"estimatedBudget": 71.94,
	"missingRegulars": [{"productId": "P-3001", "avgDaysBetween": 30, "daysOverdue": 20}]
}`

func TestCustomerInsight_Unavailable(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		v := CustomerInsight(json.RawMessage(raw))
		assert.Equal(t, StatusUnavailable, v.Status, "%q", raw)
		assert.Nil(t, v.Insight)
	}
}

func TestCustomerInsight_Valid(t *testing.T) {
	raw := json.RawMessage(validCustomer)
	before := string(raw)

	v := CustomerInsight(raw)
	require.True(t, v.Valid(), v.Errors)
	assert.Equal(t, "C-1001", v.Insight.CustomerID)
	assert.Equal(t, "Gold", v.Insight.LoyaltyTier)
	assert.Equal(t, before, string(raw))
}

func TestCustomerInsight_MissingRequiredKeys(t *testing.T) {
	v := CustomerInsight(json.RawMessage(`{"customerId": "C-1", "churnSegment": "Active"}`))
	assert.Equal(t, StatusInvalid, v.Status)
	assert.Contains(t, v.Errors, "customerInsight.valueSegment missing")
	assert.Contains(t, v.Errors, "customerInsight.diversityProfile missing")
	assert.Nil(t, v.Insight)
}

func TestCustomerInsight_RangeRules(t *testing.T) {
	cases := map[string]string{
		"negative budget":  `"estimatedBudget": -1`,
		"age above 120":    `"age": 121`,
		"negative overdue": `"missingRegulars": [{"productId": "P-1", "daysOverdue": -3}]`,
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			raw := `{"customerId":"C-1","churnSegment":"Active","valueSegment":"Standard","loyaltyTier":"Gold","affinityCategory":"SKINCARE","diversityProfile":"Loyal",` + patch + `}`
			v := CustomerInsight(json.RawMessage(raw))
			assert.Equal(t, StatusInvalid, v.Status)
			assert.NotEmpty(t, v.Errors)
		})
	}
}

func TestCustomerInsight_WrongTypesAndShapes(t *testing.T) {
	assert.Equal(t, StatusInvalid, CustomerInsight(json.RawMessage(`[1,2]`)).Status)
	assert.Equal(t, StatusInvalid, CustomerInsight(json.RawMessage(`"text"`)).Status)

	v := CustomerInsight(json.RawMessage(`{"customerId":"C-1","churnSegment":"Active","valueSegment":"Standard","loyaltyTier":"Gold","affinityCategory":"SKINCARE","diversityProfile":"Loyal","orderCount":"many"}`))
	assert.Equal(t, StatusInvalid, v.Status)
}

func TestCustomerInsight_RegionModeAllowsEmptyID(t *testing.T) {
	raw := `{"mode":"region","customerId":"","churnSegment":"Active","valueSegment":"Standard","loyaltyTier":"Bronze","affinityCategory":"SKINCARE","diversityProfile":"Balanced"}`
	assert.True(t, CustomerInsight(json.RawMessage(raw)).Valid())

	raw = `{"mode":"regular","customerId":"","churnSegment":"Active","valueSegment":"Standard","loyaltyTier":"Bronze","affinityCategory":"SKINCARE","diversityProfile":"Balanced"}`
	assert.False(t, CustomerInsight(json.RawMessage(raw)).Valid())
}

func TestProductInsight_AllKeysOptional(t *testing.T) {
	v := ProductInsight(json.RawMessage(`{}`))
	require.True(t, v.Valid())
	assert.Empty(t, v.Insight.HeroProducts)
}

func TestProductInsight_Valid(t *testing.T) {
	v := ProductInsight(json.RawMessage(`{
		"heroProducts": [{"productId": "P1", "stockSegment": "Healthy", "trendScore": 70, "stockDays": 40, "dailySalesRate": 3}],
		"slowMovers": [],
		"inventorySummary": {"Healthy": 1}
	}`))
	require.True(t, v.Valid(), v.Errors)
	require.Len(t, v.Insight.HeroProducts, 1)
	assert.Equal(t, "Healthy", v.Insight.HeroProducts[0].StockSegment)
}

func TestProductInsight_Rejections(t *testing.T) {
	cases := map[string]string{
		"entry not an object":   `{"heroProducts": ["P1"]}`,
		"list not a list":       `{"slowMovers": {"productId": "P1"}}`,
		"unknown stock segment": `{"heroProducts": [{"productId": "P1", "stockSegment": "Plenty"}]}`,
		"negative stock days":   `{"newProducts": [{"productId": "P1", "stockDays": -1}]}`,
		"not an object":         `[]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			v := ProductInsight(json.RawMessage(raw))
			assert.Equal(t, StatusInvalid, v.Status)
			assert.NotEmpty(t, v.Errors)
			assert.Nil(t, v.Insight)
		})
	}
}

func TestStruct_ReportsJSONNames(t *testing.T) {
	type req struct {
		MaxProducts int `json:"maxProducts" validate:"gte=0"`
	}
	problems := Struct(&req{MaxProducts: -1})
	require.Len(t, problems, 1)
	assert.Equal(t, "maxProducts failed gte=0", problems[0])
}

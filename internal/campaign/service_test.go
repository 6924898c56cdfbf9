package campaign

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-engine/internal/matching"
	"campaign-engine/internal/model"
)

var fixedNow = time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)

func newTestService() *Service {
	clock := func() time.Time { return fixedNow }
	return NewService(matching.NewEngine(matching.WithClock(clock)), 30, clock)
}

func TestGenerate_NoInsights(t *testing.T) {
	resp := newTestService().Generate(Request{})

	assert.False(t, resp.Error)
	assert.Equal(t, model.DefaultPrompt, resp.PromptUsed)
	assert.Contains(t, resp.Warnings, "customer insight unavailable")
	assert.Contains(t, resp.Warnings, "product insight unavailable")
	require.NotEmpty(t, resp.Campaigns)
	assert.Equal(t, len(resp.Campaigns), resp.TotalCampaigns)
	assert.Equal(t, "2026-10-19T08:00:00Z", resp.GeneratedAt)

	// Halloween is 12 days away and anchors the seasonal template.
	require.NotNil(t, resp.Campaigns[0].Timing.SpecialEvent)
	assert.Equal(t, "Halloween", *resp.Campaigns[0].Timing.SpecialEvent)
}

func TestGenerate_InvalidCustomerBecomesWarning(t *testing.T) {
	resp := newTestService().Generate(Request{
		CustomerInsight: json.RawMessage(`{"customerId": "C-1"}`),
		Prompt:          "welcome offer",
		SpecialDays:     []model.SpecialDay{},
	})

	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "customer insight invalid")
	require.Len(t, resp.Campaigns, 1)
	assert.Equal(t, matching.TemplateAcquisition, resp.Campaigns[0].Template)
	assert.Equal(t, "welcome offer", resp.PromptUsed)
}

func TestGenerate_ValidInsights(t *testing.T) {
	customer := `{"customerId":"C-1001","churnSegment":"Warm","valueSegment":"Standard","loyaltyTier":"Gold","affinityCategory":"SKINCARE","diversityProfile":"Loyal"}`
	product := `{"heroProducts":[{"productId":"P1","category":"SKINCARE","stockSegment":"Healthy"}]}`

	resp := newTestService().Generate(Request{
		CustomerInsight: json.RawMessage(customer),
		ProductInsight:  json.RawMessage(product),
		SpecialDays:     []model.SpecialDay{},
	})

	assert.Empty(t, resp.Warnings)
	require.Len(t, resp.Campaigns, 1)
	c := resp.Campaigns[0]
	assert.Equal(t, matching.TemplatePersonalized, c.Template)
	assert.InDelta(t, 15.0, c.DiscountSuggestion.Value, 1e-9)
	require.Len(t, c.Products, 1)
	assert.Equal(t, "P1", c.Products[0].ProductID)
}

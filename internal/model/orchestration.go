package model

import "encoding/json"

// DefaultPrompt is used when a request carries no prompt.
const DefaultPrompt = "Generate personalized campaign suggestions"

// OrchestrationRequest is the input of one pipeline run.
// CustomerData and ProductData stay raw so absence ("null", missing) is observable.
type OrchestrationRequest struct {
	Prompt       string          `json:"prompt"`
	CustomerID   string          `json:"customerId,omitempty"`
	CustomerData json.RawMessage `json:"customerData,omitempty"`
	ProductData  json.RawMessage `json:"productData,omitempty"`
	MaxProducts  int             `json:"maxProducts,omitempty" validate:"gte=0,lte=1000"`
	UseLLM       *bool           `json:"useLLM,omitempty"`
	RequestID    string          `json:"requestId,omitempty"`
}

// RemoteEnabled reports whether the caller asked for the remote-agent path.
func (r *OrchestrationRequest) RemoteEnabled() bool {
	return r.UseLLM == nil || *r.UseLLM
}

// OrchestrationResult is the top-level response envelope.
type OrchestrationResult struct {
	CustomerInsight      *CustomerInsight     `json:"customerInsight"`
	ProductInsight       *ProductInsight      `json:"productInsight"`
	Campaigns            []CampaignSuggestion `json:"campaigns"`
	OrchestrationSummary OrchestrationSummary `json:"orchestrationSummary"`
}

type OrchestrationSummary struct {
	CustomerAnalyzed bool     `json:"customerAnalyzed"`
	ProductAnalyzed  bool     `json:"productAnalyzed"`
	CampaignCount    int      `json:"campaignCount"`
	Warnings         []string `json:"warnings"`
}

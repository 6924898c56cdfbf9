package model

// CampaignsGenerated is emitted after an orchestration run completes.
// It is published to Kafka topic campaign.generated.
type CampaignsGenerated struct {
	RequestID     string               `json:"requestId"`
	CustomerID    string               `json:"customerId,omitempty"`
	Prompt        string               `json:"prompt"`
	CampaignCount int                  `json:"campaignCount"`
	Campaigns     []CampaignSuggestion `json:"campaigns"`
	Warnings      []string             `json:"warnings"`
	Timestamp     string               `json:"timestamp"`
}

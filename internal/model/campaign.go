package model

// SpecialDay is a named calendar event.
type SpecialDay struct {
	Date      string `json:"date"`
	Event     string `json:"event"`
	DaysUntil int    `json:"daysUntil"`
}

// Discount types.
const (
	DiscountPercentage = "PERCENTAGE"
	DiscountFixed      = "FIXED"
	DiscountBundle     = "BUNDLE"
)

// Delivery channel tags.
const (
	ChannelEmail       = "email"
	ChannelSMS         = "sms"
	ChannelPush        = "push"
	ChannelSocialMedia = "social_media"
	ChannelGoogleAds   = "google_ads"
	ChannelInfluencer  = "influencer"
)

// CampaignSuggestion is one generated campaign proposal.
type CampaignSuggestion struct {
	CampaignID            string             `json:"campaignId"`
	CampaignName          string             `json:"campaignName"`
	Title                 string             `json:"title"`
	Description           string             `json:"description"`
	Template              string             `json:"template,omitempty"`
	TargetCustomerSegment string             `json:"targetCustomerSegment"`
	TargetProductSegment  string             `json:"targetProductSegment"`
	MatchReason           string             `json:"matchReason"`
	Timing                CampaignTiming     `json:"timing"`
	DiscountSuggestion    DiscountSuggestion `json:"discountSuggestion"`
	Channel               []string           `json:"channel"`
	EstimatedImpact       string             `json:"estimatedImpact"`
	StockStatus           StockStatus        `json:"stockStatus"`
	Products              []CampaignProduct  `json:"products,omitempty"`
}

// CampaignTiming holds ISO calendar dates.
type CampaignTiming struct {
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate"`
	SpecialEvent *string `json:"specialEvent,omitempty"`
}

type DiscountSuggestion struct {
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

type StockStatus struct {
	CurrentLevel            string `json:"currentLevel"`
	EstimatedCampaignImpact string `json:"estimatedCampaignImpact"`
}

// CampaignProduct is a product a campaign promotes.
type CampaignProduct struct {
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName,omitempty"`
	Category     string `json:"category,omitempty"`
	StockSegment string `json:"stockSegment,omitempty"`
	Role         string `json:"role,omitempty"`
}

// CampaignResponse is the envelope returned by the campaign stage.
type CampaignResponse struct {
	Campaigns      []CampaignSuggestion `json:"campaigns"`
	GeneratedAt    string               `json:"generatedAt"`
	PromptUsed     string               `json:"promptUsed"`
	TotalCampaigns int                  `json:"totalCampaigns"`
	Error          bool                 `json:"error"`
	Warnings       []string             `json:"warnings"`
}

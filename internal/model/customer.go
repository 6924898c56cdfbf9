package model

// CustomerData is the raw input of the customer segmentation stage.
// An empty CustomerID selects region mode.
type CustomerData struct {
	CustomerID string         `json:"customerId,omitempty" bson:"customerId"`
	City       string         `json:"city" bson:"city"`
	Customer   CustomerRecord `json:"customer" bson:"customer"`
	Region     Region         `json:"region" bson:"region"`
}

// CustomerRecord carries demographics and the per-product purchase history.
type CustomerRecord struct {
	CustomerID     string            `json:"customerId,omitempty" bson:"customerId"`
	Age            *int              `json:"age,omitempty" bson:"age,omitempty"`
	Gender         string            `json:"gender,omitempty" bson:"gender,omitempty"`
	RegisteredAt   string            `json:"registeredAt,omitempty" bson:"registeredAt,omitempty"`
	ProductHistory []PurchaseHistory `json:"productHistory" bson:"productHistory"`
}

// PurchaseHistory aggregates every order of one product by one customer.
type PurchaseHistory struct {
	ProductID      string   `json:"productId" bson:"productId"`
	Category       string   `json:"category" bson:"category"`
	TotalQuantity  int      `json:"totalQuantity" bson:"totalQuantity"`
	TotalSpent     float64  `json:"totalSpent" bson:"totalSpent"`
	OrderCount     int      `json:"orderCount" bson:"orderCount"`
	FirstPurchase  string   `json:"firstPurchase,omitempty" bson:"firstPurchase,omitempty"`
	LastPurchase   string   `json:"lastPurchase" bson:"lastPurchase"`
	AvgDaysBetween *float64 `json:"avgDaysBetween,omitempty" bson:"avgDaysBetween,omitempty"`
}

// Region is the city-level context a customer is evaluated against.
type Region struct {
	Name         string   `json:"name" bson:"name"`
	ClimateType  string   `json:"climateType" bson:"climateType"`
	MedianBasket float64  `json:"medianBasket" bson:"medianBasket"`
	Trend        string   `json:"trend,omitempty" bson:"trend,omitempty"`
	Cities       []string `json:"cities,omitempty" bson:"cities,omitempty"`
}

// Insight modes.
const (
	ModeRegion      = "region"
	ModeNewCustomer = "new_customer"
	ModeRegular     = "regular"
)

// Age segments, youngest first.
const (
	AgeGenZ       = "GenZ"
	AgeYoungAdult = "YoungAdult"
	AgeAdult      = "Adult"
	AgeMature     = "Mature"
)

// Churn segments. ChurnAtRisk is the highest-risk label.
const (
	ChurnActive = "Active"
	ChurnWarm   = "Warm"
	ChurnAtRisk = "AtRisk"
)

const (
	ValueHigh     = "HighValue"
	ValueStandard = "Standard"
)

// Loyalty tiers, top tier first.
const (
	LoyaltyPlatinum = "Platinum"
	LoyaltyGold     = "Gold"
	LoyaltySilver   = "Silver"
	LoyaltyBronze   = "Bronze"
)

const (
	AffinityFocused  = "Focused"
	AffinityExplorer = "Explorer"
)

const (
	DiversityExplorer = "Explorer"
	DiversityBalanced = "Balanced"
	DiversityLoyal    = "Loyal"
)

// CustomerInsight is the derived profile of one customer (CustomerInsightJSON).
type CustomerInsight struct {
	Mode        string `json:"mode,omitempty"`
	CustomerID  string `json:"customerId" validate:"required_unless=Mode region"`
	City        string `json:"city"`
	Region      string `json:"region"`
	ClimateType string `json:"climateType"`
	Age         int    `json:"age" validate:"gte=0,lte=120"`
	Gender      string `json:"gender"`

	AgeSegment       string `json:"ageSegment"`
	ChurnSegment     string `json:"churnSegment" validate:"required"`
	ValueSegment     string `json:"valueSegment" validate:"required"`
	LoyaltyTier      string `json:"loyaltyTier" validate:"required"`
	AffinityCategory string `json:"affinityCategory" validate:"required"`
	AffinityType     string `json:"affinityType"`
	DiversityProfile string `json:"diversityProfile" validate:"required"`

	EstimatedBudget     float64 `json:"estimatedBudget" validate:"gte=0"`
	AvgBasket           float64 `json:"avgBasket" validate:"gte=0"`
	AvgMonthlySpend     float64 `json:"avgMonthlySpend" validate:"gte=0"`
	LastPurchaseDaysAgo int     `json:"lastPurchaseDaysAgo" validate:"gte=0"`
	OrderCount          int     `json:"orderCount" validate:"gte=0"`
	TotalSpent          float64 `json:"totalSpent" validate:"gte=0"`
	MembershipDays      int     `json:"membershipDays" validate:"gte=0"`

	MissingRegulars []MissingRegular `json:"missingRegulars" validate:"dive"`
	TopProducts     []TopProduct     `json:"topProducts" validate:"dive"`
	Message         string           `json:"message,omitempty"`
}

// MissingRegular is a product the customer normally rebuys but is overdue for.
type MissingRegular struct {
	ProductID      string  `json:"productId" validate:"required"`
	ProductName    string  `json:"productName"`
	LastBought     string  `json:"lastBought"`
	AvgDaysBetween float64 `json:"avgDaysBetween" validate:"gte=0"`
	DaysOverdue    float64 `json:"daysOverdue" validate:"gte=0"`
}

// TopProduct is one of the customer's highest-spend products.
type TopProduct struct {
	ProductID     string  `json:"productId" validate:"required"`
	TotalQuantity int     `json:"totalQuantity" validate:"gte=0"`
	TotalSpent    float64 `json:"totalSpent" validate:"gte=0"`
	LastBought    string  `json:"lastBought"`
}

package model

// ProductData is the raw input of the product analysis stage.
type ProductData struct {
	TenantID     string             `json:"tenantId,omitempty" bson:"tenantId"`
	Products     []Product          `json:"products" bson:"products"`
	OrderHistory []Order            `json:"orderHistory,omitempty" bson:"orderHistory"`
	CurrentMonth int                `json:"currentMonth,omitempty" bson:"currentMonth"`
	ClimateData  map[string]Climate `json:"climateData,omitempty" bson:"climateData"`
}

// Product is one catalog entry.
type Product struct {
	ProductID       string   `json:"productId" bson:"productId"`
	TenantID        string   `json:"tenantId,omitempty" bson:"tenantId,omitempty"`
	ProductName     string   `json:"productName" bson:"productName"`
	Category        string   `json:"category" bson:"category"`
	Subcategory     string   `json:"subcategory,omitempty" bson:"subcategory,omitempty"`
	Brand           string   `json:"brand,omitempty" bson:"brand,omitempty"`
	Tags            []string `json:"tags,omitempty" bson:"tags,omitempty"`
	Season          string   `json:"season,omitempty" bson:"season,omitempty"`
	CurrentStock    int      `json:"currentStock" bson:"currentStock"`
	Last30DaysSales int      `json:"last30DaysSales" bson:"last30DaysSales"`
	UnitCost        float64  `json:"unitCost" bson:"unitCost"`
	UnitPrice       float64  `json:"unitPrice" bson:"unitPrice"`
	CreatedAt       string   `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
}

// Order is one line of the recent order history.
type Order struct {
	OrderID   string `json:"orderId" bson:"orderId"`
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
	Date      string `json:"date" bson:"date"`
	City      string `json:"city,omitempty" bson:"city,omitempty"`
}

// Climate describes the current conditions of one city.
type Climate struct {
	City     string  `json:"city,omitempty" bson:"city"`
	AvgTempC float64 `json:"avgTempC" bson:"avgTempC"`
	Humidity float64 `json:"humidity,omitempty" bson:"humidity,omitempty"`
	Season   string  `json:"season,omitempty" bson:"season,omitempty"`
}

// Stock segments.
const (
	StockCritical = "Critical"
	StockLow      = "Low"
	StockHealthy  = "Healthy"
	StockExcess   = "Excess"
)

// Performance segments.
const (
	PerformanceHero      = "Hero"
	PerformanceNormal    = "Normal"
	PerformanceSlowMover = "SlowMover"
	PerformanceDeadStock = "DeadStock"
)

// Lifecycle stages.
const (
	LifecycleNew     = "NEW"
	LifecycleGrowth  = "GROWTH"
	LifecycleMature  = "MATURE"
	LifecycleDecline = "DECLINE"
)

// Levels shared by seasonal relevance and urgency.
const (
	LevelHigh   = "HIGH"
	LevelMedium = "MEDIUM"
	LevelLow    = "LOW"
)

const (
	PriceBudget  = "BUDGET"
	PriceMid     = "MID"
	PricePremium = "PREMIUM"
)

const (
	MarginHealthy  = "HEALTHY"
	MarginModerate = "MODERATE"
	MarginThin     = "THIN"
)

// Recommended actions.
const (
	ActionPromote    = "PROMOTE"
	ActionLiquidate  = "LIQUIDATE"
	ActionBundle     = "BUNDLE"
	ActionRestock    = "RESTOCK"
	ActionLaunchPush = "LAUNCH_PUSH"
	ActionMaintain   = "MAINTAIN"
)

// ProductInsight is the aggregate view of a catalog (ProductInsightJSON).
type ProductInsight struct {
	HeroProducts         []HeroProduct                  `json:"heroProducts" validate:"dive"`
	SlowMovers           []HeroProduct                  `json:"slowMovers" validate:"dive"`
	NewProducts          []HeroProduct                  `json:"newProducts" validate:"dive"`
	SeasonalProducts     []HeroProduct                  `json:"seasonalProducts" validate:"dive"`
	CategoryInsights     map[string]CategoryInsight     `json:"categoryInsights"`
	PriceSegmentAnalysis map[string]PriceSegmentSummary `json:"priceSegmentAnalysis"`
	InventorySummary     map[string]int                 `json:"inventorySummary"`
	// CriticalProducts lists every Critical-stock product, bucketed or not.
	CriticalProducts []string `json:"criticalProducts"`
}

// HeroProduct is the per-product classification used by every product bucket.
type HeroProduct struct {
	ProductID          string  `json:"productId" validate:"required"`
	ProductName        string  `json:"productName"`
	Category           string  `json:"category"`
	Brand              string  `json:"brand"`
	PerformanceSegment string  `json:"performanceSegment"`
	StockSegment       string  `json:"stockSegment" validate:"omitempty,oneof=Critical Low Healthy Excess"`
	LifecycleStage     string  `json:"lifecycleStage"`
	TrendScore         float64 `json:"trendScore" validate:"gte=0,lte=100"`
	StockDays          float64 `json:"stockDays" validate:"gte=0"`
	DailySalesRate     float64 `json:"dailySalesRate" validate:"gte=0"`
	InventoryPressure  bool    `json:"inventoryPressure"`
	SeasonalRelevance  string  `json:"seasonalRelevance"`
	SeasonMatch        bool    `json:"seasonMatch"`
	PriceSegment       string  `json:"priceSegment"`
	MarginHealth       string  `json:"marginHealth"`
	RecommendedAction  string  `json:"recommendedAction"`
	UrgencyLevel       string  `json:"urgencyLevel"`
}

// CategoryInsight summarizes one category of the catalog.
type CategoryInsight struct {
	ProductCount   int     `json:"productCount"`
	TotalStock     int     `json:"totalStock"`
	AvgDailySales  float64 `json:"avgDailySales"`
	AvgMarginPct   float64 `json:"avgMarginPct"`
	HeroCount      int     `json:"heroCount"`
	SlowMoverCount int     `json:"slowMoverCount"`
}

// PriceSegmentSummary summarizes one price tier.
type PriceSegmentSummary struct {
	ProductCount  int     `json:"productCount"`
	AvgPrice      float64 `json:"avgPrice"`
	AvgDailySales float64 `json:"avgDailySales"`
}

// CriticalIDs returns the IDs of Critical-stock products, from both
// CriticalProducts and the buckets.
func (p *ProductInsight) CriticalIDs() map[string]bool {
	ids := map[string]bool{}
	if p == nil {
		return ids
	}
	for _, id := range p.CriticalProducts {
		ids[id] = true
	}
	for _, hp := range p.AllProducts() {
		if hp.StockSegment == StockCritical {
			ids[hp.ProductID] = true
		}
	}
	return ids
}

// AllProducts returns every bucketed product once, in bucket order
// (hero, new, seasonal, slow movers).
func (p *ProductInsight) AllProducts() []HeroProduct {
	if p == nil {
		return nil
	}
	seen := map[string]bool{}
	out := []HeroProduct{}
	for _, bucket := range [][]HeroProduct{p.HeroProducts, p.NewProducts, p.SeasonalProducts, p.SlowMovers} {
		for _, hp := range bucket {
			if seen[hp.ProductID] {
				continue
			}
			seen[hp.ProductID] = true
			out = append(out, hp)
		}
	}
	return out
}

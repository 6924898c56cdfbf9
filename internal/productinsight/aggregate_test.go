package productinsight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-engine/internal/model"
)

var refNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func catalog() *model.ProductData {
	return &model.ProductData{
		TenantID:     "farmasi",
		CurrentMonth: 3,
		Products: []model.Product{
			{ProductID: "P1", ProductName: "Serum", Category: "SKINCARE", CurrentStock: 50, Last30DaysSales: 300, UnitCost: 10, UnitPrice: 40, CreatedAt: "2024-01-01"},
			{ProductID: "P2", ProductName: "Cream", Category: "SKINCARE", Season: "spring", CurrentStock: 300, Last30DaysSales: 150, UnitCost: 60, UnitPrice: 100, CreatedAt: "2024-01-01"},
			{ProductID: "P3", ProductName: "Palette", Category: "MAKEUP", CurrentStock: 60, Last30DaysSales: 90, UnitCost: 50, UnitPrice: 200, CreatedAt: "2026-02-01"},
			{ProductID: "P4", ProductName: "Scarf Balm", Category: "MAKEUP", Season: "winter", CurrentStock: 120, Last30DaysSales: 60, UnitCost: 40, UnitPrice: 49.99, CreatedAt: "2024-01-01"},
			{ProductID: "P5", ProductName: "Perfume", Category: "MAKEUP", CurrentStock: 200, Last30DaysSales: 30, UnitCost: 120, UnitPrice: 150, CreatedAt: "2024-01-01"},
			{ProductID: "P6", ProductName: "Gift Box", Category: "MAKEUP", CurrentStock: 40, UnitCost: 70, UnitPrice: 80, CreatedAt: "2024-01-01"},
		},
	}
}

func byID(list []model.HeroProduct) map[string]model.HeroProduct {
	out := map[string]model.HeroProduct{}
	for _, hp := range list {
		out[hp.ProductID] = hp
	}
	return out
}

func TestAggregate_Buckets(t *testing.T) {
	insight := Aggregate(catalog(), refNow)

	require.Len(t, insight.HeroProducts, 1)
	hero := insight.HeroProducts[0]
	assert.Equal(t, "P1", hero.ProductID)
	assert.Equal(t, model.StockCritical, hero.StockSegment)
	assert.InDelta(t, 5.0, hero.StockDays, 1e-9)
	assert.Equal(t, model.ActionRestock, hero.RecommendedAction)
	assert.Equal(t, model.LevelHigh, hero.UrgencyLevel)
	assert.Equal(t, model.MarginHealthy, hero.MarginHealth)

	require.Len(t, insight.SlowMovers, 2)
	assert.Equal(t, "P6", insight.SlowMovers[0].ProductID)
	assert.Equal(t, model.PerformanceDeadStock, insight.SlowMovers[0].PerformanceSegment)
	assert.InDelta(t, 999.0, insight.SlowMovers[0].StockDays, 1e-9)
	assert.Equal(t, "P5", insight.SlowMovers[1].ProductID)
	assert.Equal(t, model.PerformanceSlowMover, insight.SlowMovers[1].PerformanceSegment)
	assert.Equal(t, model.ActionLiquidate, insight.SlowMovers[1].RecommendedAction)
	assert.True(t, insight.SlowMovers[1].InventoryPressure)

	require.Len(t, insight.NewProducts, 1)
	assert.Equal(t, "P3", insight.NewProducts[0].ProductID)
	assert.Equal(t, model.ActionLaunchPush, insight.NewProducts[0].RecommendedAction)

	require.Len(t, insight.SeasonalProducts, 1)
	assert.Equal(t, "P2", insight.SeasonalProducts[0].ProductID)
	assert.Equal(t, model.LevelHigh, insight.SeasonalProducts[0].SeasonalRelevance)
}

func TestAggregate_Summaries(t *testing.T) {
	insight := Aggregate(catalog(), refNow)

	assert.Equal(t, map[string]int{
		model.StockCritical: 1,
		model.StockLow:      1,
		model.StockHealthy:  2,
		model.StockExcess:   2,
	}, insight.InventorySummary)

	skincare := insight.CategoryInsights["SKINCARE"]
	assert.Equal(t, 2, skincare.ProductCount)
	assert.Equal(t, 350, skincare.TotalStock)
	assert.InDelta(t, 7.5, skincare.AvgDailySales, 1e-9)
	assert.Equal(t, 1, skincare.HeroCount)

	makeup := insight.CategoryInsights["MAKEUP"]
	assert.Equal(t, 4, makeup.ProductCount)
	assert.Equal(t, 2, makeup.SlowMoverCount)

	assert.Equal(t, 2, insight.PriceSegmentAnalysis[model.PriceBudget].ProductCount)
	assert.Equal(t, 2, insight.PriceSegmentAnalysis[model.PriceMid].ProductCount)
	assert.Equal(t, 2, insight.PriceSegmentAnalysis[model.PricePremium].ProductCount)
}

func TestAggregate_OffSeasonNormalProductIsUnbucketed(t *testing.T) {
	all := byID(Aggregate(catalog(), refNow).AllProducts())
	_, listed := all["P4"]
	assert.False(t, listed, "a normal, healthy, off-season product is in no bucket")
}

func TestAggregate_CriticalProductsIncludeUnbucketed(t *testing.T) {
	data := catalog()
	data.Products[3].CurrentStock = 1

	insight := Aggregate(data, refNow)
	assert.Equal(t, []string{"P1", "P4"}, insight.CriticalProducts)
	assert.NotContains(t, byID(insight.AllProducts()), "P4")
	assert.True(t, insight.CriticalIDs()["P4"])

	assert.Equal(t, []string{"P1"}, Aggregate(catalog(), refNow).CriticalProducts)
}

func TestAggregate_ClimateSeasonsMatch(t *testing.T) {
	data := catalog()
	data.ClimateData = map[string]model.Climate{"Erzurum": {City: "Erzurum", AvgTempC: -2, Season: "winter"}}

	seasonal := byID(Aggregate(data, refNow).SeasonalProducts)
	assert.Contains(t, seasonal, "P4")
	assert.Contains(t, seasonal, "P2")
}

func TestAggregate_OrderHistoryTrendAndFallback(t *testing.T) {
	data := &model.ProductData{
		CurrentMonth: 3,
		Products: []model.Product{
			{ProductID: "X", Category: "HAIR", CurrentStock: 90, UnitCost: 5, UnitPrice: 20, CreatedAt: "2024-06-01"},
		},
		OrderHistory: []model.Order{
			{OrderID: "o1", ProductID: "X", Quantity: 10, Date: refNow.AddDate(0, 0, -5).Format(time.RFC3339)},
			{OrderID: "o2", ProductID: "X", Quantity: 20, Date: refNow.AddDate(0, 0, -20).Format(time.RFC3339)},
			{OrderID: "o3", ProductID: "X", Quantity: 99, Date: refNow.AddDate(0, 0, -45).Format(time.RFC3339)},
		},
	}

	all := byID(Aggregate(data, refNow).AllProducts())
	require.Contains(t, all, "X")
	x := all["X"]
	assert.InDelta(t, 1.0, x.DailySalesRate, 1e-9)
	assert.InDelta(t, 90.0, x.StockDays, 1e-9)
	assert.Equal(t, model.StockHealthy, x.StockSegment)
	assert.InDelta(t, 33.3, x.TrendScore, 1e-9)
	assert.Equal(t, model.LifecycleDecline, x.LifecycleStage)
}

func TestAggregate_Empty(t *testing.T) {
	insight := Aggregate(nil, refNow)
	assert.Empty(t, insight.HeroProducts)
	assert.NotNil(t, insight.SlowMovers)
	assert.NotNil(t, insight.CriticalProducts)
	assert.Equal(t, 0, insight.InventorySummary[model.StockCritical])
}

func TestStockSegment_Boundaries(t *testing.T) {
	assert.Equal(t, model.StockCritical, StockSegment(0, 999))
	assert.Equal(t, model.StockCritical, StockSegment(10, 6.9))
	assert.Equal(t, model.StockLow, StockSegment(10, 7))
	assert.Equal(t, model.StockHealthy, StockSegment(10, 30))
	assert.Equal(t, model.StockHealthy, StockSegment(10, 90))
	assert.Equal(t, model.StockExcess, StockSegment(10, 90.1))
}

func TestTrendScore(t *testing.T) {
	assert.InDelta(t, 50.0, TrendScore(0, 0), 1e-9)
	assert.InDelta(t, 75.0, TrendScore(30, 10), 1e-9)
	assert.InDelta(t, 0.0, TrendScore(0, 10), 1e-9)
	assert.InDelta(t, 100.0, TrendScore(10, 0), 1e-9)
}

func TestPriceSegmentAndSeason(t *testing.T) {
	assert.Equal(t, model.PriceBudget, PriceSegment(49.99))
	assert.Equal(t, model.PriceMid, PriceSegment(50))
	assert.Equal(t, model.PricePremium, PriceSegment(150))
	assert.Equal(t, "winter", SeasonOf(1))
	assert.Equal(t, "autumn", SeasonOf(10))
}

// Package productinsight buckets a product catalog into hero products, slow movers,
// new arrivals and seasonal candidates, with category, price-tier and inventory summaries.
//
// The thresholds below are tunable business parameters.
package productinsight

import (
	"math"
	"sort"
	"time"

	"campaign-engine/internal/model"
	"campaign-engine/internal/segmentation"
)

const (
	salesWindowDays    = 30.0
	trendHalfWindow    = 15
	newProductDays     = 60
	noSalesStockDays   = 999
	criticalStockDays  = 7
	lowStockDays       = 30
	excessStockDays    = 90
	severeExcessDays   = 180
	budgetPriceCeiling = 50.0
	midPriceCeiling    = 150.0
	healthyMarginPct   = 50.0
	moderateMarginPct  = 25.0
	growthTrendScore   = 65.0
	declineTrendScore  = 35.0
	bucketLimit        = 10
)

// Aggregate derives a ProductInsight. now anchors lifecycle and trend windows.
func Aggregate(data *model.ProductData, now time.Time) *model.ProductInsight {
	insight := &model.ProductInsight{
		HeroProducts:         []model.HeroProduct{},
		SlowMovers:           []model.HeroProduct{},
		NewProducts:          []model.HeroProduct{},
		SeasonalProducts:     []model.HeroProduct{},
		CategoryInsights:     map[string]model.CategoryInsight{},
		PriceSegmentAnalysis: map[string]model.PriceSegmentSummary{},
		InventorySummary: map[string]int{
			model.StockCritical: 0,
			model.StockLow:      0,
			model.StockHealthy:  0,
			model.StockExcess:   0,
		},
		CriticalProducts: []string{},
	}
	if data == nil || len(data.Products) == 0 {
		return insight
	}
	now = now.UTC()

	month := data.CurrentMonth
	if month < 1 || month > 12 {
		month = int(now.Month())
	}
	seasons := activeSeasons(month, data.ClimateData)
	recent, previous, last30 := orderWindows(data.OrderHistory, now)

	classified := make([]classifiedProduct, 0, len(data.Products))
	for _, p := range data.Products {
		classified = append(classified, classify(p, now, seasons, recent[p.ProductID], previous[p.ProductID], last30[p.ProductID]))
	}
	assignPerformance(classified)
	for i := range classified {
		classified[i].hp.RecommendedAction, classified[i].hp.UrgencyLevel = recommend(classified[i].hp)
	}

	fresh := []classifiedProduct{}
	for _, c := range classified {
		hp := c.hp
		switch {
		case hp.PerformanceSegment == model.PerformanceHero:
			insight.HeroProducts = append(insight.HeroProducts, hp)
		case hp.PerformanceSegment == model.PerformanceSlowMover,
			hp.PerformanceSegment == model.PerformanceDeadStock,
			hp.LifecycleStage == model.LifecycleDecline:
			insight.SlowMovers = append(insight.SlowMovers, hp)
		}
		if hp.LifecycleStage == model.LifecycleNew {
			fresh = append(fresh, c)
		}
		if hp.SeasonMatch {
			insight.SeasonalProducts = append(insight.SeasonalProducts, hp)
		}
		insight.InventorySummary[hp.StockSegment]++
		if hp.StockSegment == model.StockCritical {
			insight.CriticalProducts = append(insight.CriticalProducts, hp.ProductID)
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].createdAt.After(fresh[j].createdAt)
	})
	for _, c := range fresh {
		insight.NewProducts = append(insight.NewProducts, c.hp)
	}
	sort.SliceStable(insight.HeroProducts, func(i, j int) bool {
		return insight.HeroProducts[i].DailySalesRate > insight.HeroProducts[j].DailySalesRate
	})
	sort.SliceStable(insight.SlowMovers, func(i, j int) bool {
		return insight.SlowMovers[i].StockDays > insight.SlowMovers[j].StockDays
	})
	sort.SliceStable(insight.SeasonalProducts, func(i, j int) bool {
		return insight.SeasonalProducts[i].TrendScore > insight.SeasonalProducts[j].TrendScore
	})
	insight.HeroProducts = limit(insight.HeroProducts)
	insight.SlowMovers = limit(insight.SlowMovers)
	insight.SeasonalProducts = limit(insight.SeasonalProducts)

	insight.CategoryInsights = categorySummary(classified)
	insight.PriceSegmentAnalysis = priceSummary(classified)
	return insight
}

type classifiedProduct struct {
	hp        model.HeroProduct
	marginPct float64
	price     float64
	stock     int
	createdAt time.Time
}

func classify(p model.Product, now time.Time, seasons map[string]bool, recentQty, previousQty, last30Qty int) classifiedProduct {
	daily := float64(p.Last30DaysSales) / salesWindowDays
	if daily == 0 && last30Qty > 0 {
		daily = float64(last30Qty) / salesWindowDays
	}

	stockDays := 0.0
	switch {
	case p.CurrentStock <= 0:
		stockDays = 0
	case daily == 0:
		stockDays = noSalesStockDays
	default:
		stockDays = round1(float64(p.CurrentStock) / daily)
	}

	marginPct := 0.0
	if p.UnitPrice > 0 {
		marginPct = (p.UnitPrice - p.UnitCost) / p.UnitPrice * 100
	}

	created, _ := segmentation.ParseTimestamp(p.CreatedAt)
	score := TrendScore(recentQty, previousQty)

	season := p.Season
	if season == "" {
		season = "all"
	}

	hp := model.HeroProduct{
		ProductID:         p.ProductID,
		ProductName:       p.ProductName,
		Category:          p.Category,
		Brand:             p.Brand,
		StockSegment:      StockSegment(p.CurrentStock, stockDays),
		LifecycleStage:    lifecycle(created, now, score),
		TrendScore:        score,
		StockDays:         stockDays,
		DailySalesRate:    round2(daily),
		InventoryPressure: stockDays > excessStockDays,
		SeasonMatch:       season != "all" && seasons[season],
		PriceSegment:      PriceSegment(p.UnitPrice),
		MarginHealth:      marginHealth(marginPct),
	}
	switch {
	case hp.SeasonMatch:
		hp.SeasonalRelevance = model.LevelHigh
	case season == "all":
		hp.SeasonalRelevance = model.LevelMedium
	default:
		hp.SeasonalRelevance = model.LevelLow
	}

	return classifiedProduct{hp: hp, marginPct: marginPct, price: p.UnitPrice, stock: p.CurrentStock, createdAt: created}
}

// StockSegment classifies stock coverage in days of sales.
func StockSegment(currentStock int, stockDays float64) string {
	switch {
	case currentStock <= 0 || stockDays < criticalStockDays:
		return model.StockCritical
	case stockDays < lowStockDays:
		return model.StockLow
	case stockDays <= excessStockDays:
		return model.StockHealthy
	default:
		return model.StockExcess
	}
}

// PriceSegment buckets a unit price into a tier.
func PriceSegment(price float64) string {
	switch {
	case price < budgetPriceCeiling:
		return model.PriceBudget
	case price < midPriceCeiling:
		return model.PriceMid
	default:
		return model.PricePremium
	}
}

// TrendScore compares the last 15 days of ordered quantity with the 15 days before.
// 50 is flat, 100 is all-new demand, 0 is demand that vanished.
func TrendScore(recentQty, previousQty int) float64 {
	total := recentQty + previousQty
	if total == 0 {
		return 50
	}
	return round1(50 + 50*float64(recentQty-previousQty)/float64(total))
}

func lifecycle(created, now time.Time, score float64) string {
	if !created.IsZero() && now.Sub(created) <= newProductDays*24*time.Hour {
		return model.LifecycleNew
	}
	switch {
	case score >= growthTrendScore:
		return model.LifecycleGrowth
	case score <= declineTrendScore:
		return model.LifecycleDecline
	default:
		return model.LifecycleMature
	}
}

func marginHealth(pct float64) string {
	switch {
	case pct >= healthyMarginPct:
		return model.MarginHealthy
	case pct >= moderateMarginPct:
		return model.MarginModerate
	default:
		return model.MarginThin
	}
}

// assignPerformance ranks products with sales by daily rate: top quintile Hero,
// bottom quintile SlowMover. Products without sales are DeadStock.
func assignPerformance(products []classifiedProduct) {
	selling := []int{}
	for i := range products {
		if products[i].hp.DailySalesRate <= 0 {
			products[i].hp.PerformanceSegment = model.PerformanceDeadStock
			continue
		}
		selling = append(selling, i)
	}
	sort.SliceStable(selling, func(a, b int) bool {
		return products[selling[a]].hp.DailySalesRate > products[selling[b]].hp.DailySalesRate
	})

	n := len(selling)
	quintile := int(math.Ceil(float64(n) / 5))
	for rank, idx := range selling {
		switch {
		case rank < quintile:
			products[idx].hp.PerformanceSegment = model.PerformanceHero
		case n >= 5 && rank >= n-quintile:
			products[idx].hp.PerformanceSegment = model.PerformanceSlowMover
		default:
			products[idx].hp.PerformanceSegment = model.PerformanceNormal
		}
	}
}

func recommend(hp model.HeroProduct) (action, urgency string) {
	slow := hp.PerformanceSegment == model.PerformanceSlowMover ||
		hp.PerformanceSegment == model.PerformanceDeadStock ||
		hp.LifecycleStage == model.LifecycleDecline

	switch {
	case hp.StockSegment == model.StockCritical:
		return model.ActionRestock, model.LevelHigh
	case hp.StockSegment == model.StockExcess && slow:
		if hp.StockDays > severeExcessDays {
			return model.ActionLiquidate, model.LevelHigh
		}
		return model.ActionLiquidate, model.LevelMedium
	case hp.StockSegment == model.StockExcess:
		return model.ActionBundle, model.LevelMedium
	case hp.LifecycleStage == model.LifecycleNew:
		return model.ActionLaunchPush, model.LevelMedium
	case hp.PerformanceSegment == model.PerformanceHero:
		return model.ActionPromote, model.LevelLow
	case hp.StockSegment == model.StockLow:
		return model.ActionMaintain, model.LevelMedium
	default:
		return model.ActionMaintain, model.LevelLow
	}
}

// orderWindows sums ordered quantity per product for the last 15 days, the 15
// days before that, and the last 30 days.
func orderWindows(orders []model.Order, now time.Time) (recent, previous, last30 map[string]int) {
	recent, previous, last30 = map[string]int{}, map[string]int{}, map[string]int{}
	for _, o := range orders {
		t, err := segmentation.ParseTimestamp(o.Date)
		if err != nil || t.After(now) {
			continue
		}
		age := int(now.Sub(t).Hours() / 24)
		switch {
		case age < trendHalfWindow:
			recent[o.ProductID] += o.Quantity
		case age < 2*trendHalfWindow:
			previous[o.ProductID] += o.Quantity
		}
		if age < int(salesWindowDays) {
			last30[o.ProductID] += o.Quantity
		}
	}
	return recent, previous, last30
}

// SeasonOf maps a month to its northern-hemisphere season.
func SeasonOf(month int) string {
	switch month {
	case 12, 1, 2:
		return "winter"
	case 3, 4, 5:
		return "spring"
	case 6, 7, 8:
		return "summer"
	default:
		return "autumn"
	}
}

func activeSeasons(month int, climate map[string]model.Climate) map[string]bool {
	seasons := map[string]bool{SeasonOf(month): true}
	for _, c := range climate {
		if c.Season != "" {
			seasons[c.Season] = true
		}
	}
	return seasons
}

func categorySummary(products []classifiedProduct) map[string]model.CategoryInsight {
	type acc struct {
		model.CategoryInsight
		sales, margin float64
	}
	byCat := map[string]*acc{}
	for _, c := range products {
		cat := c.hp.Category
		if cat == "" {
			cat = "Unknown"
		}
		a, ok := byCat[cat]
		if !ok {
			a = &acc{}
			byCat[cat] = a
		}
		a.ProductCount++
		a.TotalStock += c.stock
		a.sales += c.hp.DailySalesRate
		a.margin += c.marginPct
		switch c.hp.PerformanceSegment {
		case model.PerformanceHero:
			a.HeroCount++
		case model.PerformanceSlowMover, model.PerformanceDeadStock:
			a.SlowMoverCount++
		}
	}

	out := make(map[string]model.CategoryInsight, len(byCat))
	for cat, a := range byCat {
		ci := a.CategoryInsight
		ci.AvgDailySales = round2(a.sales / float64(a.ProductCount))
		ci.AvgMarginPct = round2(a.margin / float64(a.ProductCount))
		out[cat] = ci
	}
	return out
}

func priceSummary(products []classifiedProduct) map[string]model.PriceSegmentSummary {
	type acc struct {
		count        int
		price, sales float64
	}
	byTier := map[string]*acc{}
	for _, c := range products {
		a, ok := byTier[c.hp.PriceSegment]
		if !ok {
			a = &acc{}
			byTier[c.hp.PriceSegment] = a
		}
		a.count++
		a.price += c.price
		a.sales += c.hp.DailySalesRate
	}

	out := make(map[string]model.PriceSegmentSummary, len(byTier))
	for tier, a := range byTier {
		out[tier] = model.PriceSegmentSummary{
			ProductCount:  a.count,
			AvgPrice:      round2(a.price / float64(a.count)),
			AvgDailySales: round2(a.sales / float64(a.count)),
		}
	}
	return out
}

func limit(list []model.HeroProduct) []model.HeroProduct {
	if len(list) > bucketLimit {
		return list[:bucketLimit]
	}
	return list
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

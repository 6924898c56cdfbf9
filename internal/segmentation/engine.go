// Package segmentation classifies one customer into behavioral segments
// using deterministic threshold rules.
package segmentation

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"campaign-engine/internal/model"
)

// ErrInvalidCustomer marks a caller contract violation (bad age, negative totals,
// unparsable timestamps). Analyze returns it before computing any segment.
var ErrInvalidCustomer = errors.New("invalid customer data")

const (
	defaultAge         = 30
	budgetMultiplier   = 1.2
	neverPurchasedDays = 999
	daysPerMonth       = 30.0
	overdueFactor      = 1.2
	maxRegularInterval = 60.0
	topProductLimit    = 5
)

// Validate checks the structural invariants of a customer record.
func Validate(data *model.CustomerData) error {
	if data == nil {
		return fmt.Errorf("%w: customer data is nil", ErrInvalidCustomer)
	}
	c := data.Customer
	if c.Age != nil && (*c.Age < 0 || *c.Age > 120) {
		return fmt.Errorf("%w: age %d outside [0,120]", ErrInvalidCustomer, *c.Age)
	}
	if c.RegisteredAt != "" {
		if _, err := ParseTimestamp(c.RegisteredAt); err != nil {
			return fmt.Errorf("%w: registeredAt: %v", ErrInvalidCustomer, err)
		}
	}
	for _, p := range c.ProductHistory {
		if p.TotalSpent < 0 {
			return fmt.Errorf("%w: negative totalSpent for product %s", ErrInvalidCustomer, p.ProductID)
		}
		if p.OrderCount < 0 {
			return fmt.Errorf("%w: negative orderCount for product %s", ErrInvalidCustomer, p.ProductID)
		}
		if p.TotalQuantity < 0 {
			return fmt.Errorf("%w: negative totalQuantity for product %s", ErrInvalidCustomer, p.ProductID)
		}
		if p.LastPurchase != "" {
			if _, err := ParseTimestamp(p.LastPurchase); err != nil {
				return fmt.Errorf("%w: lastPurchase for product %s: %v", ErrInvalidCustomer, p.ProductID, err)
			}
		}
	}
	return nil
}

// Analyze derives a CustomerInsight. now is the reference instant for all
// recency computations, so identical inputs give identical outputs.
func Analyze(data *model.CustomerData, now time.Time) (*model.CustomerInsight, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	now = now.UTC()

	if data.CustomerID == "" {
		return regionProfile(data), nil
	}
	if len(data.Customer.ProductHistory) == 0 {
		return newCustomerProfile(data, now), nil
	}
	return regularProfile(data, now), nil
}

func regionProfile(data *model.CustomerData) *model.CustomerInsight {
	median := data.Region.MedianBasket
	return &model.CustomerInsight{
		Mode:                model.ModeRegion,
		City:                data.City,
		Region:              data.Region.Name,
		ClimateType:         data.Region.ClimateType,
		AgeSegment:          model.AgeAdult,
		ChurnSegment:        model.ChurnActive,
		ValueSegment:        model.ValueStandard,
		LoyaltyTier:         model.LoyaltySilver,
		AffinityCategory:    data.Region.Trend,
		AffinityType:        model.AffinityExplorer,
		DiversityProfile:    model.DiversityBalanced,
		AvgBasket:           median,
		EstimatedBudget:     median * budgetMultiplier,
		AvgMonthlySpend:     median * 2,
		LastPurchaseDaysAgo: 30,
		MissingRegulars:     []model.MissingRegular{},
		TopProducts:         []model.TopProduct{},
		Message:             "Region-based profile (no specific customer data)",
	}
}

func newCustomerProfile(data *model.CustomerData, now time.Time) *model.CustomerInsight {
	age := ageOf(data.Customer)
	median := data.Region.MedianBasket
	return &model.CustomerInsight{
		Mode:                model.ModeNewCustomer,
		CustomerID:          data.CustomerID,
		City:                data.City,
		Region:              data.Region.Name,
		ClimateType:         data.Region.ClimateType,
		Age:                 age,
		Gender:              data.Customer.Gender,
		AgeSegment:          AgeSegment(age),
		ChurnSegment:        model.ChurnAtRisk,
		ValueSegment:        model.ValueStandard,
		LoyaltyTier:         model.LoyaltyBronze,
		AffinityCategory:    data.Region.Trend,
		AffinityType:        model.AffinityExplorer,
		DiversityProfile:    model.DiversityExplorer,
		AvgBasket:           median,
		EstimatedBudget:     median * budgetMultiplier,
		LastPurchaseDaysAgo: neverPurchasedDays,
		MembershipDays:      membershipDays(data.Customer, now),
		MissingRegulars:     []model.MissingRegular{},
		TopProducts:         []model.TopProduct{},
		Message:             "New customer profile (no purchase history yet)",
	}
}

func regularProfile(data *model.CustomerData, now time.Time) *model.CustomerInsight {
	history := data.Customer.ProductHistory
	age := ageOf(data.Customer)

	var totalSpent float64
	var totalOrders int
	for _, p := range history {
		totalSpent += p.TotalSpent
		totalOrders += p.OrderCount
	}
	avgBasket := 0.0
	if totalOrders > 0 {
		avgBasket = totalSpent / float64(totalOrders)
	}

	days := membershipDays(data.Customer, now)
	months := 0.0
	if days > 0 {
		months = float64(days) / daysPerMonth
	}
	orderFrequency, avgMonthlySpend := 0.0, 0.0
	if months > 0 {
		orderFrequency = float64(totalOrders) / months
		avgMonthlySpend = totalSpent / months
	}

	lastDays := lastPurchaseDaysAgo(history, now)
	affinityCategory, affinityType := Affinity(history, totalOrders)

	return &model.CustomerInsight{
		Mode:                model.ModeRegular,
		CustomerID:          data.CustomerID,
		City:                data.City,
		Region:              data.Region.Name,
		ClimateType:         data.Region.ClimateType,
		Age:                 age,
		Gender:              data.Customer.Gender,
		AgeSegment:          AgeSegment(age),
		ChurnSegment:        ChurnSegment(lastDays),
		ValueSegment:        ValueSegment(avgBasket, data.Region.MedianBasket),
		LoyaltyTier:         LoyaltyTier(months, orderFrequency, totalOrders),
		AffinityCategory:    affinityCategory,
		AffinityType:        affinityType,
		DiversityProfile:    DiversityProfile(history, totalOrders),
		EstimatedBudget:     avgBasket * budgetMultiplier,
		AvgBasket:           avgBasket,
		AvgMonthlySpend:     avgMonthlySpend,
		LastPurchaseDaysAgo: lastDays,
		OrderCount:          totalOrders,
		TotalSpent:          totalSpent,
		MembershipDays:      days,
		MissingRegulars:     MissingRegulars(history, now),
		TopProducts:         TopProducts(history),
		Message:             "Full customer analysis completed",
	}
}

// AgeSegment partitions ages at 25, 35 and 50 (inclusive upper bounds).
func AgeSegment(age int) string {
	switch {
	case age <= 25:
		return model.AgeGenZ
	case age <= 35:
		return model.AgeYoungAdult
	case age <= 50:
		return model.AgeAdult
	default:
		return model.AgeMature
	}
}

// ChurnSegment maps purchase recency to churn risk.
func ChurnSegment(lastPurchaseDaysAgo int) string {
	switch {
	case lastPurchaseDaysAgo > 60:
		return model.ChurnAtRisk
	case lastPurchaseDaysAgo >= 30:
		return model.ChurnWarm
	default:
		return model.ChurnActive
	}
}

// ValueSegment is HighValue only when the basket strictly exceeds the region median.
func ValueSegment(avgBasket, regionMedian float64) string {
	if avgBasket > regionMedian {
		return model.ValueHigh
	}
	return model.ValueStandard
}

// LoyaltyTier checks the tiers top-down; the first satisfied check wins.
func LoyaltyTier(membershipMonths, orderFrequency float64, totalOrders int) string {
	switch {
	case membershipMonths >= 12 && orderFrequency >= 2:
		return model.LoyaltyPlatinum
	case membershipMonths >= 6 && orderFrequency >= 1:
		return model.LoyaltyGold
	case totalOrders >= 3:
		return model.LoyaltySilver
	default:
		return model.LoyaltyBronze
	}
}

// Affinity picks the category with the highest spend (first seen wins ties) and
// labels it Focused when it holds more than 60% of all orders.
func Affinity(history []model.PurchaseHistory, totalOrders int) (category, affinityType string) {
	type agg struct {
		spent  float64
		orders int
	}
	order := []string{}
	byCategory := map[string]*agg{}
	for _, p := range history {
		cat := p.Category
		if cat == "" {
			cat = "Unknown"
		}
		a, ok := byCategory[cat]
		if !ok {
			a = &agg{}
			byCategory[cat] = a
			order = append(order, cat)
		}
		a.spent += p.TotalSpent
		a.orders += p.OrderCount
	}
	if len(order) == 0 {
		return "Unknown", model.AffinityExplorer
	}

	category = order[0]
	for _, cat := range order[1:] {
		if byCategory[cat].spent > byCategory[category].spent {
			category = cat
		}
	}

	ratio := 0.0
	if totalOrders > 0 {
		ratio = float64(byCategory[category].orders) / float64(totalOrders)
	}
	if ratio > 0.6 {
		return category, model.AffinityFocused
	}
	return category, model.AffinityExplorer
}

// DiversityProfile compares distinct products with the total order count.
func DiversityProfile(history []model.PurchaseHistory, totalOrders int) string {
	distinct := map[string]bool{}
	for _, p := range history {
		distinct[p.ProductID] = true
	}
	ratio := 0.0
	if totalOrders > 0 {
		ratio = float64(len(distinct)) / float64(totalOrders)
	}
	switch {
	case ratio > 0.7:
		return model.DiversityExplorer
	case ratio > 0.4:
		return model.DiversityBalanced
	default:
		return model.DiversityLoyal
	}
}

// MissingRegulars flags products bought on a regular cycle (at most every 60 days)
// whose last purchase is more than 1.2 cycles ago.
func MissingRegulars(history []model.PurchaseHistory, now time.Time) []model.MissingRegular {
	out := []model.MissingRegular{}
	for _, p := range history {
		if p.AvgDaysBetween == nil || *p.AvgDaysBetween <= 0 || *p.AvgDaysBetween > maxRegularInterval {
			continue
		}
		avg := *p.AvgDaysBetween
		since := float64(daysSince(p.LastPurchase, now))
		if since <= avg*overdueFactor {
			continue
		}
		out = append(out, model.MissingRegular{
			ProductID:      p.ProductID,
			ProductName:    p.ProductID,
			LastBought:     p.LastPurchase,
			AvgDaysBetween: avg,
			DaysOverdue:    since - avg,
		})
	}
	return out
}

// TopProducts returns up to five entries by total spend, highest first.
func TopProducts(history []model.PurchaseHistory) []model.TopProduct {
	sorted := make([]model.PurchaseHistory, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalSpent > sorted[j].TotalSpent
	})
	if len(sorted) > topProductLimit {
		sorted = sorted[:topProductLimit]
	}

	out := make([]model.TopProduct, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, model.TopProduct{
			ProductID:     p.ProductID,
			TotalQuantity: p.TotalQuantity,
			TotalSpent:    p.TotalSpent,
			LastBought:    p.LastPurchase,
		})
	}
	return out
}

func ageOf(c model.CustomerRecord) int {
	if c.Age == nil {
		return defaultAge
	}
	return *c.Age
}

func membershipDays(c model.CustomerRecord, now time.Time) int {
	if c.RegisteredAt == "" {
		return 0
	}
	return daysSince(c.RegisteredAt, now)
}

// lastPurchaseDaysAgo treats an entry without lastPurchase as bought now.
func lastPurchaseDaysAgo(history []model.PurchaseHistory, now time.Time) int {
	var latest time.Time
	for _, p := range history {
		if p.LastPurchase == "" {
			return 0
		}
		t, err := ParseTimestamp(p.LastPurchase)
		if err != nil {
			continue
		}
		if t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return neverPurchasedDays
	}
	return wholeDays(now.Sub(latest))
}

// daysSince treats a missing timestamp as "now".
func daysSince(ts string, now time.Time) int {
	if ts == "" {
		return 0
	}
	t, err := ParseTimestamp(ts)
	if err != nil {
		return 0
	}
	return wholeDays(now.Sub(t))
}

func wholeDays(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339, naive ISO date-times and plain dates.
// Naive values are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

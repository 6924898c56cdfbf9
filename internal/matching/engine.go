// Package matching turns insights, calendar events and a prompt into campaign suggestions.
package matching

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"campaign-engine/internal/model"
)

const (
	dateLayout       = "2006-01-02"
	productsPerOffer = 5
	eventLeadDays    = 7
)

// Template names.
const (
	TemplateClearance    = "clearance"
	TemplateSeasonal     = "seasonal"
	TemplatePersonalized = "personalized"
	TemplateAcquisition  = "acquisition"
	TemplateRetention    = "retention"
	TemplateGeneric      = "generic"
)

// Input is everything one matching run may use. Every field is optional.
type Input struct {
	Customer    *model.CustomerInsight
	Product     *model.ProductInsight
	SpecialDays []model.SpecialDay
	Prompt      string
}

// Engine is safe for concurrent use.
type Engine struct {
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

// WithClock fixes the engine's notion of today.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs replaces the campaign ID generator.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now, newID: uuid.NewString}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Match runs every template in priority order and returns at least one suggestion.
func (e *Engine) Match(in Input) []model.CampaignSuggestion {
	today := e.now().UTC()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	intent := ClassifyIntent(in.Prompt)
	pool := newPool(in.Product)
	event := nearest(in.SpecialDays)

	out := []model.CampaignSuggestion{}
	if intent.Has(CueAggressive) {
		out = append(out, e.clearance(in, pool, today))
	}
	if intent.Has(CueSeasonal) || event != nil {
		out = append(out, e.seasonal(in, pool, event, today))
	}
	if in.Customer != nil {
		out = append(out, e.personalized(in, pool, intent, today))
	}
	if in.Customer == nil && intent.Has(CueAcquisition) {
		out = append(out, e.acquisition(pool, today))
	}
	if in.Customer == nil && intent.Has(CueRetention) {
		out = append(out, e.retention(pool, today))
	}
	if len(out) == 0 {
		out = append(out, e.generic(in, pool, event, today))
	}
	return out
}

func (e *Engine) clearance(in Input, p pool, today time.Time) model.CampaignSuggestion {
	candidates := p.filter(func(hp model.HeroProduct) bool {
		return hp.StockSegment == model.StockExcess ||
			hp.LifecycleStage == model.LifecycleDecline ||
			hp.PerformanceSegment == model.PerformanceSlowMover ||
			hp.PerformanceSegment == model.PerformanceDeadStock
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].StockDays > candidates[j].StockDays
	})
	candidates = top(candidates)

	discount := 30.0
	switch maxUrgency(candidates) {
	case model.LevelHigh:
		discount = 50
	case model.LevelMedium:
		discount = 40
	}

	c := e.base(TemplateClearance, today)
	c.CampaignName = "Stock Clearance"
	c.TargetCustomerSegment = customerSegment(in.Customer, "All")
	c.TargetProductSegment = model.StockExcess
	c.Channel = []string{model.ChannelEmail, model.ChannelSMS, model.ChannelPush}
	c.Products = asCampaignProducts(candidates, "clearance")
	c.DiscountSuggestion = percentage(discount, "clearance discount on slow and excess stock")
	if len(candidates) == 0 {
		c.Title = "Clearance sale"
		c.Description = "Store-wide clearance on overstocked lines."
		c.MatchReason = "prompt asks for an aggressive clearance; no overstocked products were identified"
	} else {
		c.Title = fmt.Sprintf("Up to %d%% off while stocks last", int(discount))
		c.Description = fmt.Sprintf("Clear %d slow or overstocked products before they age further.", len(candidates))
		c.MatchReason = "prompt asks for an aggressive clearance and the catalog has slow or excess stock"
	}
	c.EstimatedImpact = model.LevelHigh
	c.StockStatus = stockStatus(candidates, "reduces excess inventory")
	return c
}

func (e *Engine) seasonal(in Input, p pool, event *model.SpecialDay, today time.Time) model.CampaignSuggestion {
	candidates := p.seasonal
	if len(candidates) == 0 {
		candidates = p.hero
	}
	candidates = top(candidates)

	c := e.base(TemplateSeasonal, today)
	c.TargetCustomerSegment = customerSegment(in.Customer, "All")
	c.TargetProductSegment = "Seasonal"
	c.Channel = []string{model.ChannelSocialMedia, model.ChannelEmail, model.ChannelPush, model.ChannelInfluencer}
	c.Products = asCampaignProducts(candidates, "seasonal")
	c.DiscountSuggestion = percentage(25, "seasonal discount")
	c.EstimatedImpact = model.LevelMedium
	c.StockStatus = stockStatus(candidates, "moves seasonal stock")

	if event == nil {
		c.CampaignName = "Seasonal Picks"
		c.Title = "This season's favourites"
		c.Description = "Highlight products that fit the current season."
		c.MatchReason = "prompt mentions a season"
		return c
	}

	eventDate, err := time.Parse(dateLayout, event.Date)
	if err == nil {
		start := eventDate.AddDate(0, 0, -eventLeadDays)
		if start.Before(today) {
			start = today
		}
		c.Timing.StartDate = start.Format(dateLayout)
		c.Timing.EndDate = eventDate.Format(dateLayout)
	}
	name := event.Event
	c.Timing.SpecialEvent = &name
	c.CampaignName = name + " Campaign"
	c.Title = fmt.Sprintf("%s specials", name)
	c.Description = fmt.Sprintf("%s is in %d days. Promote gift-ready products in the run-up.", name, event.DaysUntil)
	c.MatchReason = fmt.Sprintf("upcoming special day: %s on %s", name, event.Date)
	return c
}

func (e *Engine) personalized(in Input, p pool, intent Intent, today time.Time) model.CampaignSuggestion {
	cust := in.Customer
	candidates := p.filter(func(hp model.HeroProduct) bool {
		return strings.EqualFold(hp.Category, cust.AffinityCategory)
	})
	if len(candidates) == 0 {
		candidates = p.hero
	}
	candidates = top(candidates)

	products := []model.CampaignProduct{}
	for _, mr := range cust.MissingRegulars {
		if p.critical[mr.ProductID] {
			continue
		}
		products = append(products, model.CampaignProduct{ProductID: mr.ProductID, ProductName: mr.ProductName, Role: "replenish"})
	}
	products = append(products, asCampaignProducts(candidates, "affinity")...)

	discount := PersonalDiscount(cust.ChurnSegment, cust.ValueSegment, cust.LoyaltyTier, intent.Has(CueRetention))

	c := e.base(TemplatePersonalized, today)
	c.CampaignName = fmt.Sprintf("%s Picks for You", titleCase(cust.AffinityCategory))
	c.Title = fmt.Sprintf("Your %s favourites", strings.ToLower(cust.AffinityCategory))
	c.Description = fmt.Sprintf("Personal offer for a %s %s customer in %s.", cust.LoyaltyTier, cust.ChurnSegment, cust.AffinityCategory)
	c.TargetCustomerSegment = customerSegment(cust, "All")
	c.TargetProductSegment = cust.AffinityCategory
	c.MatchReason = fmt.Sprintf("customer affinity %s, churn %s, loyalty %s", cust.AffinityCategory, cust.ChurnSegment, cust.LoyaltyTier)
	c.Channel = personalChannels(cust.ChurnSegment)
	c.Products = products
	c.DiscountSuggestion = percentage(discount, "personal discount")
	c.EstimatedImpact = model.LevelMedium
	if cust.ChurnSegment == model.ChurnAtRisk {
		c.EstimatedImpact = model.LevelHigh
	}
	c.StockStatus = stockStatus(candidates, "targeted demand")
	return c
}

// PersonalDiscount maps churn, value and loyalty to a percentage.
// A retention cue adds 5 points, capped at 25.
func PersonalDiscount(churn, value, loyalty string, retentionCue bool) float64 {
	var d float64
	switch {
	case churn == model.ChurnAtRisk && loyalty == model.LoyaltyBronze:
		d = 25
	case churn == model.ChurnAtRisk:
		d = 20
	case churn == model.ChurnWarm:
		d = 15
	case value == model.ValueHigh && loyalty == model.LoyaltyPlatinum:
		d = 5
	case value == model.ValueHigh:
		d = 10
	case loyalty == model.LoyaltyBronze:
		d = 15
	default:
		d = 10
	}
	if retentionCue {
		d += 5
		if d > 25 {
			d = 25
		}
	}
	return d
}

func (e *Engine) acquisition(p pool, today time.Time) model.CampaignSuggestion {
	candidates := append(append([]model.HeroProduct{}, p.fresh...), p.hero...)
	candidates = top(dedupe(candidates))

	c := e.base(TemplateAcquisition, today)
	c.CampaignName = "Welcome Offer"
	c.Title = "20% off your first order"
	c.Description = "Attract first-time buyers with best sellers and new arrivals."
	c.TargetCustomerSegment = "NewCustomers"
	c.TargetProductSegment = "Hero"
	c.MatchReason = "prompt asks for new customer acquisition"
	c.Channel = []string{model.ChannelSocialMedia, model.ChannelGoogleAds, model.ChannelInfluencer}
	c.Products = asCampaignProducts(candidates, "welcome")
	c.DiscountSuggestion = percentage(20, "first purchase discount")
	c.EstimatedImpact = model.LevelMedium
	c.StockStatus = stockStatus(candidates, "steady demand")
	return c
}

func (e *Engine) retention(p pool, today time.Time) model.CampaignSuggestion {
	candidates := top(p.hero)

	c := e.base(TemplateRetention, today)
	c.CampaignName = "We Miss You"
	c.Title = "Come back for 15% off"
	c.Description = "Win back customers who have not ordered recently."
	c.TargetCustomerSegment = model.ChurnAtRisk
	c.TargetProductSegment = "Hero"
	c.MatchReason = "prompt asks for retention of lapsing customers"
	c.Channel = []string{model.ChannelEmail, model.ChannelSMS}
	c.Products = asCampaignProducts(candidates, "win_back")
	c.DiscountSuggestion = percentage(15, "win-back discount")
	c.EstimatedImpact = model.LevelMedium
	c.StockStatus = stockStatus(candidates, "steady demand")
	return c
}

func (e *Engine) generic(in Input, p pool, event *model.SpecialDay, today time.Time) model.CampaignSuggestion {
	candidates := append(append(append([]model.HeroProduct{}, p.hero...), p.fresh...), p.seasonal...)
	candidates = top(dedupe(candidates))

	c := e.base(TemplateGeneric, today)
	c.CampaignName = "Featured Products"
	c.Title = "Featured picks"
	c.Description = "A general promotion of the catalog's strongest products."
	c.TargetCustomerSegment = customerSegment(in.Customer, "All")
	c.TargetProductSegment = "Featured"
	c.Channel = []string{model.ChannelEmail, model.ChannelSocialMedia}
	c.Products = asCampaignProducts(candidates, "featured")
	c.DiscountSuggestion = percentage(10, "general discount")
	c.EstimatedImpact = model.LevelLow
	c.StockStatus = stockStatus(candidates, "steady demand")
	c.MatchReason = "general campaign"
	if strings.TrimSpace(in.Prompt) != "" {
		c.MatchReason = "general campaign for prompt: " + strings.TrimSpace(in.Prompt)
	}
	if event != nil {
		name := event.Event
		c.Timing.SpecialEvent = &name
	}
	return c
}

func (e *Engine) base(template string, today time.Time) model.CampaignSuggestion {
	return model.CampaignSuggestion{
		CampaignID: e.newID(),
		Template:   template,
		Timing: model.CampaignTiming{
			StartDate: today.Format(dateLayout),
			EndDate:   endOfMonth(today).Format(dateLayout),
		},
		Products: []model.CampaignProduct{},
	}
}

// StripCritical removes Critical-stock products from campaigns produced elsewhere.
// A product is Critical when it is labelled so or its ID is in critical.
// Campaigns targeting the Critical segment are dropped. The input is not modified.
func StripCritical(campaigns []model.CampaignSuggestion, critical map[string]bool) []model.CampaignSuggestion {
	out := make([]model.CampaignSuggestion, 0, len(campaigns))
	for _, c := range campaigns {
		if strings.EqualFold(strings.TrimSpace(c.TargetProductSegment), model.StockCritical) {
			continue
		}
		kept := []model.CampaignProduct{}
		for _, p := range c.Products {
			if p.StockSegment == model.StockCritical || critical[p.ProductID] {
				continue
			}
			kept = append(kept, p)
		}
		c.Products = kept
		out = append(out, c)
	}
	return out
}

// pool holds the non-Critical products of a ProductInsight by bucket.
type pool struct {
	hero, fresh, seasonal, slow []model.HeroProduct
	critical                    map[string]bool
}

func newPool(pi *model.ProductInsight) pool {
	p := pool{critical: pi.CriticalIDs()}
	if pi == nil {
		return p
	}
	p.hero = p.eligible(pi.HeroProducts)
	p.fresh = p.eligible(pi.NewProducts)
	p.seasonal = p.eligible(pi.SeasonalProducts)
	p.slow = p.eligible(pi.SlowMovers)
	return p
}

func (p pool) eligible(list []model.HeroProduct) []model.HeroProduct {
	out := []model.HeroProduct{}
	for _, hp := range list {
		if !p.critical[hp.ProductID] {
			out = append(out, hp)
		}
	}
	return out
}

func (p pool) filter(keep func(model.HeroProduct) bool) []model.HeroProduct {
	all := dedupe(append(append(append(append([]model.HeroProduct{}, p.hero...), p.fresh...), p.seasonal...), p.slow...))
	out := []model.HeroProduct{}
	for _, hp := range all {
		if keep(hp) {
			out = append(out, hp)
		}
	}
	return out
}

func dedupe(list []model.HeroProduct) []model.HeroProduct {
	seen := map[string]bool{}
	out := []model.HeroProduct{}
	for _, hp := range list {
		if seen[hp.ProductID] {
			continue
		}
		seen[hp.ProductID] = true
		out = append(out, hp)
	}
	return out
}

func top(list []model.HeroProduct) []model.HeroProduct {
	if len(list) > productsPerOffer {
		return list[:productsPerOffer]
	}
	return list
}

func nearest(days []model.SpecialDay) *model.SpecialDay {
	var best *model.SpecialDay
	for i := range days {
		if days[i].DaysUntil < 0 {
			continue
		}
		if best == nil || days[i].DaysUntil < best.DaysUntil {
			best = &days[i]
		}
	}
	return best
}

func maxUrgency(list []model.HeroProduct) string {
	rank := map[string]int{model.LevelLow: 1, model.LevelMedium: 2, model.LevelHigh: 3}
	best := model.LevelLow
	for _, hp := range list {
		if rank[hp.UrgencyLevel] > rank[best] {
			best = hp.UrgencyLevel
		}
	}
	return best
}

func asCampaignProducts(list []model.HeroProduct, role string) []model.CampaignProduct {
	out := make([]model.CampaignProduct, 0, len(list))
	for _, hp := range list {
		out = append(out, model.CampaignProduct{
			ProductID:    hp.ProductID,
			ProductName:  hp.ProductName,
			Category:     hp.Category,
			StockSegment: hp.StockSegment,
			Role:         role,
		})
	}
	return out
}

func stockStatus(list []model.HeroProduct, impact string) model.StockStatus {
	counts := map[string]int{}
	level := "Unknown"
	for _, hp := range list {
		counts[hp.StockSegment]++
		if counts[hp.StockSegment] > counts[level] {
			level = hp.StockSegment
		}
	}
	return model.StockStatus{CurrentLevel: level, EstimatedCampaignImpact: impact}
}

func percentage(v float64, desc string) model.DiscountSuggestion {
	return model.DiscountSuggestion{
		Type:        model.DiscountPercentage,
		Value:       v,
		Description: fmt.Sprintf("%d%% %s", int(v), desc),
	}
}

func customerSegment(c *model.CustomerInsight, fallback string) string {
	if c == nil {
		return fallback
	}
	return fmt.Sprintf("%s/%s/%s", c.ChurnSegment, c.ValueSegment, c.LoyaltyTier)
}

func personalChannels(churn string) []string {
	switch churn {
	case model.ChurnAtRisk:
		return []string{model.ChannelEmail, model.ChannelSMS}
	case model.ChurnWarm:
		return []string{model.ChannelEmail, model.ChannelPush}
	default:
		return []string{model.ChannelPush, model.ChannelEmail}
	}
}

func titleCase(s string) string {
	if s == "" {
		return "Curated"
	}
	return cases.Title(language.Und).String(s)
}

func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

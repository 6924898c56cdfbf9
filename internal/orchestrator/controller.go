// Package orchestrator runs the customer, product and campaign stages for one
// request, preferring remote agents and falling back to the local engines.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"campaign-engine/internal/agent"
	"campaign-engine/internal/campaign"
	"campaign-engine/internal/config"
	"campaign-engine/internal/logger"
	"campaign-engine/internal/matching"
	"campaign-engine/internal/model"
	"campaign-engine/internal/productinsight"
	"campaign-engine/internal/segmentation"
	"campaign-engine/internal/specialdays"
	"campaign-engine/internal/validation"
)

const (
	stageCustomer = "customer analysis"
	stageProduct  = "product analysis"
	stageCampaign = "campaign generation"
)

// Publisher receives a summary of every completed run.
type Publisher interface {
	PublishCampaignsGenerated(ctx context.Context, evt model.CampaignsGenerated) error
}

// Controller is safe for concurrent use; each Run is independent.
type Controller struct {
	cfg       *config.Config
	remote    agent.Invoker
	campaigns *campaign.Service
	publisher Publisher
	now       func() time.Time
	log       *logrus.Entry
}

type Option func(*Controller)

// WithRemote enables the remote-agent path. A nil invoker keeps every stage local.
func WithRemote(inv agent.Invoker) Option {
	return func(c *Controller) { c.remote = inv }
}

func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(cfg *config.Config, opts ...Option) *Controller {
	c := &Controller{cfg: cfg, now: time.Now, log: logger.Get("orchestrator")}
	for _, o := range opts {
		o(c)
	}
	c.campaigns = campaign.NewService(matching.NewEngine(matching.WithClock(c.now)), cfg.SpecialDayLookahead, c.now)
	return c
}

// Run never fails. Every problem along the way ends up in the summary warnings.
func (c *Controller) Run(ctx context.Context, req *model.OrchestrationRequest) *model.OrchestrationResult {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	ctx = agent.WithSession(ctx, req.RequestID)
	remote := c.remote != nil && req.RemoteEnabled()
	log := c.log.WithFields(logrus.Fields{"request_id": req.RequestID, "remote": remote})
	start := c.now()

	var (
		wg       sync.WaitGroup
		customer Outcome[model.CustomerInsight]
		product  Outcome[model.ProductInsight]
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		customer = c.customerStage(ctx, req.CustomerData, remote)
	}()
	go func() {
		defer wg.Done()
		product = c.productStage(ctx, req.ProductData, c.maxProducts(req), remote)
	}()
	wg.Wait()

	warnings := []string{}
	for _, w := range []string{customer.Warning(stageCustomer), product.Warning(stageProduct)} {
		if w != "" {
			warnings = append(warnings, w)
		}
	}

	campaigns, campaignWarnings := c.campaignStage(ctx, req.Prompt, customer.Value, product.Value, remote)
	warnings = append(warnings, campaignWarnings...)

	result := &model.OrchestrationResult{
		CustomerInsight: customer.Value,
		ProductInsight:  product.Value,
		Campaigns:       campaigns,
		OrchestrationSummary: model.OrchestrationSummary{
			CustomerAnalyzed: customer.Value != nil,
			ProductAnalyzed:  product.Value != nil,
			CampaignCount:    len(campaigns),
			Warnings:         warnings,
		},
	}

	log.WithFields(logrus.Fields{
		"customer":  customer.Kind,
		"product":   product.Kind,
		"campaigns": len(campaigns),
		"warnings":  len(warnings),
		"took_ms":   c.now().Sub(start).Milliseconds(),
	}).Info("Orchestrator: run complete")

	c.publish(ctx, req, result)
	return result
}

func (c *Controller) customerStage(ctx context.Context, raw json.RawMessage, remote bool) Outcome[model.CustomerInsight] {
	if isAbsent(raw) {
		return absent[model.CustomerInsight]("no customer data provided")
	}
	var data model.CustomerData
	if err := json.Unmarshal(raw, &data); err != nil {
		return absent[model.CustomerInsight](fmt.Sprintf("customer data malformed: %v", err))
	}

	reason := ""
	if remote {
		insight, err := c.remoteCustomer(ctx, raw)
		if err == nil {
			return resolved(insight)
		}
		reason = err.Error()
		c.log.WithError(err).Warn("Orchestrator: customer agent failed, falling back")
	}

	insight, err := segmentation.Analyze(&data, c.now())
	if err != nil {
		msg := fmt.Sprintf("customer analysis failed: %v", err)
		if reason != "" {
			msg = fmt.Sprintf("remote agent unusable (%s), %s", reason, msg)
		}
		return absent[model.CustomerInsight](msg)
	}
	if reason != "" {
		return degraded(insight, reason)
	}
	return resolved(insight)
}

func (c *Controller) remoteCustomer(ctx context.Context, raw json.RawMessage) (*model.CustomerInsight, error) {
	body, err := c.remote.Invoke(ctx, c.cfg.CustomerAgentID, raw)
	if err != nil {
		return nil, err
	}
	reply := agent.Decode(body)
	if agent.IsRaw(reply) {
		return nil, errors.New("unparseable response")
	}
	v := validation.CustomerInsight(pick(reply, "analysis", "result"))
	if !v.Valid() {
		return nil, fmt.Errorf("%s response: %s", v.Status, strings.Join(v.Errors, "; "))
	}
	return v.Insight, nil
}

func (c *Controller) productStage(ctx context.Context, raw json.RawMessage, maxProducts int, remote bool) Outcome[model.ProductInsight] {
	if isAbsent(raw) {
		return absent[model.ProductInsight]("no product data provided")
	}
	var data model.ProductData
	if err := json.Unmarshal(raw, &data); err != nil {
		return absent[model.ProductInsight](fmt.Sprintf("product data malformed: %v", err))
	}
	if maxProducts > 0 && len(data.Products) > maxProducts {
		data.Products = data.Products[:maxProducts]
	}

	reason := ""
	if remote {
		insight, err := c.remoteProduct(ctx, &data)
		if err == nil {
			// the remote view may omit unbucketed Critical products
			insight.CriticalProducts = mergeIDs(insight.CriticalProducts, productinsight.Aggregate(&data, c.now()).CriticalProducts)
			return resolved(insight)
		}
		reason = err.Error()
		c.log.WithError(err).Warn("Orchestrator: product agent failed, falling back")
	}

	insight := productinsight.Aggregate(&data, c.now())
	if reason != "" {
		return degraded(insight, reason)
	}
	return resolved(insight)
}

func (c *Controller) remoteProduct(ctx context.Context, data *model.ProductData) (*model.ProductInsight, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	body, err := c.remote.Invoke(ctx, c.cfg.ProductAgentID, payload)
	if err != nil {
		return nil, err
	}
	reply := agent.Decode(body)
	if agent.IsRaw(reply) {
		return nil, errors.New("unparseable response")
	}
	v := validation.ProductInsight(pick(reply, "productInsight", "analysis"))
	if !v.Valid() {
		return nil, fmt.Errorf("%s response: %s", v.Status, strings.Join(v.Errors, "; "))
	}
	return v.Insight, nil
}

// campaignStage always yields at least one campaign.
func (c *Controller) campaignStage(ctx context.Context, prompt string, customer *model.CustomerInsight, product *model.ProductInsight, remote bool) ([]model.CampaignSuggestion, []string) {
	customerRaw := marshalOrNull(customer)
	productRaw := marshalOrNull(product)
	warnings := []string{}

	if remote {
		campaigns, err := c.remoteCampaigns(ctx, prompt, customerRaw, productRaw, product.CriticalIDs())
		if err == nil {
			return campaigns, warnings
		}
		c.log.WithError(err).Warn("Orchestrator: campaign agent failed, falling back")
		warnings = append(warnings, stageCampaign+": remote agent unusable ("+err.Error()+"), used local engine")
	}

	resp := c.campaigns.Generate(campaign.Request{
		CustomerInsight: customerRaw,
		ProductInsight:  productRaw,
		Prompt:          prompt,
	})
	for _, w := range resp.Warnings {
		// absence was already reported by the stage that produced it
		if strings.HasSuffix(w, "insight unavailable") {
			continue
		}
		warnings = append(warnings, stageCampaign+": "+w)
	}
	return resp.Campaigns, warnings
}

func (c *Controller) remoteCampaigns(ctx context.Context, prompt string, customer, product json.RawMessage, critical map[string]bool) ([]model.CampaignSuggestion, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = model.DefaultPrompt
	}
	payload, err := json.Marshal(map[string]any{
		"prompt":          prompt,
		"customerInsight": customer,
		"productInsight":  product,
		"specialDays":     specialdays.Upcoming(c.now(), c.cfg.SpecialDayLookahead),
	})
	if err != nil {
		return nil, err
	}
	body, err := c.remote.Invoke(ctx, c.cfg.CampaignAgentID, payload)
	if err != nil {
		return nil, err
	}

	reply := agent.Decode(body)
	list, ok := reply["campaigns"]
	if !ok {
		list, ok = reply["data"]
	}
	if !ok {
		return nil, errors.New("response has no campaigns")
	}
	encoded, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	var campaigns []model.CampaignSuggestion
	if err := json.Unmarshal(encoded, &campaigns); err != nil {
		return nil, fmt.Errorf("campaigns malformed: %w", err)
	}

	campaigns = matching.StripCritical(campaigns, critical)
	if len(campaigns) == 0 {
		return nil, errors.New("response has no campaigns")
	}
	seen := map[string]bool{}
	for i := range campaigns {
		if campaigns[i].CampaignID == "" || seen[campaigns[i].CampaignID] {
			campaigns[i].CampaignID = uuid.NewString()
		}
		seen[campaigns[i].CampaignID] = true
		if len(campaigns[i].Channel) == 0 {
			campaigns[i].Channel = []string{model.ChannelEmail}
		}
	}
	return campaigns, nil
}

func (c *Controller) maxProducts(req *model.OrchestrationRequest) int {
	if req.MaxProducts > 0 {
		return req.MaxProducts
	}
	return c.cfg.DefaultMaxProducts
}

func (c *Controller) publish(ctx context.Context, req *model.OrchestrationRequest, result *model.OrchestrationResult) {
	if c.publisher == nil {
		return
	}
	evt := model.CampaignsGenerated{
		RequestID:     req.RequestID,
		CustomerID:    req.CustomerID,
		Prompt:        req.Prompt,
		CampaignCount: len(result.Campaigns),
		Campaigns:     result.Campaigns,
		Warnings:      result.OrchestrationSummary.Warnings,
		Timestamp:     c.now().UTC().Format(time.RFC3339),
	}
	if err := c.publisher.PublishCampaignsGenerated(ctx, evt); err != nil {
		c.log.WithError(err).Warn("Orchestrator: failed to publish campaigns generated")
	}
}

// pick returns the first present key of reply as JSON, or the whole reply.
func pick(reply map[string]any, keys ...string) json.RawMessage {
	var v any = reply
	for _, k := range keys {
		if inner, ok := reply[k]; ok && inner != nil {
			v = inner
			break
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// mergeIDs appends the IDs of extra missing from ids.
func mergeIDs(ids, extra []string) []string {
	have := map[string]bool{}
	out := []string{}
	for _, id := range append(append([]string{}, ids...), extra...) {
		if !have[id] {
			have[id] = true
			out = append(out, id)
		}
	}
	return out
}

func marshalOrNull[T any](v *T) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func isAbsent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

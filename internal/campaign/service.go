// Package campaign is the local campaign stage: it validates the incoming
// insights, looks up upcoming special days and runs the matching engine.
package campaign

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"campaign-engine/internal/logger"
	"campaign-engine/internal/matching"
	"campaign-engine/internal/model"
	"campaign-engine/internal/specialdays"
	"campaign-engine/internal/validation"
)

// Request is the input of one campaign generation.
// SpecialDays overrides the calendar lookup when non-nil.
type Request struct {
	CustomerInsight json.RawMessage    `json:"customerInsight,omitempty"`
	ProductInsight  json.RawMessage    `json:"productInsight,omitempty"`
	Prompt          string             `json:"prompt"`
	SpecialDays     []model.SpecialDay `json:"specialDays,omitempty"`
}

type Service struct {
	engine    *matching.Engine
	lookahead int
	now       func() time.Time
	log       *logrus.Entry
}

// NewService builds the local campaign stage. lookahead is the special-day window in days.
func NewService(engine *matching.Engine, lookahead int, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		engine:    engine,
		lookahead: lookahead,
		now:       now,
		log:       logger.Get("campaign"),
	}
}

// Generate never fails: unusable insights become warnings and the engine
// runs with whatever is left.
func (s *Service) Generate(req Request) model.CampaignResponse {
	warnings := []string{}
	in := matching.Input{Prompt: req.Prompt}

	cv := validation.CustomerInsight(req.CustomerInsight)
	switch cv.Status {
	case validation.StatusValid:
		in.Customer = cv.Insight
	case validation.StatusInvalid:
		warnings = append(warnings, "customer insight invalid: "+strings.Join(cv.Errors, "; "))
	default:
		warnings = append(warnings, "customer insight unavailable")
	}

	pv := validation.ProductInsight(req.ProductInsight)
	switch pv.Status {
	case validation.StatusValid:
		in.Product = pv.Insight
	case validation.StatusInvalid:
		warnings = append(warnings, "product insight invalid: "+strings.Join(pv.Errors, "; "))
	default:
		warnings = append(warnings, "product insight unavailable")
	}

	now := s.now()
	in.SpecialDays = req.SpecialDays
	if in.SpecialDays == nil {
		in.SpecialDays = specialdays.Upcoming(now, s.lookahead)
	}

	campaigns := s.engine.Match(in)

	prompt := req.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = model.DefaultPrompt
	}

	s.log.WithFields(logrus.Fields{
		"campaigns":    len(campaigns),
		"special_days": len(in.SpecialDays),
		"warnings":     len(warnings),
	}).Info("Campaign: generated suggestions")

	return model.CampaignResponse{
		Campaigns:      campaigns,
		GeneratedAt:    now.UTC().Format(time.RFC3339),
		PromptUsed:     prompt,
		TotalCampaigns: len(campaigns),
		Error:          false,
		Warnings:       warnings,
	}
}

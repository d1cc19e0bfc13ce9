package aitask

import (
	"context"

	"github.com/phrazzld/marketing-jobs/internal/task"
)

// CampaignMetrics is the result of an analytics task. Ratios are zero when
// their denominator is zero.
type CampaignMetrics struct {
	Impressions       float64 `json:"impressions"`
	Clicks            float64 `json:"clicks"`
	Conversions       float64 `json:"conversions"`
	Spend             float64 `json:"spend"`
	ClickThroughRate  float64 `json:"click_through_rate"`
	ConversionRate    float64 `json:"conversion_rate"`
	CostPerConversion float64 `json:"cost_per_conversion"`
}

// Analytics computes campaign performance ratios.
type Analytics struct{}

// NewAnalytics creates an Analytics executor.
func NewAnalytics() *Analytics {
	return &Analytics{}
}

// Execute implements task.Executor.
func (a *Analytics) Execute(_ context.Context, params map[string]any, progress task.ProgressReporter) (any, error) {
	var m CampaignMetrics
	var err error
	for key, dst := range map[string]*float64{
		"impressions": &m.Impressions,
		"clicks":      &m.Clicks,
		"conversions": &m.Conversions,
		"spend":       &m.Spend,
	} {
		if *dst, err = nonNegativeFloat(params, key); err != nil {
			return nil, err
		}
	}

	steps := []struct {
		percent int
		message string
		compute func()
	}{
		{33, "click-through rate computed", func() { m.ClickThroughRate = ratio(m.Clicks, m.Impressions) }},
		{66, "conversion rate computed", func() { m.ConversionRate = ratio(m.Conversions, m.Clicks) }},
		{100, "cost per conversion computed", func() { m.CostPerConversion = ratio(m.Spend, m.Conversions) }},
	}
	for _, step := range steps {
		step.compute()
		if err := progress.Report(step.percent, step.message); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

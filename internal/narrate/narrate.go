// Package narrate turns analysis reports into short prose summaries.
//
// The analysis engine never calls a narrator; narration is strictly
// caller-side plumbing attached by the CLI and the watcher.
package narrate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "volflow/internal/errors"
	"volflow/internal/models"
	"volflow/pkg/utils"
)

// Narrator produces a prose summary of one analysis report.
type Narrator interface {
	Summarize(ctx context.Context, report *models.AnalysisReport) (string, error)
}

const systemPrompt = "You are a market analysis assistant. You receive one technical " +
	"analysis report for a single instrument and write a short plain prose summary " +
	"for a trader: two or three sentences on volume behavior and market structure, " +
	"one on the suggested plan and its risk. Never invent numbers that are not in " +
	"the report. No headers, no bullet points."

// OpenAINarrator summarizes reports with an OpenAI chat model.
type OpenAINarrator struct {
	client *openai.Client
	model  string
}

// NewOpenAINarrator creates a narrator backed by the OpenAI API. Returns
// ErrNotConfigured when the API key is missing.
func NewOpenAINarrator(apiKey, model string) (*OpenAINarrator, error) {
	if apiKey == "" {
		return nil, apperrors.ErrNotConfigured
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAINarrator{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Summarize renders the report compactly and asks the model for prose.
func (n *OpenAINarrator) Summarize(ctx context.Context, report *models.AnalysisReport) (string, error) {
	if report == nil {
		return "", apperrors.NewNarratorError(n.model, "summarize", fmt.Errorf("nil report"))
	}

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       n.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: renderReport(report)},
		},
	})
	if err != nil {
		return "", apperrors.NewNarratorError(n.model, "summarize", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewNarratorError(n.model, "summarize", fmt.Errorf("no response from openai"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// NopNarrator is the stand-in used when no API key is configured.
type NopNarrator struct{}

func (NopNarrator) Summarize(ctx context.Context, report *models.AnalysisReport) (string, error) {
	return "", apperrors.ErrNotConfigured
}

// renderReport flattens a report into the compact key/value text the model
// receives. Variants render in sorted order so prompts are deterministic.
func renderReport(r *models.AnalysisReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Symbol: %s\n", r.Symbol)
	fmt.Fprintf(&b, "As of: %s\n", r.AsOf.Format("2006-01-02"))
	fmt.Fprintf(&b, "Last close: %s\n", utils.FormatPrice(r.LastClose))
	fmt.Fprintf(&b, "Bars analyzed: %d\n", r.Bars)
	fmt.Fprintf(&b, "RSI(14): %.1f\n", r.Indicators.RSI14)
	fmt.Fprintf(&b, "OBV trend: %s, A/D trend: %s, VPT trend: %s\n",
		r.Indicators.OBVTrend, r.Indicators.ADTrend, r.Indicators.VPTTrend)
	fmt.Fprintf(&b, "Phase: %s (confidence %d)\n", r.Phase.Phase, r.Phase.Confidence)

	if r.Consolidation.IsConsolidating {
		fmt.Fprintf(&b, "Consolidating for %d bars between %s and %s\n",
			r.Consolidation.DurationBars,
			utils.FormatPrice(r.Consolidation.SupportLevel),
			utils.FormatPrice(r.Consolidation.ResistanceLevel))
	}
	if r.Signals.VolumeSpike {
		fmt.Fprintf(&b, "Volume spike: %.1fx average\n", r.Signals.VolumeRatio)
	}

	variants := make([]string, 0, len(r.Scores))
	for variant := range r.Scores {
		variants = append(variants, variant)
	}
	sort.Strings(variants)
	for _, variant := range variants {
		fmt.Fprintf(&b, "Score (%s): %d\n", variant, r.Scores[variant].Value)
	}

	rec := r.Recommendation
	fmt.Fprintf(&b, "Plan: %s via %s, entry %s, stop %s, targets %s and %s, risk/reward %.2f, max hold %d days, confidence %s\n",
		rec.Action, rec.Strategy,
		utils.FormatPrice(rec.EntryPrice), utils.FormatPrice(rec.StopLoss),
		utils.FormatPrice(rec.TakeProfit1), utils.FormatPrice(rec.TakeProfit2),
		rec.RiskRewardRatio, rec.MaxHoldingDays, rec.Confidence)
	for _, reason := range rec.Reasoning {
		fmt.Fprintf(&b, "- %s\n", reason)
	}

	return b.String()
}

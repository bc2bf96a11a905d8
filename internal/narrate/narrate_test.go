package narrate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	apperrors "volflow/internal/errors"
	"volflow/internal/models"
)

func sampleReport() *models.AnalysisReport {
	return &models.AnalysisReport{
		Symbol:    "ACME",
		AsOf:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Bars:      120,
		LastClose: 104.2,
		Indicators: models.IndicatorSummary{
			RSI14:    28.4,
			OBVTrend: models.TrendRising,
			ADTrend:  models.FlowAccumulation,
			VPTTrend: models.TrendNeutral,
		},
		Phase: models.PhaseResult{Phase: models.PhaseAccumulation, Confidence: 70},
		Consolidation: models.Consolidation{
			IsConsolidating: true,
			DurationBars:    14,
			SupportLevel:    101,
			ResistanceLevel: 108,
		},
		Signals: models.SignalSet{VolumeSpike: true, VolumeRatio: 2.6},
		Scores: map[string]models.Score{
			"breakout":     {Value: 55},
			"accumulation": {Value: 72},
		},
		Recommendation: models.Recommendation{
			Action:          models.ActionBuy,
			Strategy:        "Oversold Bounce",
			EntryPrice:      102.9,
			StopLoss:        98.2,
			TakeProfit1:     108,
			TakeProfit2:     112,
			RiskRewardRatio: 1.7,
			MaxHoldingDays:  7,
			Confidence:      models.ConfidenceMedium,
			Reasoning:       []string{"RSI oversold near support"},
		},
	}
}

func TestRenderReport(t *testing.T) {
	text := renderReport(sampleReport())

	for _, want := range []string{
		"Symbol: ACME",
		"Last close: 104.20",
		"RSI(14): 28.4",
		"Phase: ACCUMULATION (confidence 70)",
		"Consolidating for 14 bars between 101.00 and 108.00",
		"Volume spike: 2.6x average",
		"Score (accumulation): 72",
		"Score (breakout): 55",
		"Plan: BUY via Oversold Bounce",
		"RSI oversold near support",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered report missing %q:\n%s", want, text)
		}
	}

	// Variants must render in sorted order.
	if strings.Index(text, "Score (accumulation)") > strings.Index(text, "Score (breakout)") {
		t.Error("variants not sorted in rendered report")
	}
}

func TestOpenAINarratorSummarize(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "  Quiet accumulation with a defined plan.\n"}},
			},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	n := &OpenAINarrator{client: openai.NewClientWithConfig(cfg), model: openai.GPT4oMini}

	summary, err := n.Summarize(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "Quiet accumulation with a defined plan." {
		t.Errorf("summary = %q", summary)
	}

	if gotReq.Model != openai.GPT4oMini {
		t.Errorf("model = %q, want %q", gotReq.Model, openai.GPT4oMini)
	}
	if gotReq.Temperature < 0.19 || gotReq.Temperature > 0.21 {
		t.Errorf("temperature = %v, want 0.2", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "Symbol: ACME") {
		t.Error("user message does not carry the rendered report")
	}
}

func TestOpenAINarratorEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	n := &OpenAINarrator{client: openai.NewClientWithConfig(cfg), model: "test-model"}

	_, err := n.Summarize(context.Background(), sampleReport())
	var nerr *apperrors.NarratorError
	if !apperrors.As(err, &nerr) {
		t.Fatalf("err = %v, want NarratorError", err)
	}
}

func TestNewOpenAINarratorRequiresKey(t *testing.T) {
	if _, err := NewOpenAINarrator("", "gpt-4o-mini"); !apperrors.Is(err, apperrors.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	n, err := NewOpenAINarrator("key", "")
	if err != nil {
		t.Fatalf("NewOpenAINarrator: %v", err)
	}
	if n.model != openai.GPT4oMini {
		t.Errorf("default model = %q, want %q", n.model, openai.GPT4oMini)
	}
}

func TestNopNarrator(t *testing.T) {
	_, err := NopNarrator{}.Summarize(context.Background(), sampleReport())
	if !apperrors.Is(err, apperrors.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

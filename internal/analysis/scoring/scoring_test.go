package scoring

import (
	"errors"
	"testing"

	"volflow/internal/models"
)

func TestScoreAccumulationAllSignals(t *testing.T) {
	signals := models.SignalSet{
		OBVRising:           true,
		SmartMoneyFlow:      true,
		PriceConsolidation:  true,
		WyckoffAccumulation: true,
		HighVolumeAtSupport: true,
		VolumeDivergence:    true,
	}

	score, err := NewScorer().Score(TableAccumulation, signals)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// Raw weights sum to 115; the table clamps at 100.
	if score.Value != 100 {
		t.Errorf("Value = %d, want 100", score.Value)
	}
	if len(score.Reasoning) != 6 {
		t.Errorf("Reasoning = %v, want 6 lines", score.Reasoning)
	}
}

func TestScoreAccumulationPartial(t *testing.T) {
	tests := []struct {
		name    string
		signals models.SignalSet
		want    int
	}{
		{"no signals", models.SignalSet{}, 0},
		{"obv only", models.SignalSet{OBVRising: true}, 25},
		{"obv and ad flow", models.SignalSet{OBVRising: true, SmartMoneyFlow: true}, 45},
		{
			"consolidating wyckoff base",
			models.SignalSet{PriceConsolidation: true, WyckoffAccumulation: true},
			45,
		},
		{
			"everything but divergence",
			models.SignalSet{
				OBVRising:           true,
				SmartMoneyFlow:      true,
				PriceConsolidation:  true,
				WyckoffAccumulation: true,
				HighVolumeAtSupport: true,
			},
			100, // raw 105 clamps
		},
	}

	scorer := NewScorer()
	for _, tt := range tests {
		score, err := scorer.Score(TableAccumulation, tt.signals)
		if err != nil {
			t.Fatalf("%s: Score failed: %v", tt.name, err)
		}
		if score.Value != tt.want {
			t.Errorf("%s: Value = %d, want %d", tt.name, score.Value, tt.want)
		}
	}
}

func TestScoreReasoningOrderFollowsTable(t *testing.T) {
	signals := models.SignalSet{OBVRising: true, VolumeDivergence: true}

	score, err := NewScorer().Score(TableAccumulation, signals)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if len(score.Reasoning) != 2 {
		t.Fatalf("Reasoning = %v, want 2 lines", score.Reasoning)
	}
	if score.Reasoning[0] != "OBV trending higher" {
		t.Errorf("first reason = %q", score.Reasoning[0])
	}
	if score.Reasoning[1] != "bullish OBV divergence against price" {
		t.Errorf("second reason = %q", score.Reasoning[1])
	}
}

func TestScoreBreakout(t *testing.T) {
	signals := models.SignalSet{
		VolumeSpike:       true,
		BreakoutCandidate: true,
		RSI:               62,
		PriceVsSMA20:      1.5,
		Volatility:        1.2,
		VolumeRatio:       2.5,
		DailyChangePct:    4.1,
	}

	score, err := NewScorer().Score(TableBreakout, signals)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// spike 25 + compressed 20 + candidate 20 + rsi momentum 15 +
	// near sma 10 + strong move 10 = 100
	if score.Value != 100 {
		t.Errorf("Value = %d, want 100", score.Value)
	}

	// The elevated-volume band must not double count a spike.
	signals.VolumeRatio = 1.6
	signals.VolumeSpike = false
	score, err = NewScorer().Score(TableBreakout, signals)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score.Value != 85 {
		t.Errorf("Value = %d, want 85", score.Value)
	}
}

func TestScoreUnknownTable(t *testing.T) {
	_, err := NewScorer().Score("momentum", models.SignalSet{})
	if !errors.Is(err, ErrUnknownTable) {
		t.Errorf("got %v, want ErrUnknownTable", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	scorer := NewScorer()

	err := scorer.Register(WeightTable{
		Name:  "custom",
		Rules: []WeightRule{{Signal: "no_such_signal", Weight: 10}},
	})
	if err == nil {
		t.Fatal("expected error for unknown signal name")
	}

	if err := scorer.Register(WeightTable{Name: "", Rules: []WeightRule{{Signal: "oversold", Weight: 5}}}); err == nil {
		t.Error("expected error for empty table name")
	}
	if err := scorer.Register(WeightTable{Name: "empty"}); err == nil {
		t.Error("expected error for table without rules")
	}

	custom := WeightTable{
		Name:  "custom",
		Clamp: true,
		Rules: []WeightRule{
			{Signal: "oversold", Weight: 60},
			{Signal: "near_support", Weight: 40},
		},
	}
	if err := scorer.Register(custom); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	score, err := scorer.Score("custom", models.SignalSet{Oversold: true, NearSupport: true, RSI: 22})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score.Value != 100 {
		t.Errorf("Value = %d, want 100", score.Value)
	}
}

func TestScoreAll(t *testing.T) {
	// PriceVsSMA20 sits outside the near-average band so the breakout
	// table stays silent.
	scores := NewScorer().ScoreAll(models.SignalSet{OBVRising: true, PriceVsSMA20: -8})

	if len(scores) != 2 {
		t.Fatalf("ScoreAll returned %d tables, want 2", len(scores))
	}
	if scores[TableAccumulation].Value != 25 {
		t.Errorf("accumulation = %d, want 25", scores[TableAccumulation].Value)
	}
	if scores[TableBreakout].Value != 0 {
		t.Errorf("breakout = %d, want 0", scores[TableBreakout].Value)
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"volflow/internal/models"
)

func plainOutput(buf *bytes.Buffer) *Output {
	return &Output{writer: buf, colorEnabled: false}
}

func TestTableRenderAlignsColumns(t *testing.T) {
	buf := &bytes.Buffer{}
	table := NewTable(plainOutput(buf), "SYMBOL", "SCORE")
	table.AddRow("ACME", "55")
	table.AddRow("LONGNAME", "7")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines (header, separator, 2 rows), got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "SYMBOL    SCORE" {
		t.Errorf("header misaligned: %q", lines[0])
	}
	if lines[2] != "ACME      55" {
		t.Errorf("short row misaligned: %q", lines[2])
	}
	if lines[3] != "LONGNAME  7" {
		t.Errorf("long row misaligned: %q", lines[3])
	}
}

func TestStripANSI(t *testing.T) {
	in := "\x1b[32mGREEN\x1b[0m and \x1b[1;31mBOLD RED\x1b[0m"
	if got := stripANSI(in); got != "GREEN and BOLD RED" {
		t.Errorf("stripANSI = %q", got)
	}
}

func TestScoreTextWithoutColor(t *testing.T) {
	out := plainOutput(&bytes.Buffer{})
	cases := []struct {
		score int
		want  string
	}{
		{85, "85 ***"},
		{65, "65 **"},
		{45, "45 *"},
		{10, "10"},
	}
	for _, tc := range cases {
		if got := out.ScoreText(tc.score); got != tc.want {
			t.Errorf("ScoreText(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestActionWithoutColor(t *testing.T) {
	out := plainOutput(&bytes.Buffer{})
	for _, action := range []models.Action{models.ActionBuy, models.ActionSell, models.ActionHold} {
		if got := out.Action(action); got != string(action) {
			t.Errorf("Action(%s) = %q", action, got)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &Output{writer: buf, jsonMode: true}
	if !out.IsJSON() {
		t.Fatal("IsJSON should be true")
	}
	if err := out.JSON(map[string]int{"score": 55}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded["score"] != 55 {
		t.Errorf("score = %d", decoded["score"])
	}
}

func TestFibLineOrdersRatios(t *testing.T) {
	line := fibLine(map[float64]float64{
		0.618: 97.64,
		0.236: 100.89,
		0.500: 99.00,
	})
	if line != "0.236 100.89  0.500 99.00  0.618 97.64" {
		t.Errorf("fibLine = %q", line)
	}
}

func TestFibLineEmpty(t *testing.T) {
	if got := fibLine(nil); got != "-" {
		t.Errorf("fibLine(nil) = %q", got)
	}
}

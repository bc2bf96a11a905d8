// Package scoring turns analysis signals into bounded composite scores
// driven by named weight tables.
package scoring

import (
	"errors"
	"fmt"
	"sync"

	"volflow/internal/models"
)

// ErrUnknownTable indicates a score was requested for an unregistered
// weight table.
var ErrUnknownTable = errors.New("unknown weight table")

// Scorer evaluates weight tables against a signal set. One scorer instance
// is safe for concurrent use; scoring itself is a pure function of its
// inputs.
type Scorer struct {
	mu     sync.RWMutex
	tables map[string]WeightTable
}

// NewScorer creates a scorer with the built-in accumulation and breakout
// tables registered.
func NewScorer() *Scorer {
	s := &Scorer{tables: make(map[string]WeightTable)}
	// Built-in tables reference known signals only, so registration for
	// them never fails.
	_ = s.Register(AccumulationTable())
	_ = s.Register(BreakoutTable())
	return s
}

// Register adds or replaces a weight table. Every rule must reference a
// known signal predicate; the first unknown name fails the whole table.
func (s *Scorer) Register(table WeightTable) error {
	if table.Name == "" {
		return errors.New("weight table needs a name")
	}
	if len(table.Rules) == 0 {
		return fmt.Errorf("weight table %s has no rules", table.Name)
	}
	for _, rule := range table.Rules {
		if _, ok := predicates[rule.Signal]; !ok {
			return fmt.Errorf("weight table %s references unknown signal %q", table.Name, rule.Signal)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table.Name] = table
	return nil
}

// Tables returns the registered table names.
func (s *Scorer) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}

// Score evaluates the named table against the signals. Matched rules add
// their weight and contribute one reasoning line each, in table order.
// Clamped tables bound the value to [0, 100].
func (s *Scorer) Score(variant string, signals models.SignalSet) (models.Score, error) {
	s.mu.RLock()
	table, ok := s.tables[variant]
	s.mu.RUnlock()
	if !ok {
		return models.Score{}, fmt.Errorf("%w: %s", ErrUnknownTable, variant)
	}

	value := 0
	var reasoning []string
	for _, rule := range table.Rules {
		p := predicates[rule.Signal]
		if p.test(signals) {
			value += rule.Weight
			reasoning = append(reasoning, p.reason(signals))
		}
	}

	if table.Clamp {
		if value > 100 {
			value = 100
		}
		if value < 0 {
			value = 0
		}
	}

	return models.Score{Value: value, Reasoning: reasoning}, nil
}

// ScoreAll evaluates every registered table against the signals, keyed by
// table name.
func (s *Scorer) ScoreAll(signals models.SignalSet) map[string]models.Score {
	s.mu.RLock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	s.mu.RUnlock()

	scores := make(map[string]models.Score, len(names))
	for _, name := range names {
		score, err := s.Score(name, signals)
		if err != nil {
			continue
		}
		scores[name] = score
	}
	return scores
}

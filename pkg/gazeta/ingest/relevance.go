package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
)

// Verdict is the outcome of evaluating a text unit.
type Verdict struct {
	Accepted bool
	Vetoed   bool
	VetoTerm string // first veto term found, if any
	Score    int
}

type weightedTerm struct {
	term   string
	weight int
}

// RelevanceFilter is a two-stage gate: any veto term rejects outright,
// otherwise trigger and reinforcement weights are summed against a
// threshold. Terms are matched on folded (lowercase, accentless) text.
type RelevanceFilter struct {
	veto      []string
	weighted  []weightedTerm
	threshold int
}

// NewRelevanceFilter builds a filter from term tables. Weights must be
// positive and the threshold above zero.
func NewRelevanceFilter(veto []string, triggers, reinforcements map[string]int, threshold int) (*RelevanceFilter, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: score threshold must be positive, got %d", internalerr.ErrInvalidConfig, threshold)
	}
	if len(triggers) == 0 {
		return nil, fmt.Errorf("%w: at least one trigger term is required", internalerr.ErrInvalidConfig)
	}

	f := &RelevanceFilter{threshold: threshold}
	seen := make(map[string]struct{})
	for _, v := range veto {
		v = Fold(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		f.veto = append(f.veto, v)
	}

	weights := make(map[string]int)
	for _, table := range []map[string]int{triggers, reinforcements} {
		for term, w := range table {
			if w <= 0 {
				return nil, fmt.Errorf("%w: weight for %q must be positive, got %d", internalerr.ErrInvalidConfig, term, w)
			}
			key := Fold(strings.TrimSpace(term))
			if key == "" {
				continue
			}
			weights[key] += w
		}
	}
	for term, w := range weights {
		f.weighted = append(f.weighted, weightedTerm{term: term, weight: w})
	}
	// Deterministic order keeps Explain output stable.
	sort.Slice(f.weighted, func(i, j int) bool { return f.weighted[i].term < f.weighted[j].term })

	return f, nil
}

// Evaluate runs both stages over text.
func (f *RelevanceFilter) Evaluate(text string) Verdict {
	folded := Fold(text)
	if term, ok := f.vetoIn(folded); ok {
		return Verdict{Vetoed: true, VetoTerm: term}
	}
	score := f.score(folded)
	return Verdict{Accepted: score >= f.threshold, Score: score}
}

// Veto runs only the veto stage.
func (f *RelevanceFilter) Veto(text string) (string, bool) {
	return f.vetoIn(Fold(text))
}

// Score runs only the scoring stage, ignoring veto terms.
func (f *RelevanceFilter) Score(text string) int {
	return f.score(Fold(text))
}

// Threshold returns the minimum accepted score.
func (f *RelevanceFilter) Threshold() int { return f.threshold }

// Explain lists each weighted term found in text with its contribution.
func (f *RelevanceFilter) Explain(text string) map[string]int {
	folded := Fold(text)
	out := make(map[string]int)
	for _, wt := range f.weighted {
		if n := strings.Count(folded, wt.term); n > 0 {
			out[wt.term] = n * wt.weight
		}
	}
	return out
}

func (f *RelevanceFilter) vetoIn(folded string) (string, bool) {
	for _, v := range f.veto {
		if strings.Contains(folded, v) {
			return v, true
		}
	}
	return "", false
}

func (f *RelevanceFilter) score(folded string) int {
	total := 0
	for _, wt := range f.weighted {
		total += strings.Count(folded, wt.term) * wt.weight
	}
	return total
}

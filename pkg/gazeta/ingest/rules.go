package ingest

import (
	"fmt"
	"regexp"

	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
)

// Name and terminator fragments shared by the default artist rules.
const (
	artistName = `([\p{L}0-9][\p{L}0-9 &'\-]{1,80}?)`
	artistStop = `(?:\s+PARA\b|\s+NO\s+DIA\b|\s+DURANTE\b|\s+NO\s+VALOR\b|\s+VALOR\b|\s+NA\s|\s+NO\s|\s+EM\s|\s+-\s|\s*[,.;:(]|$)`
)

// RuleSpec is the textual form of an artist rule.
type RuleSpec struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// DefaultArtistRules are tried in order; the most specific phrasing first.
var DefaultArtistRules = []RuleSpec{
	{Name: "act", Pattern: `(?i)\b(?:BANDA|DUPLA|GRUPO(?:\s+MUSICAL)?|TRIO|ORQUESTRA|CANTORA?|ARTISTA|DJ|MC)\s+` + artistName + artistStop},
	{Name: "show", Pattern: `(?i)\bSHOWS?(?:\s+ART[IÍ]STICOS?|\s+MUSICA(?:L|IS))?\s+(?:COM|DE|DA|DO|DOS|DAS)\s+(?:(?:O|A|OS|AS)\s+)?` + artistName + artistStop},
	{Name: "performance", Pattern: `(?i)\bAPRESENTA[CÇ](?:[AÃ]O|[OÕ]ES)(?:\s+ART[IÍ]STICAS?|\s+MUSICA(?:L|IS))?\s+(?:DA|DO|DE|DOS|DAS)\s+` + artistName + artistStop},
	{Name: "hiring", Pattern: `(?i)\bCONTRATA[CÇ][AÃ]O\s+(?:DA|DO|DE|DOS|DAS)\s+` + artistName + artistStop},
}

// ArtistMatch is the result of running a rule: either Matched with a
// cleaned name, or the zero value (no match).
type ArtistMatch struct {
	Name    string
	Rule    string
	Matched bool
}

// NoMatch is returned when no rule produced an acceptable name.
var NoMatch = ArtistMatch{}

// Rule is one prioritized artist-name pattern.
type Rule struct {
	Name    string
	pattern *regexp.Regexp
}

// CompileRules compiles rule specs in order. Each pattern needs at least one
// capture group; the first group is the raw name.
func CompileRules(specs []RuleSpec) ([]Rule, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no artist rules", internalerr.ErrInvalidConfig)
	}
	rules := make([]Rule, 0, len(specs))
	for i, s := range specs {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: artist rule %d (%s): %v", internalerr.ErrInvalidConfig, i, s.Name, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("%w: artist rule %d (%s) has no capture group", internalerr.ErrInvalidConfig, i, s.Name)
		}
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("rule%d", i)
		}
		rules = append(rules, Rule{Name: name, pattern: re})
	}
	return rules, nil
}

// candidates returns raw names for this rule in preference order: matches
// in the carried context nearest the anchor first, then matches in the
// fragment's own sentence from left to right. The rest of the body belongs
// to the next contract.
func (r Rule) candidates(f Fragment) []string {
	var out []string
	if f.TrailingContext != "" {
		ctx := r.pattern.FindAllStringSubmatch(f.TrailingContext, -1)
		for i := len(ctx) - 1; i >= 0; i-- {
			out = append(out, ctx[i][1])
		}
	}
	for _, m := range r.pattern.FindAllStringSubmatch(f.Sentence(), -1) {
		out = append(out, m[1])
	}
	return out
}

// RuleChain runs rules in priority order until one yields a name accepted
// by the cleaner.
type RuleChain struct {
	rules []Rule
	clean func(string) (string, bool)
}

// Match returns the first accepted name or NoMatch.
func (c RuleChain) Match(f Fragment) ArtistMatch {
	for _, r := range c.rules {
		for _, raw := range r.candidates(f) {
			if name, ok := c.clean(raw); ok {
				return ArtistMatch{Name: name, Rule: r.Name, Matched: true}
			}
		}
	}
	return NoMatch
}

package ingest

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultMunicipalityPattern matches headers such as
// "PREFEITURA MUNICIPAL DE SÃO JOÃO DEL REI". The first capture group is
// the municipality name.
const DefaultMunicipalityPattern = `(?i:PREFEITURA\s+MUNICIPAL\s+DE)\s+(\p{Lu}[\p{Lu}'\- ]*\p{Lu})`

// DefaultSentinelRegion is attributed to text that precedes any header.
const DefaultSentinelRegion = "REGIÃO DESCONHECIDA"

// MunicipalityMark records that a municipality header was seen on a page.
type MunicipalityMark struct {
	PageIndex int
	Name      string
}

// Block is a run of text attributed to a single municipality.
type Block struct {
	Municipality string
	Text         string
}

// GeographyResolver tracks the current municipality while pages are
// visited in order. Marks are never removed.
type GeographyResolver struct {
	pattern  *regexp.Regexp
	sentinel string
	marks    []MunicipalityMark
}

// NewGeographyResolver creates a resolver. pattern must have one capture
// group holding the municipality name.
func NewGeographyResolver(pattern *regexp.Regexp, sentinel string) *GeographyResolver {
	if sentinel == "" {
		sentinel = DefaultSentinelRegion
	}
	return &GeographyResolver{pattern: pattern, sentinel: sentinel}
}

// Record scans a page for municipality headers and stores a mark for the
// last one found. Pages must be recorded in increasing index order; an
// out-of-order page is ignored so earlier answers never change.
func (g *GeographyResolver) Record(pageIndex int, text string) bool {
	if n := len(g.marks); n > 0 && pageIndex < g.marks[n-1].PageIndex {
		return false
	}
	matches := g.pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return false
	}
	name := normalizeMunicipality(matches[len(matches)-1][1])
	if name == "" {
		return false
	}
	if n := len(g.marks); n > 0 && g.marks[n-1].PageIndex == pageIndex {
		g.marks[n-1].Name = name
		return true
	}
	g.marks = append(g.marks, MunicipalityMark{PageIndex: pageIndex, Name: name})
	return true
}

// Resolve returns the municipality of the latest mark at or before
// pageIndex, or the sentinel region when none precedes it.
func (g *GeographyResolver) Resolve(pageIndex int) string {
	i := sort.Search(len(g.marks), func(i int) bool {
		return g.marks[i].PageIndex > pageIndex
	})
	if i == 0 {
		return g.sentinel
	}
	return g.marks[i-1].Name
}

// SplitBlocks cuts text at every municipality header. Text before the
// first header belongs to fallback. Empty blocks are dropped.
func (g *GeographyResolver) SplitBlocks(text, fallback string) []Block {
	locs := g.pattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []Block{{Municipality: fallback, Text: text}}
	}

	var blocks []Block
	if head := text[:locs[0][0]]; strings.TrimSpace(head) != "" {
		blocks = append(blocks, Block{Municipality: fallback, Text: head})
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		name := normalizeMunicipality(text[loc[2]:loc[3]])
		if name == "" {
			name = fallback
		}
		body := text[loc[1]:end]
		if strings.TrimSpace(body) == "" {
			continue
		}
		blocks = append(blocks, Block{Municipality: name, Text: body})
	}
	return blocks
}

func normalizeMunicipality(name string) string {
	return strings.ToUpper(CollapseSpace(strings.Trim(name, " -'")))
}

package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults for extraction limits.
const (
	DefaultValueCeiling   = 850000.0
	DefaultDateOffsetDays = 30
	DefaultMinArtistLen   = 3
	DefaultMaxArtistLen   = 60
	DefaultEventName      = "Evento Municipal"
)

// DefaultArtistBlacklist holds generic words that show up where an artist
// name is expected. A name is rejected when it equals one of these or
// starts with one.
var DefaultArtistBlacklist = []string{
	"empresa", "ltda", "especializada", "produtora", "producoes", "produtor",
	"pessoa", "contratada", "contratado", "contratante", "objeto", "municipio",
	"prefeitura", "secretaria", "artista", "artistas", "artistico", "artistica",
	"show", "shows", "musical", "banda", "consagrado", "consagrada", "servicos",
	"inexigibilidade", "licitacao", "processo", "evento", "eventos", "valor",
}

// DefaultRejectMarkers disqualify a name wherever they appear in it.
var DefaultRejectMarkers = []string{"extrato", "processo", "cnpj", "inexigibilidade"}

// DefaultEventNamePattern captures the festivity a show belongs to.
const DefaultEventNamePattern = `(?i)\b((?:FESTA\s+(?:DE|DO|DA|DOS|DAS)|CARNAVAL|ANIVERS[AÁ]RIO|EXPO|FESTIVAL)(?:\s+[\p{L}0-9]+){0,6}?)(?:\s*[.,;:(]|\s+NO\s+MUNIC[IÍ]PIO|\s+-\s|$)`

var (
	numericDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	textualDate = regexp.MustCompile(`(?i)\b(\d{1,2})(?:º|°)?\s+DE\s+(\p{L}+)\s+DE\s+(\d{4})\b`)
	amount      = regexp.MustCompile(`R\$\s*(\d{1,3}(?:\.?\d{3})*,\d{2})`)

	trailingTaxID = regexp.MustCompile(`(?i)(?:[\s,\-]+(?:CNPJ|CPF|INSCRIT[AO])?[\s:nº°.]*[\d][\d./\-]*)+\s*$`)
	legalSuffix   = regexp.MustCompile(`(?i)(?:\s+(?:LTDA|EIRELI|EPP|ME|MEI|S/?A))+\.?$`)
)

var months = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February, "marco": time.March,
	"abril": time.April, "maio": time.May, "junho": time.June,
	"julho": time.July, "agosto": time.August, "setembro": time.September,
	"outubro": time.October, "novembro": time.November, "dezembro": time.December,
}

// ExtractorOptions configures an EntityExtractor.
type ExtractorOptions struct {
	Rules            []Rule
	Blacklist        []string
	RejectMarkers    []string
	MinArtistLen     int
	MaxArtistLen     int
	ValueCeiling     float64
	DateOffsetDays   int
	AcceptPastDates  bool
	EventNamePattern *regexp.Regexp
	Now              func() time.Time
}

// Extraction holds everything recovered from one fragment.
type Extraction struct {
	Artist        ArtistMatch
	Value         float64
	ValueRejected bool // amount found but above the ceiling
	Date          time.Time
	DateEstimated bool
	EventName     string
}

// EntityExtractor recovers artist, value, date and festivity name from a
// fragment.
type EntityExtractor struct {
	chain      RuleChain
	blacklist  map[string]struct{}
	markers    []string
	minLen     int
	maxLen     int
	ceiling    float64
	offset     time.Duration
	acceptPast bool
	eventName  *regexp.Regexp
	now        func() time.Time
}

// NewEntityExtractor creates an extractor, filling zero options with the
// package defaults. DateOffsetDays is used as given: zero places estimated
// dates at the moment of extraction.
func NewEntityExtractor(opts ExtractorOptions) *EntityExtractor {
	if opts.MinArtistLen <= 0 {
		opts.MinArtistLen = DefaultMinArtistLen
	}
	if opts.MaxArtistLen <= 0 {
		opts.MaxArtistLen = DefaultMaxArtistLen
	}
	if opts.ValueCeiling <= 0 {
		opts.ValueCeiling = DefaultValueCeiling
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.EventNamePattern == nil {
		opts.EventNamePattern = regexp.MustCompile(DefaultEventNamePattern)
	}
	if opts.Rules == nil {
		opts.Rules, _ = CompileRules(DefaultArtistRules)
	}
	if opts.Blacklist == nil {
		opts.Blacklist = DefaultArtistBlacklist
	}
	if opts.RejectMarkers == nil {
		opts.RejectMarkers = DefaultRejectMarkers
	}

	e := &EntityExtractor{
		blacklist:  make(map[string]struct{}, len(opts.Blacklist)),
		minLen:     opts.MinArtistLen,
		maxLen:     opts.MaxArtistLen,
		ceiling:    opts.ValueCeiling,
		offset:     time.Duration(opts.DateOffsetDays) * 24 * time.Hour,
		acceptPast: opts.AcceptPastDates,
		eventName:  opts.EventNamePattern,
		now:        opts.Now,
	}
	for _, w := range opts.Blacklist {
		e.blacklist[Fold(strings.TrimSpace(w))] = struct{}{}
	}
	for _, m := range opts.RejectMarkers {
		if m = Fold(strings.TrimSpace(m)); m != "" {
			e.markers = append(e.markers, m)
		}
	}
	e.chain = RuleChain{rules: opts.Rules, clean: e.CleanName}
	return e
}

// Extract runs every extraction over a fragment. A fragment without an
// artist still returns its value and date; callers decide to skip it.
func (e *EntityExtractor) Extract(f Fragment) Extraction {
	var out Extraction
	out.Artist = e.chain.Match(f)
	out.Value, out.ValueRejected = e.Value(f.Text)
	out.Date, out.DateEstimated = e.Date(f)
	out.EventName = e.EventName(f)
	return out
}

// Artist runs the rule chain alone.
func (e *EntityExtractor) Artist(f Fragment) ArtistMatch {
	return e.chain.Match(f)
}

// CleanName normalizes a raw capture and reports whether it is acceptable.
func (e *EntityExtractor) CleanName(raw string) (string, bool) {
	name := CollapseSpace(raw)
	name = trailingTaxID.ReplaceAllString(name, "")
	name = legalSuffix.ReplaceAllString(name, "")
	name = strings.Trim(name, " -&'.,;:/")
	name = CollapseSpace(name)

	n := utf8.RuneCountInString(name)
	if n < e.minLen || n > e.maxLen {
		return "", false
	}

	folded := Fold(name)
	for _, m := range e.markers {
		if strings.Contains(folded, m) {
			return "", false
		}
	}
	if _, bad := e.blacklist[folded]; bad {
		return "", false
	}
	if first, _, _ := strings.Cut(folded, " "); first != folded {
		if _, bad := e.blacklist[first]; bad {
			return "", false
		}
	}

	return titleCase(name), true
}

// Value parses the first currency amount in text. Amounts above the
// ceiling are reported as rejected and valued at zero.
func (e *EntityExtractor) Value(text string) (float64, bool) {
	m := amount.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, ok := ParseAmount(m[1])
	if !ok {
		return 0, false
	}
	if v > e.ceiling {
		return 0, true
	}
	return v, false
}

// ParseAmount converts "1.234,56" into 1234.56.
func ParseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Date finds the event date in the fragment body, then in its carried
// context. Textual dates win over numeric ones. When nothing usable is
// found the date is now plus the configured offset and estimated is true.
func (e *EntityExtractor) Date(f Fragment) (date time.Time, estimated bool) {
	now := e.now()
	for _, text := range []string{f.Text, f.TrailingContext} {
		if text == "" {
			continue
		}
		if d, ok := e.textualDate(text, now); ok {
			return d, false
		}
		if d, ok := e.numericDate(text, now); ok {
			return d, false
		}
	}
	return now.Add(e.offset), true
}

func (e *EntityExtractor) textualDate(text string, now time.Time) (time.Time, bool) {
	for _, m := range textualDate.FindAllStringSubmatch(text, -1) {
		month, ok := months[Fold(m[2])]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if d, ok := e.validDate(year, month, day, now); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func (e *EntityExtractor) numericDate(text string, now time.Time) (time.Time, bool) {
	for _, m := range numericDate.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 {
			continue
		}
		if d, ok := e.validDate(year, time.Month(month), day, now); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// validDate rejects impossible calendar dates (time.Date would normalize
// 31/02 into March) and, unless configured otherwise, past dates.
func (e *EntityExtractor) validDate(year int, month time.Month, day int, now time.Time) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	if !e.acceptPast && !d.After(now) {
		return time.Time{}, false
	}
	return d, true
}

// EventName returns the festivity the fragment refers to, or
// DefaultEventName.
func (e *EntityExtractor) EventName(f Fragment) string {
	for _, text := range []string{f.Text, f.TrailingContext} {
		if m := e.eventName.FindStringSubmatch(text); m != nil {
			if name := strings.Trim(CollapseSpace(m[1]), " -.,"); name != "" {
				return titleCase(name)
			}
		}
	}
	return DefaultEventName
}

// titleCase builds a fresh Caser per call; Casers are stateful and the
// extractor is shared between concurrent runs.
func titleCase(s string) string {
	return cases.Title(language.BrazilianPortuguese).String(s)
}

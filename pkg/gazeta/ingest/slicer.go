package ingest

import (
	"regexp"
	"strings"
)

var (
	// currencyAnchor matches Brazilian currency amounts such as "R$ 12.500,00".
	currencyAnchor = regexp.MustCompile(`R\$\s*\d{1,3}(?:\.?\d{3})*,\d{2}`)
	sentenceEnd    = regexp.MustCompile(`[.;]\s`)
)

// Fragment is the smallest unit evaluated for extraction. Text starts at a
// currency anchor; TrailingContext carries the tail of whatever preceded it.
type Fragment struct {
	Text            string
	Municipality    string
	TrailingContext string
	// Preamble is everything between the previous anchor's own sentence
	// and this anchor, uncapped.
	Preamble string
	Anchored bool // Text starts with a currency amount
}

// Full returns the carried context followed by the fragment text.
func (f Fragment) Full() string {
	if f.TrailingContext == "" {
		return f.Text
	}
	return f.TrailingContext + " " + f.Text
}

// Sentence returns the first sentence of an anchored fragment: the part
// that describes this fragment's own contract. Text after it usually
// introduces the next contract. Unanchored fragments return all their text.
func (f Fragment) Sentence() string {
	if !f.Anchored {
		return f.Text
	}
	if loc := sentenceEnd.FindStringIndex(f.Text); loc != nil {
		return f.Text[:loc[0]+1]
	}
	return f.Text
}

// Lead returns the carried context plus the fragment's own sentence.
func (f Fragment) Lead() string {
	if f.TrailingContext == "" {
		return f.Sentence()
	}
	return f.TrailingContext + " " + f.Sentence()
}

// BlockSlicer splits municipality blocks into money-anchored fragments so
// several contracts on one page are evaluated independently.
type BlockSlicer struct {
	carry int
}

// NewBlockSlicer creates a slicer that carries the last carry characters
// of the preceding fragment into each fragment.
func NewBlockSlicer(carry int) *BlockSlicer {
	if carry < 0 {
		carry = 0
	}
	return &BlockSlicer{carry: carry}
}

// Slice cuts a block at every currency anchor. The text before the first
// anchor only feeds the first fragment's context. A block without anchors
// yields a single fragment holding the whole block.
func (s *BlockSlicer) Slice(b Block) []Fragment {
	text := CollapseSpace(b.Text)
	if text == "" {
		return nil
	}

	locs := currencyAnchor.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []Fragment{{Text: text, Municipality: b.Municipality}}
	}

	frags := make([]Fragment, 0, len(locs))
	prev := text[:locs[0][0]]
	preamble := prev
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[0]:end])
		frags = append(frags, Fragment{
			Text:            body,
			Municipality:    b.Municipality,
			TrailingContext: strings.TrimSpace(lastRunes(prev, s.carry)),
			Preamble:        strings.TrimSpace(preamble),
			Anchored:        true,
		})
		prev = body
		preamble = afterFirstSentence(body)
	}
	return frags
}

// afterFirstSentence drops the leading sentence of s, or all of s when it
// has only one.
func afterFirstSentence(s string) string {
	loc := sentenceEnd.FindStringIndex(s)
	if loc == nil {
		return ""
	}
	return s[loc[1]:]
}

package ingest

import "strings"

// Event categories.
const (
	CategoryCarnival    = "carnival"
	CategoryFestaJunina = "festa_junina"
	CategoryAnniversary = "anniversary"
	CategoryFestival    = "festival"
	CategoryShow        = "show"
)

// Category maps a tag to the substrings that define it.
type Category struct {
	Tag   string   `yaml:"tag"`
	Terms []string `yaml:"terms"`
}

// DefaultCategories are checked most specific first.
var DefaultCategories = []Category{
	{Tag: CategoryCarnival, Terms: []string{"carnaval", "carnavalesco", "rei momo"}},
	{Tag: CategoryFestaJunina, Terms: []string{"festa junina", "festa julina", "junina", "julina", "arraia", "quadrilha junina"}},
	{Tag: CategoryAnniversary, Terms: []string{"aniversario", "emancipacao politica"}},
	{Tag: CategoryFestival, Terms: []string{"festival", "exposicao agropecuaria", "rodeio", "festa do peao"}},
}

// Classifier assigns one category to a fragment. The first category with a
// matching term wins; Fallback is used when none match.
type Classifier struct {
	categories []Category
	fallback   string
}

// NewClassifier creates a classifier over categories in priority order.
func NewClassifier(categories []Category, fallback string) *Classifier {
	if fallback == "" {
		fallback = CategoryShow
	}
	c := &Classifier{fallback: fallback}
	for _, cat := range categories {
		terms := make([]string, 0, len(cat.Terms))
		for _, t := range cat.Terms {
			if t = Fold(strings.TrimSpace(t)); t != "" {
				terms = append(terms, t)
			}
		}
		c.categories = append(c.categories, Category{Tag: cat.Tag, Terms: terms})
	}
	return c
}

// Classify returns the category tag for text.
func (c *Classifier) Classify(text string) string {
	folded := Fold(text)
	for _, cat := range c.categories {
		for _, t := range cat.Terms {
			if strings.Contains(folded, t) {
				return cat.Tag
			}
		}
	}
	return c.fallback
}

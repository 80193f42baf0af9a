package emotion

import (
	"strings"
)

// Tag is the classified affect of a message. Composite tags join several
// labels with ", " and are treated as a single opaque value.
type Tag string

const (
	Greeting Tag = "greeting"
	Food     Tag = "food"
	Sadness  Tag = "sadness"
	Cooking  Tag = "cooking"
	Self     Tag = "self"
	General  Tag = "general"
)

// Secondary labels refining the sadness category.
const (
	Fatigue = "fatigue"
	Worry   = "worry"
)

// distressMarkers identify tags that express sadness or distress. The
// Russian label keeps tags produced by older clients recognisable.
var distressMarkers = []string{string(Sadness), "distress", "грусть"}

// HasDistress reports whether the tag carries a sadness/distress marker.
func HasDistress(tag Tag) bool {
	lowered := strings.ToLower(string(tag))
	for _, marker := range distressMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// Contains reports whether the tag mentions label, composite tags included.
func (t Tag) Contains(label Tag) bool {
	return strings.Contains(strings.ToLower(string(t)), string(label))
}

// Marker is a secondary keyword set evaluated only after its rule matched.
type Marker struct {
	Label    string   `toml:"label"`
	Keywords []string `toml:"keywords"`
}

// Rule binds a category to the substrings that select it.
type Rule struct {
	Category  Tag      `toml:"category"`
	Keywords  []string `toml:"keywords"`
	Secondary []Marker `toml:"secondary"`
}

// Analyzer classifies text against an ordered rule list; the first rule with
// a matching keyword wins.
type Analyzer struct {
	rules []Rule
}

// NewAnalyzer returns an analyzer over a normalized copy of rules. A nil or
// empty list falls back to DefaultRules.
func NewAnalyzer(rules []Rule) *Analyzer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	normalized := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if strings.TrimSpace(string(rule.Category)) == "" {
			continue
		}
		r := Rule{
			Category: Tag(strings.ToLower(strings.TrimSpace(string(rule.Category)))),
			Keywords: normalizeKeywords(rule.Keywords),
		}
		for _, marker := range rule.Secondary {
			label := strings.TrimSpace(marker.Label)
			if label == "" {
				continue
			}
			r.Secondary = append(r.Secondary, Marker{Label: label, Keywords: normalizeKeywords(marker.Keywords)})
		}
		normalized = append(normalized, r)
	}
	return &Analyzer{rules: normalized}
}

// Rules returns a copy of the active rules.
func (a *Analyzer) Rules() []Rule {
	return append([]Rule(nil), a.rules...)
}

// Classify returns the tag of the first matching rule, or General.
func (a *Analyzer) Classify(text string) Tag {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return General
	}

	for _, rule := range a.rules {
		if !containsAny(normalized, rule.Keywords) {
			continue
		}

		labels := []string{string(rule.Category)}
		for _, marker := range rule.Secondary {
			if containsAny(normalized, marker.Keywords) {
				labels = append(labels, marker.Label)
			}
		}
		return Tag(strings.Join(labels, ", "))
	}
	return General
}

func containsAny(text string, keywords []string) bool {
	for _, word := range keywords {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

func normalizeKeywords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		out = append(out, word)
	}
	return out
}

// DefaultRules is the built-in table, in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category: Greeting,
			Keywords: []string{"привет", "здравствуй", "добро", "салют", "хай", "hello", "hi"},
		},
		{
			Category: Food,
			Keywords: []string{"еда", "готовить", "рецепт", "кухня", "блюдо", "вкусно", "голодн", "поесть", "покушать"},
		},
		{
			Category: Sadness,
			Keywords: []string{"грустн", "плох", "устал", "проблем", "беспокой", "печальн", "тревож", "сложн", "тоск", "одинок"},
			Secondary: []Marker{
				{Label: Fatigue, Keywords: []string{"устал", "утомл", "выдохл", "нет сил", "сонн"}},
				{Label: Worry, Keywords: []string{"беспокой", "тревож", "волну", "боюсь", "страшн"}},
			},
		},
		{
			Category: Cooking,
			Keywords: []string{"готов", "варить", "жарить", "печь", "кулинар", "повар"},
		},
		{
			Category: Self,
			Keywords: []string{"ты кто", "расскажи о себе", "что ты", "кто ты", "твоя работа", "гостиниц"},
		},
	}
}

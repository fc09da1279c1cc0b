// Package reviews produces a best-effort thematic summary of review
// snippets. It is a keyword scan over polarity-partitioned review text,
// not a sentiment model.
package reviews

import (
	"fmt"
	"math"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"dineahead/internal/restaurant"
)

type theme struct {
	name     string
	topic    string // how the theme reads inside a sentence
	positive []string
	negative []string
}

var themes = []theme{
	{
		name:     "food",
		topic:    "the food",
		positive: []string{"delicious", "tasty", "fresh", "flavorful", "amazing food", "best meal", "cooked perfectly", "mouthwatering"},
		negative: []string{"bland", "overcooked", "undercooked", "stale", "tasteless", "soggy", "greasy"},
	},
	{
		name:     "service",
		topic:    "the service",
		positive: []string{"friendly staff", "attentive", "great service", "helpful", "welcoming", "quick service"},
		negative: []string{"rude", "slow service", "ignored", "unhelpful", "terrible service", "long wait"},
	},
	{
		name:     "atmosphere",
		topic:    "the atmosphere",
		positive: []string{"cozy", "great ambiance", "lovely atmosphere", "charming", "beautiful space", "relaxing"},
		negative: []string{"noisy", "cramped", "dirty", "loud music", "uncomfortable seating"},
	},
	{
		name:     "value",
		topic:    "value for money",
		positive: []string{"great value", "worth every penny", "reasonably priced", "affordable", "generous for the price"},
		negative: []string{"overpriced", "too expensive", "not worth", "rip-off", "pricey for what"},
	},
	{
		name:     "portions",
		topic:    "portion sizes",
		positive: []string{"generous portions", "huge portions", "big servings", "plenty of food"},
		negative: []string{"small portions", "tiny portions", "left hungry", "skimpy"},
	},
}

var dishNames = []string{
	"burger", "sushi", "tacos", "pizza", "pasta", "ramen", "curry",
	"dumplings", "wings", "steak", "sandwich", "salad", "pho", "burrito",
	"noodles", "pancakes", "brunch plate", "fried chicken",
}

var (
	themeMatchers map[string][2]ahocorasick.AhoCorasick // name -> [positive, negative]
	dishMatcher   ahocorasick.AhoCorasick
)

func init() {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	themeMatchers = make(map[string][2]ahocorasick.AhoCorasick, len(themes))
	for _, th := range themes {
		themeMatchers[th.name] = [2]ahocorasick.AhoCorasick{
			builder.Build(th.positive),
			builder.Build(th.negative),
		}
	}
	dishMatcher = builder.Build(dishNames)
}

const (
	positiveFloor = 4.0 // rating >= 4 lands in the positive pool
	negativeCeil  = 2.0 // rating <= 2 lands in the negative pool
	maxDishes     = 3
)

var genericSummary = []string{
	"Diners generally report a solid experience here.",
	"Reviews don't call out strong themes either way.",
	"Check the individual review snippets for details.",
}

// Summarize composes one prose sentence per detected theme from the
// snippets, falling back to a fixed generic summary when nothing is found.
func Summarize(snippets []restaurant.ReviewSnippet) []string {
	positivePool, negativePool, corpus := partition(snippets)

	var sentences []string
	for _, th := range themes {
		matchers := themeMatchers[th.name]
		posHits := matchedPhrases(matchers[0], th.positive, positivePool)
		negHits := matchedPhrases(matchers[1], th.negative, negativePool)

		sentence := composeSentence(th, posHits, negHits)
		if sentence == "" {
			continue
		}
		if th.name == "food" {
			if dishes := detectDishes(corpus, positivePool); len(dishes) > 0 {
				sentence += " Mentions of " + joinNatural(dishes) + " come up often."
			}
		}
		sentences = append(sentences, sentence)
	}

	if len(sentences) == 0 {
		return append([]string(nil), genericSummary...)
	}
	return sentences
}

// partition splits snippet text into polarity pools. Unrated snippets and
// 3-star snippets belong to neither pool, only to the aggregate corpus.
func partition(snippets []restaurant.ReviewSnippet) (positive, negative, corpus string) {
	var pos, neg, all []string
	for _, s := range snippets {
		if s.Text == "" {
			continue
		}
		all = append(all, s.Text)
		if s.Rating == nil {
			continue
		}
		switch {
		case *s.Rating >= positiveFloor:
			pos = append(pos, s.Text)
		case *s.Rating <= negativeCeil:
			neg = append(neg, s.Text)
		}
	}
	return strings.ToLower(strings.Join(pos, " ")),
		strings.ToLower(strings.Join(neg, " ")),
		strings.ToLower(strings.Join(all, " "))
}

// matchedPhrases returns the distinct phrases from the list that occur in
// the pool text, in list order.
func matchedPhrases(m ahocorasick.AhoCorasick, phrases []string, pool string) []string {
	if pool == "" {
		return nil
	}
	seen := make(map[int]bool)
	for _, match := range m.FindAll(pool) {
		seen[match.Pattern()] = true
	}
	var hits []string
	for i, phrase := range phrases {
		if seen[i] {
			hits = append(hits, phrase)
		}
	}
	return hits
}

func composeSentence(th theme, posHits, negHits []string) string {
	pos, neg := len(posHits), len(negHits)
	switch {
	case pos > 2*neg && pos > 0:
		return fmt.Sprintf("Reviewers are happy with %s, with comments like %q.", th.topic, posHits[0])
	case neg > 2*pos && neg > 0:
		return fmt.Sprintf("Several reviewers take issue with %s, mentioning %q.", th.topic, negHits[0])
	case pos > 0 && neg > 0:
		return fmt.Sprintf("Opinions on %s are mixed: some say %q while others say %q.", th.topic, posHits[0], negHits[0])
	default:
		return ""
	}
}

// detectDishes finds named dishes anywhere in the corpus, listing ones
// seen in the positive pool first.
func detectDishes(corpus, positivePool string) []string {
	if corpus == "" {
		return nil
	}
	inCorpus := make(map[int]bool)
	for _, match := range dishMatcher.FindAll(corpus) {
		inCorpus[match.Pattern()] = true
	}
	inPositive := make(map[int]bool)
	if positivePool != "" {
		for _, match := range dishMatcher.FindAll(positivePool) {
			inPositive[match.Pattern()] = true
		}
	}

	var preferred, rest []string
	for i, dish := range dishNames {
		if !inCorpus[i] {
			continue
		}
		if inPositive[i] {
			preferred = append(preferred, dish)
		} else {
			rest = append(rest, dish)
		}
	}
	dishes := append(preferred, rest...)
	if len(dishes) > maxDishes {
		dishes = dishes[:maxDishes]
	}
	return dishes
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

// RatingBucket is one star level's share of the rated snippets.
type RatingBucket struct {
	Rating     int `json:"rating"`
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

// RatingDistribution buckets the rated snippets per star, highest first.
// Buckets with no reviews are omitted. Percentages are rounded and may
// not sum to exactly 100.
func RatingDistribution(snippets []restaurant.ReviewSnippet) []RatingBucket {
	counts := make(map[int]int)
	total := 0
	for _, s := range snippets {
		if s.Rating == nil {
			continue
		}
		star := int(math.Round(*s.Rating))
		if star < 1 {
			star = 1
		}
		if star > 5 {
			star = 5
		}
		counts[star]++
		total++
	}
	if total == 0 {
		return nil
	}

	var buckets []RatingBucket
	for star := 5; star >= 1; star-- {
		if counts[star] == 0 {
			continue
		}
		buckets = append(buckets, RatingBucket{
			Rating:     star,
			Count:      counts[star],
			Percentage: int(math.Round(float64(counts[star]) / float64(total) * 100)),
		})
	}
	return buckets
}

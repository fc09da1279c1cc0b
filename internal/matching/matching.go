// Package matching scores how well a restaurant fits the user's
// preferences and filters. The score is an unweighted ratio over a list
// of independent labeled indicators.
package matching

import (
	"fmt"
	"math"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"dineahead/internal/restaurant"
)

var dietaryKeywords = map[restaurant.DietaryType][]string{
	restaurant.DietVegetarian:    {"vegetarian", "vegan", "veggie", "plant"},
	restaurant.DietVegan:         {"vegan", "plant-based", "plant"},
	restaurant.DietNonVegetarian: {"steakhouse", "bbq", "burger", "chicken", "seafood", "meat"},
	restaurant.DietPescatarian:   {"seafood", "fish", "sushi", "poke"},
	restaurant.DietHalal:         {"halal", "middle eastern", "mediterranean", "turkish"},
	restaurant.DietKosher:        {"kosher", "jewish", "deli"},
}

var dietaryMatchers map[restaurant.DietaryType]ahocorasick.AhoCorasick

func init() {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	dietaryMatchers = make(map[restaurant.DietaryType]ahocorasick.AhoCorasick, len(dietaryKeywords))
	for diet, keywords := range dietaryKeywords {
		dietaryMatchers[diet] = builder.Build(keywords)
	}
}

const topRatedThreshold = 4.5

// Indicators returns the ordered list of labeled match signals for a
// restaurant. Indicators with no opinion (unknown distance, no dietary
// preference set) are omitted rather than emitted unmatched.
func Indicators(r restaurant.Restaurant, prefs restaurant.UserPreferences, filters restaurant.Filters) []restaurant.MatchIndicator {
	var indicators []restaurant.MatchIndicator
	cuisineLower := strings.ToLower(r.Cuisine)

	if prefs.Dietary != restaurant.DietNone {
		matched := false
		if m, ok := dietaryMatchers[prefs.Dietary]; ok {
			iter := m.Iter(cuisineLower)
			matched = iter.Next() != nil
		}
		if !matched {
			matched = strings.Contains(strings.ToLower(r.Summaries.Short), string(prefs.Dietary))
		}
		icon := "?"
		if matched {
			icon = "✓"
		}
		indicators = append(indicators, restaurant.MatchIndicator{
			Label:   string(prefs.Dietary),
			Matched: matched,
			Icon:    icon,
		})
	}

	for _, liked := range prefs.CuisineLikes {
		if strings.Contains(cuisineLower, strings.ToLower(liked)) {
			indicators = append(indicators, restaurant.MatchIndicator{
				Label:   liked,
				Matched: true,
				Icon:    "♥",
			})
			break
		}
	}

	for _, disliked := range prefs.CuisineDislikes {
		if strings.Contains(cuisineLower, strings.ToLower(disliked)) {
			indicators = append(indicators, restaurant.MatchIndicator{
				Label:   "Not " + disliked,
				Matched: false,
				Icon:    "✗",
			})
			break
		}
	}

	withinBudget := float64(r.EstimatedCost) <= filters.PerMealBudget()
	indicators = append(indicators, restaurant.MatchIndicator{
		Label:   fmt.Sprintf("$%d/meal", r.EstimatedCost),
		Matched: withinBudget,
		Icon:    budgetIcon(withinBudget),
	})

	if r.DistanceMiles > 0 {
		withinDistance := r.DistanceMiles <= float64(filters.Distance)
		indicators = append(indicators, restaurant.MatchIndicator{
			Label:   r.Distance,
			Matched: withinDistance,
			Icon:    budgetIcon(withinDistance),
		})
	}

	if r.Rating >= topRatedThreshold {
		indicators = append(indicators, restaurant.MatchIndicator{
			Label:   "Top Rated",
			Matched: true,
			Icon:    "★",
		})
	}

	return indicators
}

func budgetIcon(ok bool) string {
	if ok {
		return "✓"
	}
	return "⚠"
}

// Score returns the 0-100 compatibility score: the rounded share of
// matched indicators. An empty indicator list scores 0, never NaN.
func Score(r restaurant.Restaurant, prefs restaurant.UserPreferences, filters restaurant.Filters) int {
	indicators := Indicators(r, prefs, filters)
	matched := 0
	for _, ind := range indicators {
		if ind.Matched {
			matched++
		}
	}
	total := len(indicators)
	if total < 1 {
		total = 1
	}
	return int(math.Round(float64(matched) / float64(total) * 100))
}

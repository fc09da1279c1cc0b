// Package query turns a raw chat message plus structured preferences into
// the enriched natural-language query sent to the restaurant-search API.
package query

import (
	"fmt"
	"math"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"dineahead/internal/restaurant"
)

// Intent classifies what the user asked for. Checks run in priority
// order; the first hit wins.
type Intent string

const (
	IntentMeal     Intent = "meal"      // a specific meal time
	IntentPlanDay  Intent = "plan-day"  // all three meals of one day
	IntentPlanWeek Intent = "plan-week" // the whole week
	IntentCheap    Intent = "cheap"
	IntentFancy    Intent = "fancy"
	IntentCuisine  Intent = "cuisine"
	IntentDefault  Intent = "default"
)

// Request is the classified message plus the synthesized query string.
type Request struct {
	Intent  Intent
	Meal    restaurant.MealTime // set for IntentMeal
	Day     string              // set for IntentPlanDay
	Cuisine string              // set for IntentCuisine
	Query   string
}

var (
	breakfastWords = []string{"breakfast", "brunch", "morning", "cafe", "coffee"}
	lunchWords     = []string{"lunch", "midday", "noon", "quick bite"}
	dinnerWords    = []string{"dinner", "evening", "supper", "night"}
	cheapWords     = []string{"cheap", "budget", "affordable"}
	fancyWords     = []string{"fancy", "nice", "special", "upscale"}
	dayNames       = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	cuisineNames   = []string{
		"italian", "mexican", "chinese", "japanese", "indian", "thai",
		"korean", "vietnamese", "mediterranean", "greek", "french", "american",
	}
)

var (
	breakfastMatcher ahocorasick.AhoCorasick
	lunchMatcher     ahocorasick.AhoCorasick
	dinnerMatcher    ahocorasick.AhoCorasick
	cheapMatcher     ahocorasick.AhoCorasick
	fancyMatcher     ahocorasick.AhoCorasick
	dayMatcher       ahocorasick.AhoCorasick
	cuisineMatcher   ahocorasick.AhoCorasick
)

func init() {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	breakfastMatcher = builder.Build(breakfastWords)
	lunchMatcher = builder.Build(lunchWords)
	dinnerMatcher = builder.Build(dinnerWords)
	cheapMatcher = builder.Build(cheapWords)
	fancyMatcher = builder.Build(fancyWords)
	dayMatcher = builder.Build(dayNames)
	cuisineMatcher = builder.Build(cuisineNames)
}

// Per-meal price band multipliers applied to the per-meal budget.
var mealBand = map[restaurant.MealTime]float64{
	restaurant.Breakfast: 0.7,
	restaurant.Lunch:     1.0,
	restaurant.Dinner:    1.5,
}

// Build classifies the message and synthesizes the enriched query.
func Build(message string, prefs restaurant.UserPreferences, filters restaurant.Filters) Request {
	lower := strings.ToLower(message)
	context := preferenceContext(prefs, filters)
	perMeal := int(math.Round(filters.PerMealBudget()))

	if meal, ok := detectMeal(lower); ok {
		band := int(math.Round(filters.PerMealBudget() * mealBand[meal]))
		return Request{
			Intent: IntentMeal,
			Meal:   meal,
			Query: fmt.Sprintf("Find %s spots around $%d per person. %s %s",
				meal, band, context, message),
		}
	}

	if strings.Contains(lower, "plan") {
		if day, ok := firstMatch(dayMatcher, lower, dayNames); ok {
			return Request{
				Intent: IntentPlanDay,
				Day:    day,
				Query: fmt.Sprintf("Plan a full day of meals for %s: one breakfast spot around $%d, one lunch spot around $%d, and one dinner spot around $%d. %s",
					capitalize(day),
					int(math.Round(filters.PerMealBudget()*mealBand[restaurant.Breakfast])),
					int(math.Round(filters.PerMealBudget()*mealBand[restaurant.Lunch])),
					int(math.Round(filters.PerMealBudget()*mealBand[restaurant.Dinner])),
					context),
			}
		}
		if strings.Contains(lower, "week") || strings.Contains(lower, "whole") {
			return Request{
				Intent: IntentPlanWeek,
				Query: fmt.Sprintf("Find 7 different restaurants for a weekly meal plan. I need variety - different cuisines each day, around $%d per meal. %s Give me diverse options that fit my preferences.",
					perMeal, context),
			}
		}
	}

	if hasMatch(cheapMatcher, lower) {
		ceiling := perMeal
		if ceiling > 12 {
			ceiling = 12
		}
		return Request{
			Intent: IntentCheap,
			Query: fmt.Sprintf("Find affordable restaurants under $%d per meal in %s. %s %s",
				ceiling, filters.Location, dietaryClause(prefs), message),
		}
	}

	if hasMatch(fancyMatcher, lower) {
		return Request{
			Intent: IntentFancy,
			Query: fmt.Sprintf("Find upscale, special-occasion restaurants. %s %s",
				context, message),
		}
	}

	if cuisine, ok := firstMatch(cuisineMatcher, lower, cuisineNames); ok {
		return Request{
			Intent:  IntentCuisine,
			Cuisine: cuisine,
			Query:   fmt.Sprintf("Find the best %s restaurants. %s", cuisine, context),
		}
	}

	return Request{
		Intent: IntentDefault,
		Query:  fmt.Sprintf("%s. Around $%d per meal. %s", message, perMeal, context),
	}
}

func detectMeal(lower string) (restaurant.MealTime, bool) {
	switch {
	case hasMatch(breakfastMatcher, lower):
		return restaurant.Breakfast, true
	case hasMatch(lunchMatcher, lower):
		return restaurant.Lunch, true
	case hasMatch(dinnerMatcher, lower):
		return restaurant.Dinner, true
	}
	return "", false
}

func hasMatch(m ahocorasick.AhoCorasick, text string) bool {
	iter := m.Iter(text)
	return iter.Next() != nil
}

func firstMatch(m ahocorasick.AhoCorasick, text string, patterns []string) (string, bool) {
	iter := m.Iter(text)
	if match := iter.Next(); match != nil {
		return patterns[match.Pattern()], true
	}
	return "", false
}

const (
	maxLikedCuisines    = 3
	maxDislikedCuisines = 2
)

// preferenceContext is the structured suffix every branch appends.
func preferenceContext(prefs restaurant.UserPreferences, filters restaurant.Filters) string {
	parts := []string{
		"Location: " + filters.Location,
		fmt.Sprintf("Within %d miles", filters.Distance),
	}
	if prefs.Dietary != restaurant.DietNone {
		parts = append(parts, fmt.Sprintf("Dietary: %s only", prefs.Dietary))
	}
	if len(prefs.Allergens) > 0 {
		parts = append(parts, "Must avoid: "+strings.Join(prefs.Allergens, ", "))
	}
	if liked := limit(prefs.CuisineLikes, maxLikedCuisines); len(liked) > 0 {
		parts = append(parts, "Preferred cuisines: "+strings.Join(liked, ", "))
	}
	if disliked := limit(prefs.CuisineDislikes, maxDislikedCuisines); len(disliked) > 0 {
		parts = append(parts, "Avoid cuisines: "+strings.Join(disliked, ", "))
	}
	return strings.Join(parts, ". ") + "."
}

func limit(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func dietaryClause(prefs restaurant.UserPreferences) string {
	if prefs.Dietary == restaurant.DietNone {
		return ""
	}
	return string(prefs.Dietary) + " options."
}

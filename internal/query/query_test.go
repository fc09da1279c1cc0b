package query

import (
	"strings"
	"testing"

	"dineahead/internal/restaurant"
)

var testFilters = restaurant.Filters{Location: "02119", Budget: 350, Distance: 5}

func TestBuildCheapLunch(t *testing.T) {
	req := Build("Find cheap lunch under $12", restaurant.UserPreferences{}, testFilters)

	if req.Intent != IntentMeal || req.Meal != restaurant.Lunch {
		t.Fatalf("Expected lunch meal intent, got %s/%s", req.Intent, req.Meal)
	}
	if !strings.Contains(req.Query, "lunch") {
		t.Errorf("Expected query to mention lunch: %q", req.Query)
	}
	if !strings.Contains(req.Query, "02119") {
		t.Errorf("Expected query to include the location: %q", req.Query)
	}
	if !strings.Contains(req.Query, "under $12") {
		t.Errorf("Expected the low-price phrasing to survive: %q", req.Query)
	}
}

func TestBuildMealTimePriority(t *testing.T) {
	cases := []struct {
		message string
		meal    restaurant.MealTime
	}{
		{"Breakfast spots", restaurant.Breakfast},
		{"somewhere for brunch", restaurant.Breakfast},
		{"coffee and a pastry", restaurant.Breakfast},
		{"a quick bite at noon", restaurant.Lunch},
		{"Fancy dinner", restaurant.Dinner},
		{"somewhere for tonight's supper", restaurant.Dinner},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			req := Build(tc.message, restaurant.UserPreferences{}, testFilters)
			if req.Intent != IntentMeal {
				t.Fatalf("Expected meal intent, got %s", req.Intent)
			}
			if req.Meal != tc.meal {
				t.Errorf("Expected %s, got %s", tc.meal, req.Meal)
			}
		})
	}
}

func TestBuildPlanWeek(t *testing.T) {
	req := Build("Plan my whole week", restaurant.UserPreferences{}, testFilters)
	if req.Intent != IntentPlanWeek {
		t.Fatalf("Expected plan-week intent, got %s", req.Intent)
	}
	if !strings.Contains(req.Query, "variety") {
		t.Errorf("Expected a diversity request: %q", req.Query)
	}
	// 350 / 21 rounds to 17.
	if !strings.Contains(req.Query, "$17 per meal") {
		t.Errorf("Expected the per-meal budget figure: %q", req.Query)
	}
}

func TestBuildPlanDay(t *testing.T) {
	req := Build("Plan Monday's meals", restaurant.UserPreferences{}, testFilters)
	if req.Intent != IntentPlanDay || req.Day != "monday" {
		t.Fatalf("Expected plan-day monday, got %s/%s", req.Intent, req.Day)
	}
	for _, want := range []string{"breakfast", "lunch", "dinner", "Monday"} {
		if !strings.Contains(req.Query, want) {
			t.Errorf("Expected %q in query: %q", want, req.Query)
		}
	}
}

func TestBuildFancy(t *testing.T) {
	req := Build("somewhere upscale for an anniversary", restaurant.UserPreferences{}, testFilters)
	if req.Intent != IntentFancy {
		t.Fatalf("Expected fancy intent, got %s", req.Intent)
	}
}

func TestBuildCuisine(t *testing.T) {
	req := Build("Find Italian restaurants", restaurant.UserPreferences{}, testFilters)
	if req.Intent != IntentCuisine || req.Cuisine != "italian" {
		t.Fatalf("Expected italian cuisine intent, got %s/%s", req.Intent, req.Cuisine)
	}
}

func TestBuildContextSuffix(t *testing.T) {
	prefs := restaurant.UserPreferences{
		Dietary:         restaurant.DietVegetarian,
		Allergens:       []string{"Peanuts", "Shellfish"},
		CuisineLikes:    []string{"Italian", "Thai", "Greek", "French"},
		CuisineDislikes: []string{"Chinese", "Korean", "Indian"},
	}
	req := Build("what do you recommend", prefs, testFilters)

	if req.Intent != IntentDefault {
		t.Fatalf("Expected default intent, got %s", req.Intent)
	}
	for _, want := range []string{
		"Location: 02119",
		"Within 5 miles",
		"vegetarian only",
		"Must avoid: Peanuts, Shellfish",
		"Preferred cuisines: Italian, Thai, Greek",
		"Avoid cuisines: Chinese, Korean",
	} {
		if !strings.Contains(req.Query, want) {
			t.Errorf("Expected %q in query: %q", want, req.Query)
		}
	}
	// Caps: the fourth liked and the third disliked cuisine are dropped.
	if strings.Contains(req.Query, "French") {
		t.Errorf("Expected liked cuisines capped at 3: %q", req.Query)
	}
	if strings.Contains(req.Query, "Avoid cuisines: Chinese, Korean, Indian") {
		t.Errorf("Expected disliked cuisines capped at 2: %q", req.Query)
	}
}

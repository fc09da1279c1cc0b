package restaurant

// DietaryType is a fixed dietary preference.
type DietaryType string

const (
	DietNone          DietaryType = ""
	DietVegetarian    DietaryType = "vegetarian"
	DietNonVegetarian DietaryType = "non-vegetarian"
	DietVegan         DietaryType = "vegan"
	DietPescatarian   DietaryType = "pescatarian"
	DietHalal         DietaryType = "halal"
	DietKosher        DietaryType = "kosher"
)

// MealTime is one of the three slots within a day.
type MealTime string

const (
	Breakfast MealTime = "breakfast"
	Lunch     MealTime = "lunch"
	Dinner    MealTime = "dinner"
)

// MealTimes lists the slots in display order.
var MealTimes = []MealTime{Breakfast, Lunch, Dinner}

// MealKind is the service-style filter (not a meal slot).
type MealKind string

const (
	KindAny      MealKind = "any"
	KindDineIn   MealKind = "dine-in"
	KindTakeout  MealKind = "takeout"
	KindDelivery MealKind = "delivery"
)

// UserPreferences holds the dietary profile collected in the preferences step.
type UserPreferences struct {
	Dietary         DietaryType `json:"dietary"`
	Allergens       []string    `json:"allergens"`
	CuisineLikes    []string    `json:"cuisine_likes"`
	CuisineDislikes []string    `json:"cuisine_dislikes"`
}

// LikeCuisine adds a cuisine to the liked set and removes it from dislikes.
func (p *UserPreferences) LikeCuisine(cuisine string) {
	p.CuisineDislikes = remove(p.CuisineDislikes, cuisine)
	if !contains(p.CuisineLikes, cuisine) {
		p.CuisineLikes = append(p.CuisineLikes, cuisine)
	}
}

// DislikeCuisine adds a cuisine to the disliked set and removes it from likes.
func (p *UserPreferences) DislikeCuisine(cuisine string) {
	p.CuisineLikes = remove(p.CuisineLikes, cuisine)
	if !contains(p.CuisineDislikes, cuisine) {
		p.CuisineDislikes = append(p.CuisineDislikes, cuisine)
	}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func remove(set []string, s string) []string {
	out := set[:0]
	for _, v := range set {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// Filters holds the search constraints collected in the filters step.
type Filters struct {
	Location string   `json:"location"`
	Budget   int      `json:"budget"`   // weekly total, dollars
	Distance int      `json:"distance"` // max miles
	MealKind MealKind `json:"meal_type"`
}

// PlannableMeals is the number of meal slots in a week: 7 days times
// breakfast, lunch and dinner. Budget math divides by this everywhere.
const PlannableMeals = 21

// PerMealBudget returns the weekly budget spread over every plannable slot.
func (f Filters) PerMealBudget() float64 {
	return float64(f.Budget) / PlannableMeals
}

// ReviewSnippet is one review excerpt with an optional star rating.
type ReviewSnippet struct {
	Text   string   `json:"text"`
	Rating *float64 `json:"rating,omitempty"`
}

// Summaries holds the upstream description variants.
type Summaries struct {
	Short  string `json:"short"`
	Medium string `json:"medium"`
	Long   string `json:"long"`
}

// Restaurant is a normalized upstream business listing. Built once per
// response by FromBusiness and never mutated afterwards.
type Restaurant struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Cuisine             string          `json:"cuisine"`
	Rating              float64         `json:"rating"`
	ReviewCount         int             `json:"review_count"`
	PriceLevel          string          `json:"price_level"`
	EstimatedCost       int             `json:"estimated_cost"`
	Distance            string          `json:"distance"`
	DistanceMiles       float64         `json:"distance_miles"`
	Address             string          `json:"address"`
	ImageURL            string          `json:"image_url"`
	PageURL             string          `json:"page_url"`
	Summaries           Summaries       `json:"summaries"`
	ReviewSnippets      []ReviewSnippet `json:"review_snippets"`
	ContextualSummary   string          `json:"contextual_summary"`
	Photos              []string        `json:"photos"`
	Phone               string          `json:"phone"`
	SupportsReservation bool            `json:"supports_reservation"`
	ReservationURL      string          `json:"reservation_url,omitempty"`
}

// MatchIndicator is a single labeled signal contributing to the match score.
type MatchIndicator struct {
	Label   string `json:"label"`
	Matched bool   `json:"matched"`
	Icon    string `json:"icon"`
}

// Price level to estimated per-meal cost, dollars.
var priceMap = map[string]int{
	"$":    12,
	"$$":   22,
	"$$$":  35,
	"$$$$": 55,
}

const defaultCost = 20 // mid-range when the listing has no price data

// EstimateCost maps a price level string to an estimated per-meal cost.
func EstimateCost(priceLevel string) int {
	if cost, ok := priceMap[priceLevel]; ok {
		return cost
	}
	return defaultCost
}

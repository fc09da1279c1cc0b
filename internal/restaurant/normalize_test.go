package restaurant

import (
	"encoding/json"
	"strings"
	"testing"
)

func business(t *testing.T, raw string) Business {
	t.Helper()
	var b Business
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("Failed to parse business: %v", err)
	}
	return b
}

func TestFromBusinessFullListing(t *testing.T) {
	b := business(t, `{
		"id": "trat-9",
		"name": "Trattoria Nove",
		"rating": 4.7,
		"review_count": 980,
		"price": "$$$",
		"distance": 3218.68,
		"url": "https://example.test/trat-9",
		"categories": [{"title": "Italian"}, {"title": "Wine Bars"}],
		"location": {"formatted_address": "9 North End, Boston, MA"},
		"transactions": ["delivery", "restaurant_reservation"],
		"alias": "trattoria-nove-boston"
	}`)

	r := FromBusiness(b)

	if r.Cuisine != "Italian" {
		t.Errorf("Expected first category as cuisine, got %q", r.Cuisine)
	}
	if r.EstimatedCost != 35 {
		t.Errorf("Expected $$$ to map to 35, got %d", r.EstimatedCost)
	}
	if r.Distance != "2.0 mi" || r.DistanceMiles < 1.9 || r.DistanceMiles > 2.1 {
		t.Errorf("Expected meters converted to miles, got %q (%f)", r.Distance, r.DistanceMiles)
	}
	if !r.SupportsReservation || r.ReservationURL != "https://www.yelp.com/reservations/trattoria-nove-boston" {
		t.Errorf("Expected reservation deep link, got %q", r.ReservationURL)
	}
}

func TestFromBusinessFallbacks(t *testing.T) {
	r := FromBusiness(business(t, `{}`))

	if r.ID == "" || r.Name != "Unknown Restaurant" {
		t.Errorf("Expected generated id and fallback name, got %q / %q", r.ID, r.Name)
	}
	if r.Cuisine != "Restaurant" || r.PriceLevel != "$$" {
		t.Errorf("Expected fallback cuisine and price, got %q / %q", r.Cuisine, r.PriceLevel)
	}
	if r.DistanceMiles != 0 || r.Distance != "N/A" {
		t.Errorf("Expected unknown distance, got %q", r.Distance)
	}
	if r.Address != "Address not available" {
		t.Errorf("Unexpected address %q", r.Address)
	}
	if !strings.Contains(r.ImageURL, "picsum.photos") {
		t.Errorf("Expected placeholder image, got %q", r.ImageURL)
	}
}

func TestFromBusinessContextualPriceWins(t *testing.T) {
	r := FromBusiness(business(t, `{"contextual_info":{"price":"$"}}`))

	if r.PriceLevel != "$" || r.EstimatedCost != 12 {
		t.Errorf("Expected contextual price used, got %q (%d)", r.PriceLevel, r.EstimatedCost)
	}
}

func TestParseSnippetsCapAndHighlights(t *testing.T) {
	b := business(t, `{"contextual_info":{"review_snippets":[
		{"comment": "The [[HIGHLIGHT]]pasta[[ENDHIGHLIGHT]] was amazing", "rating": 5},
		{"text": "ok"}, {"text": "a"}, {"text": "b"}, {"text": "c"}, {"text": "overflow"}
	]}}`)

	r := FromBusiness(b)
	if len(r.ReviewSnippets) != 5 {
		t.Fatalf("Expected snippets capped at 5, got %d", len(r.ReviewSnippets))
	}
	first := r.ReviewSnippets[0]
	if strings.Contains(first.Text, "HIGHLIGHT") || !strings.Contains(first.Text, "pasta") {
		t.Errorf("Expected highlight markers stripped, got %q", first.Text)
	}
	if first.Rating == nil || *first.Rating != 5 {
		t.Errorf("Expected rating carried, got %v", first.Rating)
	}
}

func TestSanitizeText(t *testing.T) {
	got := SanitizeText("<p>Great   <b>pasta</b></p><script>alert(1)</script>")
	if got != "Great pasta" {
		t.Errorf("Expected plain collapsed text, got %q", got)
	}

	// Plain text short-circuits untouched.
	if got := SanitizeText("no markup here"); got != "no markup here" {
		t.Errorf("Expected passthrough, got %q", got)
	}
}

func TestEstimateCost(t *testing.T) {
	cases := map[string]int{"$": 12, "$$": 22, "$$$": 35, "$$$$": 55, "": 20, "???": 20}
	for level, want := range cases {
		if got := EstimateCost(level); got != want {
			t.Errorf("EstimateCost(%q) = %d, want %d", level, got, want)
		}
	}
}

func TestPreferenceOpsAreMutuallyExclusive(t *testing.T) {
	var p UserPreferences
	p.LikeCuisine("Italian")
	p.DislikeCuisine("Italian")

	if len(p.CuisineLikes) != 0 {
		t.Errorf("Expected like removed on dislike, got %v", p.CuisineLikes)
	}
	if len(p.CuisineDislikes) != 1 {
		t.Errorf("Expected one dislike, got %v", p.CuisineDislikes)
	}

	p.LikeCuisine("Italian")
	p.LikeCuisine("Italian")
	if len(p.CuisineLikes) != 1 || len(p.CuisineDislikes) != 0 {
		t.Errorf("Expected idempotent like flip, got %v / %v", p.CuisineLikes, p.CuisineDislikes)
	}
}

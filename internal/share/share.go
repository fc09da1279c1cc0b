// Package share renders a plan as shareable text and as a compact link
// payload. The link encoding is lossy on purpose: name, cuisine and cost
// per slot, never the full restaurant record.
package share

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dineahead/internal/plan"
	"dineahead/internal/restaurant"
)

var mealIcons = map[restaurant.MealTime]string{
	restaurant.Breakfast: "🌅",
	restaurant.Lunch:     "☀️",
	restaurant.Dinner:    "🌙",
}

// PlanText renders the deterministic shareable text of a plan.
func PlanText(p plan.WeeklyPlan, filters restaurant.Filters) string {
	var b strings.Builder
	b.WriteString("🍽️ My DineAhead Weekly Meal Plan\n")
	fmt.Fprintf(&b, "📍 %s | 💰 Budget: $%d\n", filters.Location, filters.Budget)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	for _, day := range plan.Days {
		dayTotal := 0
		var mealLines []string
		for _, meal := range restaurant.MealTimes {
			slot := p.Slot(day, meal)
			if slot == nil {
				continue
			}
			dayTotal += slot.Restaurant.EstimatedCost
			mealLines = append(mealLines, fmt.Sprintf("   %s %s: %s - $%d",
				mealIcons[meal], capitalize(string(meal)), slot.Restaurant.Name, slot.Restaurant.EstimatedCost))
		}
		fmt.Fprintf(&b, "📅 %s ($%d)\n", strings.ToUpper(string(day)), dayTotal)
		for _, line := range mealLines {
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	total := plan.TotalCost(p)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "💰 TOTAL: $%d / $%d budget\n", total, filters.Budget)
	fmt.Fprintf(&b, "📊 %d/%d meals planned\n", plan.PlannedMeals(p), restaurant.PlannableMeals)
	b.WriteString("\nCreated with DineAhead 🍽️")
	return b.String()
}

// SlotSummary is the lossy per-slot encoding used in share links.
type SlotSummary struct {
	Name    string `json:"name"`
	Cuisine string `json:"cuisine"`
	Cost    int    `json:"cost"`
}

// Summary is the compact plan encoding embedded in a share link.
type Summary struct {
	Location string                            `json:"loc"`
	Budget   int                               `json:"budget"`
	Total    int                               `json:"total"`
	Days     map[string]map[string]SlotSummary `json:"days,omitempty"`
}

// Summarize builds the compact summary of a plan.
func Summarize(p plan.WeeklyPlan, filters restaurant.Filters) Summary {
	s := Summary{
		Location: filters.Location,
		Budget:   filters.Budget,
		Total:    plan.TotalCost(p),
	}
	for _, day := range plan.Days {
		for _, meal := range restaurant.MealTimes {
			slot := p.Slot(day, meal)
			if slot == nil {
				continue
			}
			if s.Days == nil {
				s.Days = make(map[string]map[string]SlotSummary)
			}
			if s.Days[string(day)] == nil {
				s.Days[string(day)] = make(map[string]SlotSummary)
			}
			s.Days[string(day)][string(meal)] = SlotSummary{
				Name:    slot.Restaurant.Name,
				Cuisine: slot.Restaurant.Cuisine,
				Cost:    slot.Restaurant.EstimatedCost,
			}
		}
	}
	return s
}

// Link builds the share URL with the summary as the plan= parameter.
// With a signing secret the payload is an HS256 JWT (its claims segment
// is the base64url compact JSON); without one it is raw base64url JSON.
func Link(baseURL string, p plan.WeeklyPlan, filters restaurant.Filters, secret string) (string, error) {
	token, err := Encode(Summarize(p, filters), secret)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("plan", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Encode serializes a summary to the link token form.
func Encode(s Summary, secret string) (string, error) {
	if secret == "" {
		data, err := json.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("failed to marshal summary: %w", err)
		}
		return base64.RawURLEncoding.EncodeToString(data), nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	var claims jwt.MapClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return "", fmt.Errorf("failed to build claims: %w", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign share token: %w", err)
	}
	return signed, nil
}

// Decode parses a link token back into a summary, verifying the
// signature when a secret is configured.
func Decode(token, secret string) (Summary, error) {
	var payload []byte

	if secret == "" {
		data, err := base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			return Summary{}, fmt.Errorf("invalid share token: %w", err)
		}
		payload = data
	} else {
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			return Summary{}, fmt.Errorf("invalid share token: %w", err)
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return Summary{}, fmt.Errorf("invalid share token claims")
		}
		data, err := json.Marshal(claims)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to re-marshal claims: %w", err)
		}
		payload = data
	}

	var s Summary
	if err := json.Unmarshal(payload, &s); err != nil {
		return Summary{}, fmt.Errorf("invalid share payload: %w", err)
	}
	return s, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// DefaultName substitutes an auto-generated name for a blank one.
func DefaultName(name string, now time.Time) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	return "Plan " + now.Format("2006-01-02")
}

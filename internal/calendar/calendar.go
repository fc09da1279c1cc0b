// Package calendar renders a weekly plan as iCalendar text.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dineahead/internal/plan"
	"dineahead/internal/restaurant"
)

// Event UIDs are UUIDv5 values derived from restaurant, day and meal so
// repeated exports of the same plan never duplicate events.
var uidNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8") // RFC 4122 namespace

type mealWindow struct {
	startHour int
	endHour   int
}

var mealWindows = map[restaurant.MealTime]mealWindow{
	restaurant.Breakfast: {8, 9},
	restaurant.Lunch:     {12, 13},
	restaurant.Dinner:    {19, 21},
}

// ExportICS renders one VEVENT per filled slot, anchored to the week
// starting at weekStart (expected to be the plan's monday).
func ExportICS(p plan.WeeklyPlan, weekStart time.Time) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//DineAhead//Meal Planner//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:DineAhead Meal Plan",
	}

	stamp := formatICalTime(time.Now().UTC())
	for _, day := range plan.Days {
		for _, meal := range restaurant.MealTimes {
			slot := p.Slot(day, meal)
			if slot == nil {
				continue
			}
			lines = append(lines, eventLines(day, meal, slot, weekStart, stamp)...)
		}
	}

	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

func eventLines(day plan.Day, meal restaurant.MealTime, slot *plan.MealSlot, weekStart time.Time, stamp string) []string {
	r := slot.Restaurant
	window := mealWindows[meal]
	date := weekStart.AddDate(0, 0, plan.DayOffset(day))
	start := time.Date(date.Year(), date.Month(), date.Day(), window.startHour, 0, 0, 0, date.Location())
	end := time.Date(date.Year(), date.Month(), date.Day(), window.endHour, 0, 0, 0, date.Location())

	description := fmt.Sprintf("%s • %s • $%d\\n\\nRating: %.1f/5 (%d reviews)",
		escapeText(r.Cuisine), r.PriceLevel, r.EstimatedCost, r.Rating, r.ReviewCount)

	return []string{
		"BEGIN:VEVENT",
		"UID:" + EventUID(r.ID, day, meal),
		"DTSTAMP:" + stamp,
		"DTSTART:" + formatICalTime(start.UTC()),
		"DTEND:" + formatICalTime(end.UTC()),
		fmt.Sprintf("SUMMARY:%s: %s", capitalize(string(meal)), escapeText(r.Name)),
		"DESCRIPTION:" + description,
		"LOCATION:" + escapeText(r.Address),
		"STATUS:CONFIRMED",
		"END:VEVENT",
	}
}

// EventUID derives the stable event identifier for a slot.
func EventUID(restaurantID string, day plan.Day, meal restaurant.MealTime) string {
	key := fmt.Sprintf("%s|%s|%s", restaurantID, day, meal)
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@dineahead.app"
}

func formatICalTime(t time.Time) string {
	return t.Format("20060102T150405Z")
}

// escapeText escapes per RFC 5545: backslash, comma, semicolon, newline.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

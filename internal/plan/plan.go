// Package plan models the weekly meal plan: seven days of three nullable
// meal slots. All operations are pure transforms returning new snapshots;
// the owning session decides when to swap them in.
package plan

import (
	"fmt"

	"dineahead/internal/restaurant"
)

// Day is a lowercase weekday name.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// Days lists the week in display order, monday first.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DayOffset returns the day's offset from monday, or -1 for an unknown day.
func DayOffset(d Day) int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return -1
}

// ParseDay validates a weekday name.
func ParseDay(s string) (Day, error) {
	d := Day(s)
	if DayOffset(d) < 0 {
		return "", fmt.Errorf("unknown day %q", s)
	}
	return d, nil
}

// ParseMeal validates a meal slot name.
func ParseMeal(s string) (restaurant.MealTime, error) {
	switch m := restaurant.MealTime(s); m {
	case restaurant.Breakfast, restaurant.Lunch, restaurant.Dinner:
		return m, nil
	}
	return "", fmt.Errorf("unknown meal %q", s)
}

// MealSlot is one placed restaurant.
type MealSlot struct {
	Restaurant restaurant.Restaurant `json:"restaurant"`
	MealTime   restaurant.MealTime   `json:"meal_time"`
}

// DayPlan holds the three slots of one day, each nil until filled.
type DayPlan struct {
	Breakfast *MealSlot `json:"breakfast"`
	Lunch     *MealSlot `json:"lunch"`
	Dinner    *MealSlot `json:"dinner"`
}

func (d DayPlan) slot(meal restaurant.MealTime) *MealSlot {
	switch meal {
	case restaurant.Breakfast:
		return d.Breakfast
	case restaurant.Lunch:
		return d.Lunch
	case restaurant.Dinner:
		return d.Dinner
	}
	return nil
}

func (d DayPlan) withSlot(meal restaurant.MealTime, slot *MealSlot) DayPlan {
	switch meal {
	case restaurant.Breakfast:
		d.Breakfast = slot
	case restaurant.Lunch:
		d.Lunch = slot
	case restaurant.Dinner:
		d.Dinner = slot
	}
	return d
}

// WeeklyPlan maps every day of the week to its DayPlan. Every day key is
// always present; Empty and the transform functions maintain that.
type WeeklyPlan map[Day]DayPlan

// Empty returns a plan with all seven days present and no slots filled.
func Empty() WeeklyPlan {
	p := make(WeeklyPlan, len(Days))
	for _, d := range Days {
		p[d] = DayPlan{}
	}
	return p
}

// clone copies the plan so callers always get a fresh snapshot.
func (p WeeklyPlan) clone() WeeklyPlan {
	out := make(WeeklyPlan, len(Days))
	for _, d := range Days {
		out[d] = p[d]
	}
	return out
}

// Slot returns the slot at (day, meal), nil when unfilled.
func (p WeeklyPlan) Slot(day Day, meal restaurant.MealTime) *MealSlot {
	return p[day].slot(meal)
}

// Place returns a new plan with the restaurant in the targeted slot.
// The replace is atomic: exactly that slot changes.
func Place(p WeeklyPlan, day Day, meal restaurant.MealTime, r restaurant.Restaurant) WeeklyPlan {
	out := p.clone()
	out[day] = out[day].withSlot(meal, &MealSlot{Restaurant: r, MealTime: meal})
	return out
}

// Remove returns a new plan with the targeted slot cleared.
func Remove(p WeeklyPlan, day Day, meal restaurant.MealTime) WeeklyPlan {
	out := p.clone()
	out[day] = out[day].withSlot(meal, nil)
	return out
}

// Merge shallow-merges a partial plan into p: for each day present in the
// partial, filled slots overwrite, absent slots keep the original value.
func Merge(p WeeklyPlan, partial WeeklyPlan) WeeklyPlan {
	out := p.clone()
	for day, dp := range partial {
		if DayOffset(day) < 0 {
			continue
		}
		merged := out[day]
		for _, meal := range restaurant.MealTimes {
			if slot := dp.slot(meal); slot != nil {
				merged = merged.withSlot(meal, slot)
			}
		}
		out[day] = merged
	}
	return out
}

// TotalCost sums the estimated cost of every filled slot.
func TotalCost(p WeeklyPlan) int {
	total := 0
	for _, day := range Days {
		for _, meal := range restaurant.MealTimes {
			if slot := p.Slot(day, meal); slot != nil {
				total += slot.Restaurant.EstimatedCost
			}
		}
	}
	return total
}

// PlannedMeals counts the filled slots.
func PlannedMeals(p WeeklyPlan) int {
	count := 0
	for _, day := range Days {
		for _, meal := range restaurant.MealTimes {
			if p.Slot(day, meal) != nil {
				count++
			}
		}
	}
	return count
}

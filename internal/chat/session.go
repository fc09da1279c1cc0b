// Package chat owns a planning conversation: the transcript, the weekly
// plan, and the conversation-continuation token. All mutation happens
// through the session so the underlying plan transforms stay pure.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dineahead/internal/matching"
	"dineahead/internal/plan"
	"dineahead/internal/query"
	"dineahead/internal/restaurant"
	"dineahead/internal/yelp"
)

// ErrBusy means a send is already in flight. Callers disable input
// rather than queueing a second request.
var ErrBusy = errors.New("a message is already being processed")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry.
type Message struct {
	ID            string                  `json:"id"`
	Role          string                  `json:"role"`
	Content       string                  `json:"content"`
	Restaurants   []restaurant.Restaurant `json:"restaurants,omitempty"`
	SuggestedPlan plan.WeeklyPlan         `json:"suggested_plan,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
}

// Searcher is the transport the session talks through.
type Searcher interface {
	Chat(ctx context.Context, enriched, raw, location, chatID string) (*yelp.ChatResponse, error)
}

// Session is one user's planning conversation. Safe for concurrent use;
// sends are serialized, a second concurrent send gets ErrBusy.
type Session struct {
	mu       sync.Mutex
	inFlight bool

	client  Searcher
	log     *slog.Logger
	prefs   restaurant.UserPreferences
	filters restaurant.Filters

	chatID   string
	messages []Message
	plan     plan.WeeklyPlan
}

// NewSession starts a conversation seeded with a greeting built from the
// filters.
func NewSession(client Searcher, prefs restaurant.UserPreferences, filters restaurant.Filters, log *slog.Logger) *Session {
	s := &Session{
		client:  client,
		log:     log,
		prefs:   prefs,
		filters: filters,
		plan:    plan.Empty(),
	}
	s.messages = []Message{s.greeting()}
	return s
}

func (s *Session) greeting() Message {
	content := fmt.Sprintf(
		"Hi! I'm your DineAhead assistant. I'll help you plan a week of meals near **%s** within your **$%d** budget.\n\n"+
			"Try things like:\n- Find cheap lunch spots\n- Plan my whole week\n- Something fancy for Friday dinner",
		s.filters.Location, s.filters.Budget)
	return newMessage(RoleAssistant, content)
}

func newMessage(role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Send processes one user message end to end and returns the assistant
// reply. Transport failures come back as a friendly assistant message,
// never as an error; the only error is ErrBusy.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	s.inFlight = true
	s.messages = append(s.messages, newMessage(RoleUser, text))
	prefs, filters, chatID := s.prefs, s.filters, s.chatID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	req := query.Build(text, prefs, filters)
	resp, err := s.client.Chat(ctx, req.Query, text, filters.Location, chatID)
	if err != nil {
		s.log.Error("chat send failed", "error", err)
		reply := newMessage(RoleAssistant,
			"Sorry, I couldn't reach the restaurant search service just now. Please try again in a moment.")
		s.append(reply)
		return reply, nil
	}

	restaurants := normalizeAndRank(resp.ExtractBusinesses(), prefs, filters)
	reply := s.compose(req, resp, restaurants)
	s.mu.Lock()
	if resp.ChatID != "" {
		s.chatID = resp.ChatID
	}
	s.messages = append(s.messages, reply)
	s.mu.Unlock()
	return reply, nil
}

func (s *Session) append(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

// normalizeAndRank converts listings and orders them best match first.
func normalizeAndRank(businesses []restaurant.Business, prefs restaurant.UserPreferences, filters restaurant.Filters) []restaurant.Restaurant {
	restaurants := make([]restaurant.Restaurant, 0, len(businesses))
	for _, b := range businesses {
		restaurants = append(restaurants, restaurant.FromBusiness(b))
	}
	sort.SliceStable(restaurants, func(i, j int) bool {
		return matching.Score(restaurants[i], prefs, filters) > matching.Score(restaurants[j], prefs, filters)
	})
	return restaurants
}

func (s *Session) compose(req query.Request, resp *yelp.ChatResponse, restaurants []restaurant.Restaurant) Message {
	content := strings.TrimSpace(resp.Text())
	if content == "" {
		if len(restaurants) == 0 {
			content = "I couldn't find any places matching that. Try broadening your search?"
		} else {
			content = fmt.Sprintf("I found **%d places** you might like.", len(restaurants))
		}
	}

	reply := newMessage(RoleAssistant, content)
	reply.Restaurants = restaurants

	switch req.Intent {
	case query.IntentPlanWeek:
		if suggested := suggestWeek(restaurants); plan.PlannedMeals(suggested) > 0 {
			reply.SuggestedPlan = suggested
			reply.Content += s.suggestionFooter(suggested)
		}
	case query.IntentPlanDay:
		if suggested := suggestDay(plan.Day(req.Day), restaurants); plan.PlannedMeals(suggested) > 0 {
			reply.SuggestedPlan = suggested
			reply.Content += s.suggestionFooter(suggested)
		}
	}
	return reply
}

func (s *Session) suggestionFooter(suggested plan.WeeklyPlan) string {
	return fmt.Sprintf("\n\nSuggested plan total: **$%d** of your $%d weekly budget. Say yes to accept it.",
		plan.TotalCost(suggested), s.filters.Budget)
}

// suggestDay fills one day's three slots, cheapest pick at breakfast and
// priciest at dinner to follow the usual meal price bands.
func suggestDay(day plan.Day, restaurants []restaurant.Restaurant) plan.WeeklyPlan {
	if plan.DayOffset(day) < 0 || len(restaurants) == 0 {
		return plan.WeeklyPlan{}
	}

	picks := make([]restaurant.Restaurant, len(restaurants))
	copy(picks, restaurants)
	sort.SliceStable(picks, func(i, j int) bool {
		return picks[i].EstimatedCost < picks[j].EstimatedCost
	})
	if len(picks) > 3 {
		picks = []restaurant.Restaurant{picks[0], picks[len(picks)/2], picks[len(picks)-1]}
	}

	suggested := plan.WeeklyPlan{}
	for i, meal := range restaurant.MealTimes {
		if i >= len(picks) {
			break
		}
		suggested = plan.Place(suggested, day, meal, picks[i])
	}
	return suggested
}

// suggestWeek round-robins the results across every slot of the week so
// no single restaurant dominates.
func suggestWeek(restaurants []restaurant.Restaurant) plan.WeeklyPlan {
	if len(restaurants) == 0 {
		return plan.WeeklyPlan{}
	}
	suggested := plan.WeeklyPlan{}
	i := 0
	for _, day := range plan.Days {
		for _, meal := range restaurant.MealTimes {
			suggested = plan.Place(suggested, day, meal, restaurants[i%len(restaurants)])
			i++
		}
	}
	return suggested
}

// AcceptPlan merges the most recent suggested plan into the weekly plan.
func (s *Session) AcceptPlan() (plan.WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if suggested := s.messages[i].SuggestedPlan; suggested != nil {
			s.plan = plan.Merge(s.plan, suggested)
			return s.plan, nil
		}
	}
	return nil, errors.New("no suggested plan to accept")
}

// PlaceSlot puts a restaurant into one slot of the plan.
func (s *Session) PlaceSlot(day plan.Day, meal restaurant.MealTime, r restaurant.Restaurant) plan.WeeklyPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan.Place(s.plan, day, meal, r)
	return s.plan
}

// RemoveSlot clears one slot of the plan.
func (s *Session) RemoveSlot(day plan.Day, meal restaurant.MealTime) plan.WeeklyPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan.Remove(s.plan, day, meal)
	return s.plan
}

// ReplacePlan swaps in a full plan snapshot, used when loading a saved plan.
func (s *Session) ReplacePlan(p plan.WeeklyPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan.Merge(plan.Empty(), p)
}

// Reset discards the conversation id and clears the transcript back to a
// single greeting. The plan is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatID = ""
	s.messages = []Message{s.greeting()}
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Plan returns the current plan snapshot.
func (s *Session) Plan() plan.WeeklyPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return plan.Merge(plan.Empty(), s.plan)
}

// Filters returns the session's search filters.
func (s *Session) Filters() restaurant.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// Preferences returns the session's dining preferences.
func (s *Session) Preferences() restaurant.UserPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// UpdatePreferences replaces the dining preferences.
func (s *Session) UpdatePreferences(prefs restaurant.UserPreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs
}

// UpdateFilters replaces the search filters.
func (s *Session) UpdateFilters(filters restaurant.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters
}

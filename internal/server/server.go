// Package server exposes the planning assistant over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"dineahead/internal/calendar"
	"dineahead/internal/chat"
	"dineahead/internal/matching"
	"dineahead/internal/notify"
	"dineahead/internal/plan"
	"dineahead/internal/restaurant"
	"dineahead/internal/reviews"
	"dineahead/internal/share"
	"dineahead/internal/store"
)

// Options wires the server's collaborators.
type Options struct {
	Searcher    chat.Searcher
	Store       *store.Store
	Proxy       http.Handler
	Notifier    *notify.Notifier
	BaseURL     string
	ShareSecret string
	Logger      *slog.Logger
}

// Server holds the single active planning session and its collaborators.
type Server struct {
	mu      sync.Mutex
	session *chat.Session

	searcher    chat.Searcher
	store       *store.Store
	proxy       http.Handler
	notifier    *notify.Notifier
	baseURL     string
	shareSecret string
	log         *slog.Logger

	// The upstream AI endpoint is metered; keep the proxy from being
	// hammered by a misbehaving client.
	proxyLimiter *rate.Limiter
}

// New builds a server from its collaborators.
func New(opts Options) *Server {
	return &Server{
		searcher:     opts.Searcher,
		store:        opts.Store,
		proxy:        opts.Proxy,
		notifier:     opts.Notifier,
		baseURL:      opts.BaseURL,
		shareSecret:  opts.ShareSecret,
		log:          opts.Logger,
		proxyLimiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// Router mounts every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodPost, "/api/yelp/chat", s.rateLimited(s.proxy))

	r.Route("/api/session", func(r chi.Router) {
		r.Post("/", s.handleStartSession)
		r.Get("/", s.handleGetSession)
		r.Post("/messages", s.handleSendMessage)
		r.Post("/reset", s.handleReset)
	})

	r.Route("/api/plan", func(r chi.Router) {
		r.Get("/", s.handleGetPlan)
		r.Post("/accept", s.handleAcceptPlan)
		r.Get("/export.ics", s.handleExportICS)
		r.Get("/text", s.handlePlanText)
		r.Get("/share", s.handleShareLink)
		r.Put("/{day}/{meal}", s.handlePlaceSlot)
		r.Delete("/{day}/{meal}", s.handleRemoveSlot)
	})

	r.Post("/api/restaurants/summary", s.handleRestaurantSummary)

	r.Route("/api/plans", func(r chi.Router) {
		r.Post("/", s.handleSavePlan)
		r.Get("/", s.handleListPlans)
		r.Get("/{id}", s.handleGetSavedPlan)
		r.Delete("/{id}", s.handleDeleteSavedPlan)
		r.Post("/{id}/load", s.handleLoadSavedPlan)
	})

	return r
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.proxyLimiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many search requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startSessionRequest struct {
	Preferences restaurant.UserPreferences `json:"preferences"`
	Filters     restaurant.Filters         `json:"filters"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Filters.Location) == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}

	session := chat.NewSession(s.searcher, req.Preferences, req.Filters, s.log)
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"messages": session.Messages(),
		"plan":     session.Plan(),
	})
}

func (s *Server) currentSession() (*chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.session != nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages":    session.Messages(),
		"plan":        session.Plan(),
		"filters":     session.Filters(),
		"preferences": session.Preferences(),
	})
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "message text is required")
		return
	}

	reply, err := session.Send(r.Context(), req.Text)
	if errors.Is(err, chat.ErrBusy) {
		writeError(w, http.StatusConflict, "a message is already being processed")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}
	session.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"messages": session.Messages()})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}
	s.writePlan(w, session, session.Plan())
}

func (s *Server) writePlan(w http.ResponseWriter, session *chat.Session, p plan.WeeklyPlan) {
	writeJSON(w, http.StatusOK, map[string]any{
		"plan":          p,
		"total_cost":    plan.TotalCost(p),
		"planned_meals": plan.PlannedMeals(p),
		"budget":        session.Filters().Budget,
	})
}

func (s *Server) handleAcceptPlan(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}
	merged, err := session.AcceptPlan()
	if err != nil {
		writeError(w, http.StatusBadRequest, "no suggested plan to accept")
		return
	}
	s.writePlan(w, session, merged)
}

func (s *Server) slotParams(r *http.Request) (plan.Day, restaurant.MealTime, error) {
	day, err := plan.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		return "", "", err
	}
	meal, err := plan.ParseMeal(chi.URLParam(r, "meal"))
	if err != nil {
		return "", "", err
	}
	return day, meal, nil
}

func (s *Server) handlePlaceSlot(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}
	day, meal, err := s.slotParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var rest restaurant.Restaurant
	if err := json.NewDecoder(r.Body).Decode(&rest); err != nil || rest.Name == "" {
		writeError(w, http.StatusBadRequest, "a restaurant is required")
		return
	}
	s.writePlan(w, session, session.PlaceSlot(day, meal, rest))
}

func (s *Server) handleRemoveSlot(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}
	day, meal, err := s.slotParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writePlan(w, session, session.RemoveSlot(day, meal))
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}

	weekStart := nextMonday(time.Now().UTC())
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
			return
		}
		weekStart = parsed
	}

	ics := calendar.ExportICS(session.Plan(), weekStart)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="dineahead-week.ics"`)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ics)
}

// nextMonday returns the upcoming monday at midnight, today if it is one.
func nextMonday(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

func (s *Server) handlePlanText(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"text": share.PlanText(session.Plan(), session.Filters()),
	})
}

func (s *Server) handleShareLink(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}

	text := share.PlanText(session.Plan(), session.Filters())
	link, err := share.Link(s.baseURL, session.Plan(), session.Filters(), s.shareSecret)
	if err != nil {
		s.log.Error("failed to build share link", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build share link")
		return
	}

	notified := false
	if r.URL.Query().Get("notify") == "telegram" && s.notifier.Enabled() {
		if err := s.notifier.SharePlan(text); err != nil {
			s.log.Error("telegram share failed", "error", err)
		} else {
			notified = true
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"url":      link,
		"text":     text,
		"notified": notified,
	})
}

// handleRestaurantSummary backs the detail view: review themes, rating
// distribution, and match indicators for one listing.
func (s *Server) handleRestaurantSummary(w http.ResponseWriter, r *http.Request) {
	var rest restaurant.Restaurant
	if err := json.NewDecoder(r.Body).Decode(&rest); err != nil || rest.Name == "" {
		writeError(w, http.StatusBadRequest, "a restaurant is required")
		return
	}

	var prefs restaurant.UserPreferences
	var filters restaurant.Filters
	if session, ok := s.currentSession(); ok {
		prefs = session.Preferences()
		filters = session.Filters()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary":      reviews.Summarize(rest.ReviewSnippets),
		"distribution": reviews.RatingDistribution(rest.ReviewSnippets),
		"indicators":   matching.Indicators(rest, prefs, filters),
		"score":        matching.Score(rest, prefs, filters),
	})
}

type savePlanRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}

	var req savePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := share.DefaultName(req.Name, time.Now())
	saved, err := s.store.Save(r.Context(), name, session.Plan(), session.Filters())
	if err != nil {
		s.log.Error("failed to save plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save plan")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("failed to list plans", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	if plans == nil {
		plans = []store.SavedPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) savedPlanID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleGetSavedPlan(w http.ResponseWriter, r *http.Request) {
	id, err := s.savedPlanID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan id")
		return
	}
	saved, err := s.store.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		s.log.Error("failed to load plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteSavedPlan(w http.ResponseWriter, r *http.Request) {
	id, err := s.savedPlanID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan id")
		return
	}
	err = s.store.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		s.log.Error("failed to delete plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete plan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadSavedPlan(w http.ResponseWriter, r *http.Request) {
	session, ok := s.currentSession()
	if !ok {
		writeError(w, http.StatusBadRequest, "no active session")
		return
	}
	id, err := s.savedPlanID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan id")
		return
	}
	saved, err := s.store.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		s.log.Error("failed to load plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}

	session.ReplacePlan(saved.Plan)
	session.UpdateFilters(saved.Filters)
	s.writePlan(w, session, session.Plan())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"dineahead/internal/chat"
	"dineahead/internal/notify"
	"dineahead/internal/share"
	"dineahead/internal/store"
	"dineahead/internal/yelp"
)

type stubSearcher struct {
	resp *yelp.ChatResponse
}

func (s *stubSearcher) Chat(ctx context.Context, enriched, raw, location, chatID string) (*yelp.ChatResponse, error) {
	return s.resp, nil
}

func chatResponse(t *testing.T, body string) *yelp.ChatResponse {
	t.Helper()
	var resp yelp.ChatResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return &resp
}

func newTestServer(t *testing.T, searcher chat.Searcher) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	notifier, err := notify.New("", 0, log)
	require.NoError(t, err)

	srv := New(Options{
		Searcher: searcher,
		Store:    st,
		Proxy:    yelp.NewProxy("", "http://unused", log),
		Notifier: notifier,
		BaseURL:  "http://localhost:8080",
		Logger:   log,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func startSession(t *testing.T, ts *httptest.Server) {
	t.Helper()
	resp := post(t, ts, "/api/session", `{"filters":{"location":"02119","budget":350,"distance":5}}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func post(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartSessionRequiresLocation(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})

	resp := post(t, ts, "/api/session", `{"filters":{"location":"  ","budget":350}}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionRoutesNeedASession(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})

	resp := post(t, ts, "/api/session/messages", `{"text":"hi"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendMessageReturnsReply(t *testing.T) {
	searcher := &stubSearcher{resp: chatResponse(t,
		`{"chat_id":"c1","response":{"text":"Found some spots"},"businesses":[{"name":"Taco Town","price":"$"}]}`)}
	ts := newTestServer(t, searcher)
	startSession(t, ts)

	resp := post(t, ts, "/api/session/messages", `{"text":"find tacos"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply chat.Message
	decode(t, resp, &reply)
	require.Equal(t, chat.RoleAssistant, reply.Role)
	require.Equal(t, "Found some spots", reply.Content)
	require.Len(t, reply.Restaurants, 1)
}

func TestPlaceAndRemoveSlot(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})
	startSession(t, ts)

	resp := do(t, ts, http.MethodPut, "/api/plan/monday/lunch",
		`{"id":"r1","name":"Spot","estimated_cost":22}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TotalCost    int `json:"total_cost"`
		PlannedMeals int `json:"planned_meals"`
	}
	decode(t, resp, &body)
	require.Equal(t, 22, body.TotalCost)
	require.Equal(t, 1, body.PlannedMeals)

	resp = do(t, ts, http.MethodDelete, "/api/plan/monday/lunch", "")
	decode(t, resp, &body)
	require.Equal(t, 0, body.PlannedMeals)
}

func TestSlotValidation(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})
	startSession(t, ts)

	resp := do(t, ts, http.MethodPut, "/api/plan/someday/lunch", `{"name":"Spot"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, ts, http.MethodPut, "/api/plan/monday/snack", `{"name":"Spot"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportICS(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})
	startSession(t, ts)

	do(t, ts, http.MethodPut, "/api/plan/monday/dinner",
		`{"id":"r1","name":"Spot","estimated_cost":35}`).Body.Close()

	resp, err := http.Get(ts.URL + "/api/plan/export.ics?start=2026-08-31")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")

	ics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(ics), "BEGIN:VEVENT")
	require.Contains(t, string(ics), "SUMMARY:Dinner: Spot")
}

func TestShareLinkRoundTrips(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})
	startSession(t, ts)

	do(t, ts, http.MethodPut, "/api/plan/friday/dinner",
		`{"id":"r1","name":"Trattoria","cuisine":"Italian","estimated_cost":35}`).Body.Close()

	resp, err := http.Get(ts.URL + "/api/plan/share")
	require.NoError(t, err)
	var body struct {
		URL      string `json:"url"`
		Text     string `json:"text"`
		Notified bool   `json:"notified"`
	}
	decode(t, resp, &body)
	require.Contains(t, body.Text, "Trattoria")
	require.False(t, body.Notified)

	token := body.URL[strings.Index(body.URL, "plan=")+len("plan="):]
	summary, err := share.Decode(token, "")
	require.NoError(t, err)
	require.Equal(t, "Trattoria", summary.Days["friday"]["dinner"].Name)
}

func TestSaveListDeletePlans(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})
	startSession(t, ts)

	do(t, ts, http.MethodPut, "/api/plan/monday/lunch",
		`{"id":"r1","name":"Spot","estimated_cost":22}`).Body.Close()

	// Blank name falls back to a dated one.
	resp := post(t, ts, "/api/plans", `{"name":""}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved store.SavedPlan
	decode(t, resp, &saved)
	require.True(t, strings.HasPrefix(saved.Name, "Plan 20"), "got name %q", saved.Name)
	require.Equal(t, 22, saved.TotalCost)

	resp, err := http.Get(ts.URL + "/api/plans")
	require.NoError(t, err)
	var plans []store.SavedPlan
	decode(t, resp, &plans)
	require.Len(t, plans, 1)

	resp = do(t, ts, http.MethodDelete, "/api/plans/"+itoa(saved.ID), "")
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, ts, http.MethodDelete, "/api/plans/"+itoa(saved.ID), "")
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoadSavedPlanIntoSession(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})
	startSession(t, ts)

	do(t, ts, http.MethodPut, "/api/plan/monday/lunch",
		`{"id":"r1","name":"Spot","estimated_cost":22}`).Body.Close()
	var saved store.SavedPlan
	decode(t, post(t, ts, "/api/plans", `{"name":"Keeper"}`), &saved)

	// Clear the live plan, then restore from the saved copy.
	do(t, ts, http.MethodDelete, "/api/plan/monday/lunch", "").Body.Close()

	resp := post(t, ts, "/api/plans/"+itoa(saved.ID)+"/load", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		PlannedMeals int `json:"planned_meals"`
	}
	decode(t, resp, &body)
	require.Equal(t, 1, body.PlannedMeals)
}

func TestRestaurantSummary(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})
	startSession(t, ts)

	resp := post(t, ts, "/api/restaurants/summary", `{
		"name": "Trattoria",
		"cuisine": "Italian",
		"rating": 4.7,
		"estimated_cost": 12,
		"review_snippets": [
			{"text": "the pasta was delicious and the food amazing", "rating": 5},
			{"text": "terrific service, friendly staff", "rating": 5}
		]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Summary      []string `json:"summary"`
		Distribution []struct {
			Rating int `json:"rating"`
		} `json:"distribution"`
		Indicators []struct {
			Label string `json:"label"`
		} `json:"indicators"`
		Score int `json:"score"`
	}
	decode(t, resp, &body)
	require.NotEmpty(t, body.Summary)
	require.Len(t, body.Distribution, 1)
	require.Equal(t, 5, body.Distribution[0].Rating)
	require.NotEmpty(t, body.Indicators)
	require.GreaterOrEqual(t, body.Score, 0)
	require.LessOrEqual(t, body.Score, 100)
}

func TestProxyRouteGuardsCredential(t *testing.T) {
	ts := newTestServer(t, &stubSearcher{})

	resp := post(t, ts, "/api/yelp/chat", `{"query":"tacos"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

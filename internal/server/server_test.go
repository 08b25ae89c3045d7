package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rohan/flashdeck/internal/auth"
	"github.com/rohan/flashdeck/internal/cardgen"
	"github.com/rohan/flashdeck/internal/contrib"
	"github.com/rohan/flashdeck/internal/grading"
	"github.com/rohan/flashdeck/internal/llm"
	"github.com/rohan/flashdeck/internal/logger"
	"github.com/rohan/flashdeck/internal/store"
)

type testEnv struct {
	server   *Server
	verifier *auth.Verifier
	provider *llm.MockProvider
	userID   uuid.UUID
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	verifier, err := auth.NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	log := logger.Nop()
	provider := llm.NewMockProvider()
	contributions := st.Contributions()
	sets := st.Sets()

	srv := New(Options{
		Addr:        ":0",
		CORSOrigins: []string{"http://localhost:3000"},
		Log:         log,
		Verifier:    verifier,
		Sets:        sets,
		Aggregator:  contrib.NewAggregator(contributions, sets, log),
		Recorder:    contrib.NewRecorder(contributions, log),
		Grader:      grading.New(provider, log),
		Generator:   cardgen.New(provider, log),
	})

	userID := uuid.New()
	token, err := verifier.Sign(userID, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	return &testEnv{server: srv, verifier: verifier, provider: provider, userID: userID, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.server.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestAPI_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/stats", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestAPI_HealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil, false)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCreateSet_ValidationBeforeAnyCall(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"content": "some material"}},
		{"missing content and image", map[string]any{"title": "Biology"}},
		{"card count too high", map[string]any{"title": "Biology", "content": "material", "cardCount": 51}},
		{"card count negative", map[string]any{"title": "Biology", "content": "material", "cardCount": -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/sets", tc.body, true)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body)
			}
		})
	}
	if env.provider.CallCount() != 0 {
		t.Errorf("validation failures must not reach the model, got %d calls", env.provider.CallCount())
	}
}

func TestCreateSet_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.provider.AddResponse(llm.MockResponse{
		Content: json.RawMessage(`[{"question": "What is osmosis?", "answer": "Water diffusion"}]`),
	})

	rec := env.do(t, http.MethodPost, "/api/v1/sets", map[string]any{
		"title":     "Biology",
		"content":   "Osmosis is the diffusion of water across a membrane.",
		"cardCount": 1,
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		ID    uuid.UUID `json:"id"`
		Cards []struct {
			Question string `json:"question"`
		} `json:"cards"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Cards) != 1 || resp.Cards[0].Question != "What is osmosis?" {
		t.Errorf("unexpected cards: %+v", resp.Cards)
	}

	// The set is retrievable, and set_created shows up in stats.
	get := env.do(t, http.MethodGet, "/api/v1/sets/"+resp.ID.String(), nil, true)
	if get.Code != http.StatusOK {
		t.Errorf("expected 200 on get, got %d", get.Code)
	}

	stats := env.do(t, http.MethodGet, "/api/v1/stats", nil, true)
	var userStats contrib.UserStats
	if err := json.Unmarshal(stats.Body.Bytes(), &userStats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if userStats.SetsCount != 1 {
		t.Errorf("expected 1 set in stats, got %d", userStats.SetsCount)
	}
	if userStats.ContributionsByType[contrib.TypeSetCreated] != 1 {
		t.Errorf("expected set_created contribution, got %+v", userStats.ContributionsByType)
	}
}

func TestCompleteStudy_EmitsBonuses(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/study/complete", map[string]any{
		"setId":                 uuid.New(),
		"cardsStudied":          3,
		"correctCards":          3,
		"manualScorePercentage": 100,
		"finalScorePercentage":  100,
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Recorded     bool `json:"recorded"`
		PerfectScore bool `json:"perfectScore"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Recorded || !resp.PerfectScore {
		t.Errorf("unexpected response: %+v", resp)
	}

	stats := env.do(t, http.MethodGet, "/api/v1/stats", nil, true)
	var userStats contrib.UserStats
	if err := json.Unmarshal(stats.Body.Bytes(), &userStats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	// study_completed (1) + perfect_score (2) + first_of_day (1).
	if userStats.TotalContributions != 4 {
		t.Errorf("expected total 4, got %d", userStats.TotalContributions)
	}
	if userStats.TotalCardsStudied != 3 {
		t.Errorf("expected 3 cards studied, got %d", userStats.TotalCardsStudied)
	}
}

func TestGrade_MalformedModelOutputStillGrades(t *testing.T) {
	env := newTestEnv(t)
	env.provider.AddResponse(llm.MockResponse{
		Content: json.RawMessage(`score: 42 blah blah`),
	})

	rec := env.do(t, http.MethodPost, "/api/v1/grade", map[string]any{
		"question":       "What is osmosis?",
		"expectedAnswer": "Water diffusion across a membrane",
		"answer":         "water moves through stuff",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var result grading.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Score != 42 || result.Level != grading.LevelPartial || result.IsCorrect {
		t.Errorf("unexpected fallback grade: %+v", result)
	}
}

func TestContributions_WindowValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/contributions?from=2024-02-01&to=2024-01-01", nil, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for inverted window, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/contributions?from=not-a-date", nil, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", rec.Code)
	}
}

func TestContributions_WindowBuckets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/contributions?from=2024-01-01&to=2024-01-07", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Days map[string]contrib.DayBucket `json:"days"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Days) != 7 {
		t.Errorf("expected 7 zero-filled buckets, got %d", len(resp.Days))
	}
}

func TestAppOpen_DedupesWithinDay(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(t, http.MethodPost, "/api/v1/app-open", nil, true)
	second := env.do(t, http.MethodPost, "/api/v1/app-open", nil, true)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", first.Code, second.Code)
	}

	var a, b struct {
		Recorded bool `json:"recorded"`
	}
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if !a.Recorded || b.Recorded {
		t.Errorf("expected first open recorded and second deduped, got %v then %v", a.Recorded, b.Recorded)
	}
}

func TestDeleteSet_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/sets/"+uuid.NewString(), nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

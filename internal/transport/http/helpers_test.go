package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/memory"
)

// idleTicker never fires so sessions only move when the client drives them.
type idleTicker struct{ ch chan time.Time }

func (t *idleTicker) C() <-chan time.Time  { return t.ch }
func (t *idleTicker) Reset(time.Duration) {}
func (t *idleTicker) Stop()               {}

func idleTickers(time.Duration) app.Ticker { return &idleTicker{ch: make(chan time.Time)} }

type fixture struct {
	server   *httptest.Server
	store    *memory.Store
	sessions *memory.SessionStore
	recorder *app.Recorder
	auth     *app.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.SeedQuestions(
		domain.Question{Category: "science", Difficulty: domain.DifficultyEasy, Text: "What is H2O?", Options: []string{"Salt", "Water", "Air", "Gold"}, CorrectAnswerIndex: 1},
		domain.Question{Category: "science", Difficulty: domain.DifficultyEasy, Text: "Closest star?", Options: []string{"Moon", "Sun", "Mars", "Vega"}, CorrectAnswerIndex: 1},
	)
	store.SeedBadges(domain.Badge{ID: "first_step", Name: "First Step"})

	cache := memory.NewQuestionCache(store, time.Minute)
	sessions := memory.NewSessionStore()
	recorder := app.NewRecorder(store, store)
	auth := app.NewAuthService(store, memory.NewPrincipalStore(), app.NewTokenIssuer("test-secret", time.Hour))
	quiz := app.NewQuizService(sessions, cache, recorder, app.SessionOptions{Tickers: idleTickers})

	api := &API{
		Auth:        auth,
		Questions:   app.NewQuestionBank(store, cache),
		Dashboard:   app.NewDashboardService(store, store, store),
		Leaderboard: app.NewLeaderboardService(store, store),
	}
	server := httptest.NewServer(NewRouter(api, NewWSHandler(quiz, auth), RouterOptions{}))
	t.Cleanup(func() {
		server.Close()
		recorder.Wait()
	})
	return &fixture{server: server, store: store, sessions: sessions, recorder: recorder, auth: auth}
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out response
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// signup registers a user through the API and returns its token and id.
func (f *fixture) signup(t *testing.T, name string) (string, string) {
	t.Helper()
	status, resp := f.do(t, http.MethodPost, "/auth/signup", "", domain.SignupInput{Username: name, Email: name + "@example.com", Password: "secret"})
	if status != http.StatusCreated {
		t.Fatalf("signup %s: status %d (%s)", name, status, resp.Error)
	}
	var res struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	if err := json.Unmarshal(resp.Data, &res); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	return res.Token, res.User.ID
}

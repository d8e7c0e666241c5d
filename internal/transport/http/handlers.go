package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// API holds the use cases behind the REST routes.
type API struct {
	Auth        *app.AuthService
	Questions   *app.QuestionBank
	Dashboard   *app.DashboardService
	Leaderboard *app.LeaderboardService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var in domain.SignupInput
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := a.Auth.Signup(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := a.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.Auth.Logout(r.Context(), tokenFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	user, err := a.Auth.Me(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.Dashboard.Dashboard(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) nav(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.Visible(app.DefaultNavigation, PrincipalFromContext(r.Context())))
}

func (a *API) listQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.QuestionFilter{Category: q.Get("category"), Difficulty: domain.Difficulty(q.Get("difficulty"))}
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		writeError(w, domain.ErrInvalidDifficulty)
		return
	}
	questions, err := a.Questions.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (a *API) createQuestion(w http.ResponseWriter, r *http.Request) {
	var in domain.QuestionInput
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := a.Questions.Create(r.Context(), PrincipalFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (a *API) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var in domain.QuestionInput
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := a.Questions.Update(r.Context(), PrincipalFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := a.Questions.Delete(r.Context(), PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (a *API) categories(w http.ResponseWriter, r *http.Request) {
	counts, err := a.Questions.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (a *API) results(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			writeErr(w, http.StatusBadRequest, "limit must be between 0 and 100")
			return
		}
		limit = n
	}
	results, err := a.Dashboard.RecentResults(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Leaderboard.Top(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) badges(w http.ResponseWriter, r *http.Request) {
	badges, err := a.Dashboard.Badges(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"smart-quiz-service/internal/app"
	"smart-quiz-service/internal/domain"
	"smart-quiz-service/internal/tabular"
	"smart-quiz-service/internal/tts"
)

// API exposes the quiz core over JSON HTTP.
type API struct {
	store     app.Store
	engine    *app.Engine
	importer  *app.Importer
	analytics *app.Analytics
	speech    *tts.Client
}

func NewAPI(store app.Store, engine *app.Engine, importer *app.Importer, analytics *app.Analytics, speech *tts.Client) *API {
	return &API{store: store, engine: engine, importer: importer, analytics: analytics, speech: speech}
}

// Register wires all routes onto the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /categories", a.listCategories)
	mux.HandleFunc("POST /categories", a.createCategory)
	mux.HandleFunc("GET /categories/{id}", a.getCategory)
	mux.HandleFunc("PUT /categories/{id}", a.updateCategory)
	mux.HandleFunc("DELETE /categories/{id}", a.deleteCategory)
	mux.HandleFunc("GET /categories/{id}/questions", a.listQuestions)
	mux.HandleFunc("POST /categories/{id}/import", a.importQuestions)
	mux.HandleFunc("GET /categories/{id}/export", a.exportQuestions)

	mux.HandleFunc("POST /questions", a.createQuestion)
	mux.HandleFunc("PUT /questions/{id}", a.updateQuestion)
	mux.HandleFunc("DELETE /questions/{id}", a.deleteQuestion)

	mux.HandleFunc("POST /sessions", a.startSession)
	mux.HandleFunc("GET /sessions/{token}", a.getSession)
	mux.HandleFunc("POST /sessions/{token}/answers", a.submitAnswer)
	mux.HandleFunc("POST /sessions/{token}/complete", a.completeSession)
	mux.HandleFunc("POST /sessions/{token}/abandon", a.abandonSession)

	mux.HandleFunc("GET /analytics/categories", a.categoryAnalytics)
	mux.HandleFunc("GET /analytics/trend", a.performanceTrend)

	mux.HandleFunc("POST /speech", a.synthesize)
}

func (a *API) createCategory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	created, err := a.store.CreateCategory(r.Context(), domain.Category{Name: in.Name, Description: in.Description})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (a *API) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	category, err := a.store.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (a *API) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	updated, err := a.store.UpdateCategory(r.Context(), domain.Category{ID: id, Name: in.Name, Description: in.Description})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := a.store.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	questions, err := a.store.ListQuestions(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

type questionBody struct {
	CategoryID    int64  `json:"categoryId"`
	Text          string `json:"text"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectAnswer string `json:"correctAnswer"`
	Difficulty    string `json:"difficulty"`
}

func (b questionBody) toDomain(id int64) domain.Question {
	return domain.Question{
		ID:            id,
		CategoryID:    b.CategoryID,
		Text:          b.Text,
		OptionA:       b.OptionA,
		OptionB:       b.OptionB,
		OptionC:       b.OptionC,
		OptionD:       b.OptionD,
		CorrectAnswer: b.CorrectAnswer,
		Difficulty:    domain.Difficulty(b.Difficulty),
	}
}

func (a *API) createQuestion(w http.ResponseWriter, r *http.Request) {
	var in questionBody
	if !decodeBody(w, r, &in) {
		return
	}
	created, err := a.store.CreateQuestion(r.Context(), in.toDomain(0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) updateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in questionBody
	if !decodeBody(w, r, &in) {
		return
	}
	updated, err := a.store.UpdateQuestion(r.Context(), in.toDomain(id))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := a.store.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) importQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rows, err := tabular.Decode(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	outcome, err := a.importer.Import(r.Context(), id, rows)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) exportQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	questions, err := a.store.ListQuestions(r.Context(), id, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := tabular.Encode(w, questions); err != nil {
		log.Printf("export write failed: %v", err)
	}
}

type sessionView struct {
	Token      string              `json:"token"`
	UserName   string              `json:"userName"`
	CategoryID int64               `json:"categoryId"`
	State      domain.SessionState `json:"state"`
	Answered   int                 `json:"answered"`
	Total      int                 `json:"total"`
	Question   *domain.Question    `json:"question,omitempty"`
}

func viewSession(s *app.Session) sessionView {
	answered, total := s.Progress()
	view := sessionView{
		Token:      s.Token(),
		UserName:   s.UserName(),
		CategoryID: s.CategoryID(),
		State:      s.State(),
		Answered:   answered,
		Total:      total,
	}
	if q, ok := s.CurrentQuestion(); ok {
		q.CorrectAnswer = "" // never leak the answer to the player
		view.Question = &q
	}
	return view
}

func (a *API) startSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserName      string `json:"userName"`
		Age           int    `json:"age"`
		CategoryID    int64  `json:"categoryId"`
		QuestionCount int    `json:"questionCount"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	session, err := a.engine.Start(r.Context(), in.UserName, in.Age, in.CategoryID, in.QuestionCount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewSession(session))
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.engine.Lookup(r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSession(session))
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	session, err := a.engine.Lookup(r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		Answer string `json:"answer"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if err := a.engine.SubmitAnswer(session, in.Answer); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSession(session))
}

func (a *API) completeSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.engine.Lookup(r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := a.engine.Complete(r.Context(), session)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) abandonSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.engine.Lookup(r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.engine.Abandon(session); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) categoryAnalytics(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, domain.ErrValidation)
			return
		}
		categoryID = parsed
	}
	stats, err := a.analytics.CategoryAnalytics(r.Context(), categoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) performanceTrend(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, domain.ErrValidation)
			return
		}
		days = parsed
	}
	trend, err := a.analytics.PerformanceTrend(r.Context(), r.URL.Query().Get("user"), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (a *API) synthesize(w http.ResponseWriter, r *http.Request) {
	if a.speech == nil {
		writeError(w, domain.ErrExternalService)
		return
	}
	var in struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Voice == "" {
		in.Voice = "alloy"
	}
	audio, err := a.speech.Synthesize(r.Context(), in.Text, in.Voice)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	if _, err := w.Write(audio); err != nil {
		log.Printf("speech write failed: %v", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConstraint):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrExternalService):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrConnectivity):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

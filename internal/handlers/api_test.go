package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/security"
	"familyquest/internal/service"
)

type testAPI struct {
	mux     *http.ServeMux
	startup *StartupStatus
}

func setupAPI(t *testing.T, limiter *security.RateLimiter) *testAPI {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.Nop()
	accounts := service.NewAccountService(db, security.NewTokenManager("handler-secret", time.Hour), log)
	tasks := service.NewTaskService(db, time.UTC, log)
	achievements := service.NewAchievementService(db, log)
	families := service.NewFamilyService(db, nil, service.DefaultInviteTTL, log)
	suggestions := service.NewSuggestionService(db, nil, log)
	if _, err := achievements.SeedCatalog(context.Background()); err != nil {
		t.Fatalf("SeedCatalog() error = %v", err)
	}

	startup := NewStartupStatus(StepDatabase, StepServices)
	h := &Handlers{
		Auth:         NewAuthHandler(accounts, tasks, achievements, log),
		Tasks:        NewTaskHandler(tasks, suggestions, log),
		Family:       NewFamilyHandler(families, log),
		Achievements: NewAchievementHandler(achievements, log),
		Startup:      startup,
		DB:           db,
		Middleware:   NewMiddleware(accounts, families, limiter, log),
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return &testAPI{mux: mux, startup: startup}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}

// register creates an account and logs it in, returning its ID and token.
func (a *testAPI) register(t *testing.T, role models.Role, username string) (int64, string) {
	t.Helper()
	path := "/api/register/parent"
	body := any(RegisterParentRequest{Username: username, Password: "secret1", Name: "Parent " + username})
	if role == models.RoleChild {
		path = "/api/register/child"
		body = RegisterChildRequest{Username: username, Password: "secret1", Name: "Kid " + username, Age: 8, Interests: []string{"science"}}
	}
	expectStatus(t, a.do(t, http.MethodPost, path, "", body), http.StatusCreated)

	rec := a.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: username, Password: "secret1"})
	expectStatus(t, rec, http.StatusOK)
	var session service.Session
	decodeInto(t, rec, &session)
	return session.Account.ID, session.Token
}

func TestFamilyTaskFlow(t *testing.T) {
	api := setupAPI(t, nil)
	_, parentToken := api.register(t, models.RoleParent, "anna")
	childID, childToken := api.register(t, models.RoleChild, "mila")
	tasksPath := fmt.Sprintf("/api/children/%d/tasks", childID)

	// Not linked yet
	expectStatus(t, api.do(t, http.MethodGet, tasksPath, parentToken, nil), http.StatusForbidden)

	rec := api.do(t, http.MethodPost, "/api/invitations", parentToken, InviteCreateRequest{ChildName: "Mila"})
	expectStatus(t, rec, http.StatusCreated)
	var inv models.Invitation
	decodeInto(t, rec, &inv)

	var accepted AcceptInviteResponse
	rec = api.do(t, http.MethodPost, "/api/invitations/accept", childToken, AcceptInviteRequest{Code: inv.Code})
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &accepted)
	if !accepted.Linked {
		t.Fatal("first acceptance did not link")
	}
	rec = api.do(t, http.MethodPost, "/api/invitations/accept", childToken, AcceptInviteRequest{Code: inv.Code})
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &accepted)
	if accepted.Linked {
		t.Error("used code linked again")
	}

	var children []models.Account
	rec = api.do(t, http.MethodGet, "/api/parents/me/children", parentToken, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &children)
	if len(children) != 1 || children[0].ID != childID {
		t.Fatalf("children = %+v", children)
	}

	points := 20
	rec = api.do(t, http.MethodPost, tasksPath, parentToken, CreateTaskRequest{
		Title: "Grow crystals", Description: "Salt and a jar", Category: "science",
		Difficulty: models.DifficultyEasy, Points: &points, DueOn: "2099-01-01",
	})
	expectStatus(t, rec, http.StatusCreated)
	var task models.Task
	decodeInto(t, rec, &task)
	if task.Points != 20 || task.CreatedBy == nil || task.Source != models.SourceManual {
		t.Fatalf("created task = %+v", task)
	}

	var active []models.Task
	rec = api.do(t, http.MethodGet, tasksPath, childToken, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &active)
	if len(active) != 1 {
		t.Fatalf("active tasks = %d, want 1", len(active))
	}

	completePath := fmt.Sprintf("/api/tasks/%d/complete", task.ID)
	expectStatus(t, api.do(t, http.MethodPost, completePath, parentToken, nil), http.StatusForbidden)

	var result models.CompletionResult
	rec = api.do(t, http.MethodPost, completePath, childToken, CompleteTaskRequest{ProofRef: "photo-1"})
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &result)
	if result.PointsAwarded != 30 || len(result.NewAchievements) != 1 || result.NewAchievements[0].Code != "first_task" {
		t.Errorf("first completion = %+v", result)
	}

	rec = api.do(t, http.MethodPost, completePath, childToken, nil)
	expectStatus(t, rec, http.StatusOK)
	result = models.CompletionResult{}
	decodeInto(t, rec, &result)
	if result.PointsAwarded != 0 || len(result.NewAchievements) != 0 {
		t.Errorf("repeat completion = %+v, want zero", result)
	}

	var progress ProgressView
	rec = api.do(t, http.MethodGet, "/api/me/progress", childToken, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &progress)
	if progress.Account.Points != 30 || progress.Stats.TasksCompleted != 1 || len(progress.Achievements) != 1 {
		t.Errorf("progress = %+v", progress)
	}
	if progress.Level.CurrentLevel != 1 || progress.Level.PointsNeeded != 170 {
		t.Errorf("level band = %+v", progress.Level)
	}

	var completed []models.Task
	rec = api.do(t, http.MethodGet, tasksPath+"/completed", parentToken, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &completed)
	if len(completed) != 1 || completed[0].ProofRef != "photo-1" {
		t.Errorf("completed = %+v", completed)
	}

	var parents []models.Account
	rec = api.do(t, http.MethodGet, fmt.Sprintf("/api/children/%d/parents", childID), childToken, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &parents)
	if len(parents) != 1 || parents[0].Username != "anna" {
		t.Errorf("parents = %+v", parents)
	}
}

func TestTemplateAndSuggestionRoutes(t *testing.T) {
	api := setupAPI(t, nil)
	childID, token := api.register(t, models.RoleChild, "uma")
	base := fmt.Sprintf("/api/children/%d/tasks", childID)

	var templates []models.TaskTemplate
	rec := api.do(t, http.MethodGet, "/api/task-templates", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &templates)
	if len(templates) == 0 {
		t.Fatal("no task templates")
	}

	rec = api.do(t, http.MethodPost, base+"/from-template", token, TemplateTaskRequest{TemplateKey: templates[0].Key})
	expectStatus(t, rec, http.StatusCreated)
	var task models.Task
	decodeInto(t, rec, &task)
	if task.Source != models.SourceTemplate || task.Points != templates[0].Points {
		t.Errorf("template task = %+v", task)
	}

	expectStatus(t, api.do(t, http.MethodPost, base+"/from-template", token, TemplateTaskRequest{TemplateKey: "nope"}), http.StatusNotFound)

	// No generation backend is configured, so the static library answers
	var resp SuggestResponse
	rec = api.do(t, http.MethodPost, base+"/suggest", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &resp)
	if resp.Suggestion == nil || resp.Suggestion.Source != models.SourceFallback || resp.Task != nil {
		t.Errorf("suggest = %+v", resp)
	}

	resp = SuggestResponse{}
	rec = api.do(t, http.MethodPost, base+"/suggest", token, SuggestRequest{Category: "sport", Difficulty: models.DifficultyEasy, Save: true})
	expectStatus(t, rec, http.StatusCreated)
	decodeInto(t, rec, &resp)
	if resp.Task == nil || resp.Task.Category != "sport" || resp.Task.CreatedBy != nil || resp.Task.Source != models.SourceFallback {
		t.Errorf("saved suggestion = %+v", resp.Task)
	}

	var quest []service.Suggestion
	rec = api.do(t, http.MethodPost, base+"/quest", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &quest)
	if len(quest) != service.DefaultDailyTasks {
		t.Fatalf("quest = %d ideas, want %d", len(quest), service.DefaultDailyTasks)
	}
	if quest[0].Source != models.SourceFallback || quest[0].Proposal.Category != "science" {
		t.Errorf("quest[0] = %+v, want fallback science idea", quest[0])
	}

	quest = nil
	rec = api.do(t, http.MethodPost, base+"/quest", token, QuestRequest{Count: 50})
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &quest)
	if len(quest) != service.MaxQuestTasks {
		t.Errorf("quest = %d ideas, want capped at %d", len(quest), service.MaxQuestTasks)
	}

	var catalog []models.AchievementDefinition
	rec = api.do(t, http.MethodGet, "/api/achievements", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &catalog)
	if len(catalog) != 10 {
		t.Errorf("catalog = %d entries, want 10", len(catalog))
	}

	var unlocked []models.UnlockedAchievement
	rec = api.do(t, http.MethodGet, fmt.Sprintf("/api/children/%d/achievements", childID), token, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeInto(t, rec, &unlocked)
	if unlocked == nil || len(unlocked) != 0 {
		t.Errorf("unlocked = %v, want empty list", unlocked)
	}
}

func TestRequestErrors(t *testing.T) {
	api := setupAPI(t, nil)
	childID, childToken := api.register(t, models.RoleChild, "kai")
	otherID, otherToken := api.register(t, models.RoleChild, "ola")
	_, parentToken := api.register(t, models.RoleParent, "ben")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"missing token", http.MethodGet, "/api/me", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/me", "not-a-jwt", nil, http.StatusUnauthorized},
		{"another child's tasks", http.MethodGet, fmt.Sprintf("/api/children/%d/tasks", childID), otherToken, nil, http.StatusForbidden},
		{"bad child id", http.MethodGet, "/api/children/abc/tasks", childToken, nil, http.StatusBadRequest},
		{"bad task id", http.MethodPost, "/api/tasks/x/complete", childToken, nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, fmt.Sprintf("/api/children/%d/tasks?limit=many", childID), childToken, nil, http.StatusBadRequest},
		{"parent only", http.MethodPost, "/api/invitations", childToken, nil, http.StatusForbidden},
		{"child only", http.MethodGet, "/api/me/progress", parentToken, nil, http.StatusForbidden},
		{"duplicate username", http.MethodPost, "/api/register/child", "", RegisterChildRequest{Username: "kai", Password: "secret1", Name: "Kai", Age: 9}, http.StatusConflict},
		{"invalid age", http.MethodPost, "/api/register/child", "", RegisterChildRequest{Username: "baby", Password: "secret1", Name: "Baby", Age: 1}, http.StatusBadRequest},
		{"wrong password", http.MethodPost, "/api/login", "", LoginRequest{Username: "kai", Password: "nope"}, http.StatusUnauthorized},
		{"empty task", http.MethodPost, fmt.Sprintf("/api/children/%d/tasks", otherID), otherToken, CreateTaskRequest{Category: "sport"}, http.StatusBadRequest},
		{"bad due date", http.MethodPost, fmt.Sprintf("/api/children/%d/tasks", otherID), otherToken, CreateTaskRequest{Title: "a", Description: "b", DueOn: "tomorrow"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/login", "", map[string]string{"user": "kai"}, http.StatusBadRequest},
		{"another child's quest", http.MethodPost, fmt.Sprintf("/api/children/%d/tasks/quest", childID), otherToken, nil, http.StatusForbidden},
		{"bad quest body", http.MethodPost, fmt.Sprintf("/api/children/%d/tasks/quest", childID), childToken, map[string]int{"size": 2}, http.StatusBadRequest},
		{"completing unknown task", http.MethodPost, "/api/tasks/9999/complete", childToken, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLoginRateLimit(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	api := setupAPI(t, limiter)

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "ghost", Password: "secret1"})
		expectStatus(t, rec, http.StatusUnauthorized)
	}
	rec := api.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "ghost", Password: "secret1"})
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestHealthz(t *testing.T) {
	api := setupAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusServiceUnavailable)

	api.startup.CompleteStep(StepDatabase)
	var resp healthResponse
	decodeInto(t, api.do(t, http.MethodGet, "/healthz", "", nil), &resp)
	if resp.Status != "starting" || resp.Progress != 50 {
		t.Errorf("starting health = %+v", resp)
	}

	api.startup.MarkReady()
	rec = api.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)
}

func TestLoggingSetsRequestID(t *testing.T) {
	log, logs := observedLogger()
	var seen string
	handler := Logging(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if seen == "" || rec.Header().Get(requestIDHeader) != seen {
		t.Errorf("request id = %q, header %q", seen, rec.Header().Get(requestIDHeader))
	}
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 || entries[0].ContextMap()["status"] != int64(http.StatusTeapot) {
		t.Errorf("log entries = %+v", entries)
	}
}

package handlers

import "net/http"

// Handlers bundles everything the router needs
type Handlers struct {
	Auth         *AuthHandler
	Tasks        *TaskHandler
	Family       *FamilyHandler
	Achievements *AchievementHandler
	Startup      *StartupStatus
	DB           pinger
	Middleware   *Middleware
}

// Register wires every API route onto mux
func (h *Handlers) Register(mux *http.ServeMux) {
	m := h.Middleware

	mux.HandleFunc("GET /healthz", h.Startup.Health(h.DB))

	// Public routes
	mux.HandleFunc("POST /api/register/child", m.RateLimit(h.Auth.RegisterChild))
	mux.HandleFunc("POST /api/register/parent", m.RateLimit(h.Auth.RegisterParent))
	mux.HandleFunc("POST /api/login", m.RateLimit(h.Auth.Login))

	// Any authenticated account
	mux.HandleFunc("GET /api/me", m.RequireAuth(h.Auth.Me))
	mux.HandleFunc("GET /api/task-templates", m.RequireAuth(h.Tasks.Templates))
	mux.HandleFunc("GET /api/achievements", m.RequireAuth(h.Achievements.Catalog))

	// Child routes
	mux.HandleFunc("GET /api/me/progress", m.RequireChild(h.Auth.Progress))
	mux.HandleFunc("POST /api/tasks/{id}/complete", m.RequireChild(h.Tasks.Complete))
	mux.HandleFunc("POST /api/invitations/accept", m.RequireChild(h.Family.AcceptInvitation))

	// Parent routes
	mux.HandleFunc("POST /api/invitations", m.RequireParent(h.Family.CreateInvitation))
	mux.HandleFunc("GET /api/invitations", m.RequireParent(h.Family.ListInvitations))
	mux.HandleFunc("GET /api/parents/me/children", m.RequireParent(h.Family.MyChildren))

	// The child itself or a linked parent
	mux.HandleFunc("GET /api/children/{id}/tasks", m.RequireChildAccess(h.Tasks.ListActive))
	mux.HandleFunc("GET /api/children/{id}/tasks/daily", m.RequireChildAccess(h.Tasks.ListDaily))
	mux.HandleFunc("GET /api/children/{id}/tasks/completed", m.RequireChildAccess(h.Tasks.ListCompleted))
	mux.HandleFunc("POST /api/children/{id}/tasks", m.RequireChildAccess(h.Tasks.Create))
	mux.HandleFunc("POST /api/children/{id}/tasks/from-template", m.RequireChildAccess(h.Tasks.CreateFromTemplate))
	mux.HandleFunc("POST /api/children/{id}/tasks/suggest", m.RequireChildAccess(h.Tasks.Suggest))
	mux.HandleFunc("POST /api/children/{id}/tasks/quest", m.RequireChildAccess(h.Tasks.Quest))
	mux.HandleFunc("GET /api/children/{id}/achievements", m.RequireChildAccess(h.Achievements.Unlocked))
	mux.HandleFunc("GET /api/children/{id}/parents", m.RequireChildAccess(h.Family.Parents))
}

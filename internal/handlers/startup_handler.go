package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	ready    bool
	current  string
	progress int
	steps    []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// Startup step names used by cmd/server.
const (
	StepDatabase     = "Database connection"
	StepMigrations   = "Running migrations"
	StepAchievements = "Seeding achievements"
	StepServices     = "Initializing services"
)

// NewStartupStatus creates a tracker for the named steps
func NewStartupStatus(names ...string) *StartupStatus {
	steps := make([]StartupStep, len(names))
	for i, name := range names {
		steps[i] = StartupStep{Name: name}
	}
	return &StartupStatus{current: "Initializing...", steps: steps}
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// CompleteStep marks a step as completed and updates progress
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := 0
	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
		}
		if s.steps[i].Completed {
			completed++
		}
	}
	if len(s.steps) > 0 {
		s.progress = (completed * 100) / len(s.steps)
	}
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = "Server ready"
	s.progress = 100
}

type healthResponse struct {
	Status   string        `json:"status"`
	Current  string        `json:"current,omitempty"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps,omitempty"`
	Database string        `json:"database,omitempty"`
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports readiness. It answers 503 while starting up or when the
// database stops responding.
func (s *StartupStatus) Health(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		resp := healthResponse{
			Status:   "starting",
			Current:  s.current,
			Progress: s.progress,
			Steps:    append([]StartupStep(nil), s.steps...),
		}
		ready := s.ready
		s.mu.RUnlock()

		if !ready {
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Progress: 100, Database: "unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Progress: 100, Database: "ok"})
	}
}

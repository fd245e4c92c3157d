package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"familyquest/internal/models"
	"familyquest/internal/progression"
	"familyquest/internal/service"
	"familyquest/internal/validation"
)

type RegisterChildRequest struct {
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Interests []string `json:"interests"`
}

type RegisterParentRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProgressView is the child dashboard: level band, stats and badges.
type ProgressView struct {
	Account      *models.Account              `json:"account"`
	Level        progression.LevelProgress    `json:"level"`
	Stats        models.ChildStats            `json:"stats"`
	Achievements []models.UnlockedAchievement `json:"achievements"`
}

type CreateTaskRequest struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Category      string            `json:"category"`
	Difficulty    models.Difficulty `json:"difficulty"`
	Points        *int              `json:"points,omitempty"`
	Emoji         string            `json:"emoji"`
	PhotoRequired bool              `json:"photo_required"`
	DueOn         string            `json:"due_on,omitempty"`
}

type TemplateTaskRequest struct {
	TemplateKey string `json:"template_key"`
}

// SuggestRequest asks for one idea. With Save the idea is persisted as a
// task straight away.
type SuggestRequest struct {
	Category   string            `json:"category"`
	Difficulty models.Difficulty `json:"difficulty"`
	Save       bool              `json:"save"`
}

// QuestRequest asks for a set of varied ideas. Count defaults to the
// daily quest size.
type QuestRequest struct {
	Count int `json:"count"`
}

type SuggestResponse struct {
	Suggestion *service.Suggestion `json:"suggestion"`
	Task       *models.Task        `json:"task,omitempty"`
}

type CompleteTaskRequest struct {
	ProofRef string `json:"proof_ref"`
}

type InviteCreateRequest struct {
	ChildName string `json:"child_name"`
	Email     string `json:"email"`
}

type AcceptInviteRequest struct {
	Code string `json:"code"`
}

type AcceptInviteResponse struct {
	Linked bool `json:"linked"`
}

var errEmptyBody = errors.New("empty body")

// decodeJSON reads a bounded JSON body into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// queryLimit parses ?limit=. Missing or non-positive means unbounded.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.ValidationError{Field: "limit", Message: "must be a number"}
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

func parseDueOn(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	day, err := progression.ParseDate(raw)
	if err != nil {
		return nil, validation.ValidationError{Field: "due_on", Message: "must be a date like 2006-01-02"}
	}
	return &day, nil
}

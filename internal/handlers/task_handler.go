package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/service"
)

// TaskHandler serves task creation, listing and completion
type TaskHandler struct {
	taskService       *service.TaskService
	suggestionService *service.SuggestionService
	log               *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *service.TaskService, suggestionService *service.SuggestionService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		suggestionService: suggestionService,
		log:               log,
	}
}

// ListActive returns the child's pending tasks. Read failures degrade to an
// empty list.
func (h *TaskHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	childID := GetChildIDFromContext(r.Context())
	limit, err := queryLimit(r)
	if err != nil {
		respondWithServiceError(w, h.log, "", err)
		return
	}

	tasks, err := h.taskService.ListActiveTasks(r.Context(), childID, limit)
	if err != nil {
		h.log.Error("Failed to list active tasks", "child_id", childID, "error", err)
		tasks = nil
	}
	writeJSON(w, http.StatusOK, orEmpty(tasks))
}

// ListDaily returns today's selection
func (h *TaskHandler) ListDaily(w http.ResponseWriter, r *http.Request) {
	childID := GetChildIDFromContext(r.Context())
	limit, err := queryLimit(r)
	if err != nil {
		respondWithServiceError(w, h.log, "", err)
		return
	}

	tasks, err := h.taskService.ListDailyTasks(r.Context(), childID, limit)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list daily tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(tasks))
}

// ListCompleted returns the child's completion history
func (h *TaskHandler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	childID := GetChildIDFromContext(r.Context())
	limit, err := queryLimit(r)
	if err != nil {
		respondWithServiceError(w, h.log, "", err)
		return
	}

	tasks, err := h.taskService.ListCompletedTasks(r.Context(), childID, limit)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to list completed tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(tasks))
}

// Create adds a manual task for the child
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	childID := GetChildIDFromContext(r.Context())
	account := GetAccountFromContext(r.Context())

	var req CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode task", err)
		return
	}
	dueOn, err := parseDueOn(req.DueOn)
	if err != nil {
		respondWithServiceError(w, h.log, "", err)
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), service.TaskInput{
		ChildID:       childID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Difficulty:    req.Difficulty,
		Points:        req.Points,
		Emoji:         req.Emoji,
		PhotoRequired: req.PhotoRequired,
		DueOn:         dueOn,
		CreatedBy:     &account.ID,
		Source:        models.SourceManual,
	})
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// CreateFromTemplate adds a task from the built-in library
func (h *TaskHandler) CreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	childID := GetChildIDFromContext(r.Context())
	account := GetAccountFromContext(r.Context())

	var req TemplateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode template request", err)
		return
	}

	task, err := h.taskService.CreateTaskFromTemplate(r.Context(), childID, req.TemplateKey, &account.ID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to create task from template", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Suggest proposes a task idea and optionally saves it
func (h *TaskHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	childID := GetChildIDFromContext(r.Context())

	var req SuggestRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode suggestion request", err)
		return
	}

	suggestion, err := h.suggestionService.Suggest(r.Context(), childID, req.Category, req.Difficulty)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to suggest task", err)
		return
	}

	resp := SuggestResponse{Suggestion: suggestion}
	status := http.StatusOK
	if req.Save {
		difficulty := req.Difficulty
		if difficulty == "" {
			difficulty = models.DifficultyMedium
		}
		// Generated tasks have no human creator.
		task, err := h.taskService.CreateTaskFromProposal(r.Context(), childID, suggestion.Proposal, difficulty, suggestion.Source, nil)
		if err != nil {
			respondWithServiceError(w, h.log, "Failed to save suggested task", err)
			return
		}
		resp.Task = task
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// Quest proposes a handful of ideas at once. Nothing is saved.
func (h *TaskHandler) Quest(w http.ResponseWriter, r *http.Request) {
	childID := GetChildIDFromContext(r.Context())

	var req QuestRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode quest request", err)
		return
	}

	quest, err := h.suggestionService.SuggestQuest(r.Context(), childID, req.Count)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to suggest quest", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(quest))
}

// Complete marks one of the caller's tasks done. Repeats answer with a zero
// result.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r.Context())
	taskID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || taskID <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", ErrInvalidID)
		return
	}

	var req CompleteTaskRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode completion", err)
		return
	}

	result, err := h.taskService.CompleteTask(r.Context(), taskID, account.ID, req.ProofRef)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to complete task", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Templates lists the built-in task library
func (h *TaskHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.taskService.TaskTemplates())
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

package handlers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/progression"
	"familyquest/internal/service"
)

// AuthHandler handles registration, login and the caller's own profile
type AuthHandler struct {
	accountService     *service.AccountService
	taskService        *service.TaskService
	achievementService *service.AchievementService
	log                *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accountService *service.AccountService, taskService *service.TaskService, achievementService *service.AchievementService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		accountService:     accountService,
		taskService:        taskService,
		achievementService: achievementService,
		log:                log,
	}
}

// RegisterChild creates a child account
func (h *AuthHandler) RegisterChild(w http.ResponseWriter, r *http.Request) {
	var req RegisterChildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode child registration", err)
		return
	}

	account, err := h.accountService.RegisterChild(r.Context(), service.ChildRegistration{
		Username:  req.Username,
		Password:  req.Password,
		Name:      req.Name,
		Age:       req.Age,
		Interests: req.Interests,
	})
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to register child", err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// RegisterParent creates a parent account
func (h *AuthHandler) RegisterParent(w http.ResponseWriter, r *http.Request) {
	var req RegisterParentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode parent registration", err)
		return
	}

	account, err := h.accountService.RegisterParent(r.Context(), service.ParentRegistration{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
	})
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to register parent", err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// Login issues a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidJSON, "Failed to decode login", err)
		return
	}

	session, err := h.accountService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithServiceError(w, h.log, "Login failed", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Me returns the authenticated account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GetAccountFromContext(r.Context()))
}

// Progress returns the child's level band, stats and unlocked achievements
func (h *AuthHandler) Progress(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r.Context())

	var (
		stats    models.ChildStats
		unlocked []models.UnlockedAchievement
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		stats, err = h.taskService.ChildStats(ctx, account.ID)
		return err
	})
	g.Go(func() error {
		var err error
		unlocked, err = h.achievementService.Unlocked(ctx, account.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		respondWithServiceError(w, h.log, "Failed to load child progress", err)
		return
	}

	writeJSON(w, http.StatusOK, ProgressView{
		Account:      account,
		Level:        progression.NextLevelRequirement(account.Points),
		Stats:        stats,
		Achievements: orEmpty(unlocked),
	})
}

package handlers

import (
	"net/http"

	"familyquest/internal/logger"
	"familyquest/internal/service"
)

type AchievementHandler struct {
	achievementService *service.AchievementService
	log                *logger.Logger
}

func NewAchievementHandler(achievementService *service.AchievementService, log *logger.Logger) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService, log: log}
}

// Catalog lists every achievement definition
func (h *AchievementHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	defs, err := h.achievementService.Catalog(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load achievement catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(defs))
}

// Unlocked lists a child's achievements
func (h *AchievementHandler) Unlocked(w http.ResponseWriter, r *http.Request) {
	childID := GetChildIDFromContext(r.Context())

	unlocked, err := h.achievementService.Unlocked(r.Context(), childID)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed to load unlocked achievements", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(unlocked))
}

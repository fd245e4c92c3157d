package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/progression"
	"familyquest/internal/repository"
)

//go:embed achievements.json
var catalogJSON []byte

// DefaultCatalog returns the built-in achievement definitions in evaluation order.
func DefaultCatalog() ([]models.AchievementDefinition, error) {
	var defs []models.AchievementDefinition
	if err := json.Unmarshal(catalogJSON, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse achievement catalog: %w", err)
	}
	for i := range defs {
		defs[i].SortOrder = (i + 1) * 10
	}
	return defs, nil
}

// AchievementService manages the catalog and per-child unlocks
type AchievementService struct {
	db           *database.DB
	accounts     *repository.AccountRepository
	achievements *repository.AchievementRepository
	log          *logger.Logger
	now          func() time.Time
}

// NewAchievementService creates a new achievement service
func NewAchievementService(db *database.DB, log *logger.Logger) *AchievementService {
	return &AchievementService{
		db:           db,
		accounts:     repository.NewAccountRepository(db),
		achievements: repository.NewAchievementRepository(db),
		log:          log,
		now:          time.Now,
	}
}

// SeedCatalog inserts any missing built-in definitions. Existing rows are
// left untouched, so it is safe to call on every start.
func (s *AchievementService) SeedCatalog(ctx context.Context) (int, error) {
	defs, err := DefaultCatalog()
	if err != nil {
		return 0, err
	}
	inserted := 0
	for i := range defs {
		ok, err := s.achievements.InsertDefinition(ctx, &defs[i])
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	if inserted > 0 {
		s.log.Info("achievement catalog seeded", "inserted", inserted)
	}
	return inserted, nil
}

// Catalog returns every definition in evaluation order
func (s *AchievementService) Catalog(ctx context.Context) ([]models.AchievementDefinition, error) {
	defs, err := s.achievements.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement catalog: %w", err)
	}
	return defs, nil
}

// Unlocked returns the child's achievements, newest first
func (s *AchievementService) Unlocked(ctx context.Context, childID int64) ([]models.UnlockedAchievement, error) {
	unlocked, err := s.achievements.ListUnlocked(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked achievements: %w", err)
	}
	return unlocked, nil
}

// CheckAndUnlock evaluates the locked definitions against stats, records the
// satisfied ones and credits their rewards to the child. Rewards do not
// trigger another evaluation pass.
func (s *AchievementService) CheckAndUnlock(ctx context.Context, childID int64, stats models.ChildStats) ([]models.AchievementDefinition, error) {
	var unlocked []models.AchievementDefinition
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		accounts := s.accounts.WithTx(tx)
		child, err := accounts.GetByIDForUpdate(ctx, childID)
		if err != nil {
			return err
		}
		if child == nil || !child.IsChild() {
			return ErrChildNotFound
		}

		var bonus int
		unlocked, bonus, err = unlockSatisfied(ctx, s.achievements.WithTx(tx), childID, stats, s.now().UTC())
		if err != nil {
			return err
		}
		if bonus == 0 {
			return nil
		}
		child.Points += bonus
		child.Level = progression.LevelForPoints(child.Points)
		return accounts.UpdateProgress(ctx, child)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check achievements: %w", err)
	}
	for _, def := range unlocked {
		s.log.Info("achievement unlocked", "child_id", childID, "achievement", def.Code)
	}
	return unlocked, nil
}

// unlockSatisfied is shared by CheckAndUnlock and task completion. It must
// run inside the caller's transaction. A lost insert race means another
// request already granted the achievement, so no reward is added for it.
func unlockSatisfied(ctx context.Context, repo *repository.AchievementRepository, childID int64, stats models.ChildStats, at time.Time) ([]models.AchievementDefinition, int, error) {
	locked, err := repo.ListLocked(ctx, childID)
	if err != nil {
		return nil, 0, err
	}

	unlocked := []models.AchievementDefinition{}
	bonus := 0
	for _, def := range locked {
		if !def.SatisfiedBy(stats) {
			continue
		}
		inserted, err := repo.InsertUnlock(ctx, childID, def.ID, at)
		if err != nil {
			return nil, 0, err
		}
		if !inserted {
			continue
		}
		unlocked = append(unlocked, def)
		bonus += def.RewardPoints
	}
	return unlocked, bonus, nil
}

// loadStats aggregates the completion statistics the engine evaluates.
func loadStats(ctx context.Context, tasks *repository.TaskRepository, child *models.Account) (models.ChildStats, error) {
	counts, err := tasks.CompletionCounts(ctx, child.ID)
	if err != nil {
		return models.ChildStats{}, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return models.ChildStats{
		TasksCompleted: total,
		Points:         child.Points,
		StreakDays:     child.StreakDays,
		CategoryCounts: counts,
	}, nil
}

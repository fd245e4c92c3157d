package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/progression"
	"familyquest/internal/repository"
	"familyquest/internal/validation"
)

// DefaultDailyTasks is how many tasks the daily view shows when no limit is given.
const DefaultDailyTasks = 3

// TaskInput describes a task to create. A nil Points derives the reward from
// the child's profile.
type TaskInput struct {
	ChildID       int64
	Title         string
	Description   string
	Category      string
	Difficulty    models.Difficulty
	Points        *int
	Emoji         string
	PhotoRequired bool
	DueOn         *time.Time
	CreatedBy     *int64
	Source        models.TaskSource
}

// TaskService owns the task lifecycle
type TaskService struct {
	db           *database.DB
	accounts     *repository.AccountRepository
	tasks        *repository.TaskRepository
	achievements *repository.AchievementRepository
	loc          *time.Location
	log          *logger.Logger
	now          func() time.Time
}

// NewTaskService creates a new task service. loc decides where a day starts
// for streak purposes.
func NewTaskService(db *database.DB, loc *time.Location, log *logger.Logger) *TaskService {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskService{
		db:           db,
		accounts:     repository.NewAccountRepository(db),
		tasks:        repository.NewTaskRepository(db),
		achievements: repository.NewAchievementRepository(db),
		loc:          loc,
		log:          log,
		now:          time.Now,
	}
}

// CreateTask validates and stores a new pending task
func (s *TaskService) CreateTask(ctx context.Context, in TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	category := strings.ToLower(strings.TrimSpace(in.Category))

	if err := validation.ValidateTaskTitle(title); err != nil {
		return nil, err
	}
	if err := validation.ValidateTaskDescription(description); err != nil {
		return nil, err
	}
	if err := validation.ValidateCategory(category); err != nil {
		return nil, err
	}
	if err := validation.ValidateDifficulty(in.Difficulty); err != nil {
		return nil, err
	}
	if in.Points != nil {
		if err := validation.ValidateTaskPoints(*in.Points); err != nil {
			return nil, err
		}
	}

	child, err := s.accounts.GetByID(ctx, in.ChildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || !child.IsChild() {
		return nil, ErrChildNotFound
	}

	points := progression.TaskPoints(in.Difficulty, child.Age, category, child.StreakDays)
	if in.Points != nil {
		points = *in.Points
	}
	emoji := strings.TrimSpace(in.Emoji)
	if emoji == "" {
		emoji = models.CategoryEmoji(category)
	}
	source := in.Source
	if source == "" {
		source = models.SourceManual
	}
	var dueOn *time.Time
	if in.DueOn != nil {
		d := progression.Date(*in.DueOn, time.UTC)
		dueOn = &d
	}

	task := &models.Task{
		ChildID:       child.ID,
		Title:         title,
		Description:   description,
		Category:      category,
		Difficulty:    in.Difficulty,
		Points:        points,
		Emoji:         emoji,
		PhotoRequired: in.PhotoRequired,
		DueOn:         dueOn,
		CreatedBy:     in.CreatedBy,
		Source:        source,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.log.Debug("task created", "task_id", task.ID, "child_id", child.ID, "points", task.Points, "source", task.Source)
	return task, nil
}

// TaskTemplates returns the built-in task library
func (s *TaskService) TaskTemplates() []models.TaskTemplate {
	out := make([]models.TaskTemplate, len(taskLibrary))
	copy(out, taskLibrary)
	return out
}

// CreateTaskFromTemplate creates a task from a library entry, keeping the
// template's fixed reward
func (s *TaskService) CreateTaskFromTemplate(ctx context.Context, childID int64, key string, createdBy *int64) (*models.Task, error) {
	tmpl, ok := findTemplate(key)
	if !ok {
		return nil, ErrTemplateNotFound
	}
	points := tmpl.Points
	return s.CreateTask(ctx, TaskInput{
		ChildID:     childID,
		Title:       tmpl.Title,
		Description: tmpl.Description,
		Category:    tmpl.Category,
		Difficulty:  tmpl.Difficulty,
		Points:      &points,
		Emoji:       tmpl.Emoji,
		CreatedBy:   createdBy,
		Source:      models.SourceTemplate,
	})
}

// CreateTaskFromProposal persists a generated or fallback suggestion. The
// proposal goes through the same validation as a manual task.
func (s *TaskService) CreateTaskFromProposal(ctx context.Context, childID int64, p models.TaskProposal, difficulty models.Difficulty, source models.TaskSource, createdBy *int64) (*models.Task, error) {
	description := strings.TrimSpace(p.Description)
	if len(p.Materials) > 0 {
		description += "\n\nMaterials: " + strings.Join(p.Materials, ", ")
	}
	if len(p.Tips) > 0 {
		description += "\nTips: " + strings.Join(p.Tips, "; ")
	}
	if len([]rune(description)) > validation.MaxDescription {
		description = strings.TrimSpace(p.Description)
	}
	return s.CreateTask(ctx, TaskInput{
		ChildID:       childID,
		Title:         p.Title,
		Description:   description,
		Category:      p.Category,
		Difficulty:    difficulty,
		PhotoRequired: p.PhotoOpportunity,
		CreatedBy:     createdBy,
		Source:        source,
	})
}

// ListActiveTasks returns the child's pending tasks, newest first. limit <= 0 means all.
func (s *TaskService) ListActiveTasks(ctx context.Context, childID int64, limit int) ([]models.Task, error) {
	return s.tasks.ListActive(ctx, childID, limit)
}

// ListDailyTasks returns the pending tasks that are not overdue today
func (s *TaskService) ListDailyTasks(ctx context.Context, childID int64, limit int) ([]models.Task, error) {
	if limit <= 0 {
		limit = DefaultDailyTasks
	}
	return s.tasks.ListDue(ctx, childID, progression.Date(s.now(), s.loc), limit)
}

// ListCompletedTasks returns the child's history, most recent completion first
func (s *TaskService) ListCompletedTasks(ctx context.Context, childID int64, limit int) ([]models.Task, error) {
	return s.tasks.ListCompleted(ctx, childID, limit)
}

// ChildStats returns the statistics the achievement engine uses
func (s *TaskService) ChildStats(ctx context.Context, childID int64) (models.ChildStats, error) {
	child, err := s.accounts.GetByID(ctx, childID)
	if err != nil {
		return models.ChildStats{}, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil || !child.IsChild() {
		return models.ChildStats{}, ErrChildNotFound
	}
	stats, err := loadStats(ctx, s.tasks, child)
	if err != nil {
		return models.ChildStats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}

// CompleteTask marks a task done and applies every consequence in one
// transaction: streak, points, achievements and level. A missing, foreign or
// already completed task yields a zero result and no error, so retries never
// award twice.
func (s *TaskService) CompleteTask(ctx context.Context, taskID, childID int64, proofRef string) (models.CompletionResult, error) {
	now := s.now().UTC()
	today := progression.Date(now, s.loc)
	proofRef = strings.TrimSpace(proofRef)

	var result models.CompletionResult
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		tasks := s.tasks.WithTx(tx)
		accounts := s.accounts.WithTx(tx)

		// Locking the child row first serializes completions of different
		// tasks for the same child on PostgreSQL and MySQL. Every later read
		// in this transaction then sees the previous completion's commit.
		child, err := accounts.GetByIDForUpdate(ctx, childID)
		if err != nil {
			return err
		}
		if child == nil || !child.IsChild() {
			return nil
		}

		task, err := tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if task == nil || task.ChildID != childID || task.Completed {
			return nil
		}

		// The conditional update is the real guard; the read above only
		// avoids work for obvious no-ops
		ok, err := tasks.MarkCompleted(ctx, taskID, childID, now, proofRef)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		previousLevel := child.Level

		child.StreakDays = progression.NextStreak(child.LastActiveOn, today, child.StreakDays)
		child.LastActiveOn = &today
		child.Points += task.Points

		stats, err := loadStats(ctx, tasks, child)
		if err != nil {
			return err
		}
		unlocked, bonus, err := unlockSatisfied(ctx, s.achievements.WithTx(tx), childID, stats, now)
		if err != nil {
			return err
		}
		child.Points += bonus
		child.Level = progression.LevelForPoints(child.Points)

		if err := accounts.UpdateProgress(ctx, child); err != nil {
			return err
		}

		result = models.CompletionResult{
			PointsAwarded:   task.Points + bonus,
			NewAchievements: unlocked,
			Level:           child.Level,
			LeveledUp:       child.Level > previousLevel,
		}
		return nil
	})
	if err != nil {
		return models.CompletionResult{}, fmt.Errorf("failed to complete task: %w", err)
	}

	if result.PointsAwarded > 0 {
		s.log.Info("task completed",
			"task_id", taskID,
			"child_id", childID,
			"points", result.PointsAwarded,
			"achievements", len(result.NewAchievements),
			"level", result.Level,
		)
	} else {
		s.log.Debug("task completion ignored", "task_id", taskID, "child_id", childID)
	}
	if result.NewAchievements == nil {
		result.NewAchievements = []models.AchievementDefinition{}
	}
	return result, nil
}

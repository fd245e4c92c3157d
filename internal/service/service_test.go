package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/repository"
	"familyquest/internal/security"
)

var fixedNow = time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

type testEnv struct {
	db           *database.DB
	accounts     *AccountService
	tasks        *TaskService
	achievements *AchievementService
	families     *FamilyService
	accountRepo  *repository.AccountRepository
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.Nop()
	clock := func() time.Time { return fixedNow }

	env := &testEnv{
		db:           db,
		accounts:     NewAccountService(db, security.NewTokenManager("test-secret", time.Hour), log),
		tasks:        NewTaskService(db, time.UTC, log),
		achievements: NewAchievementService(db, log),
		families:     NewFamilyService(db, nil, DefaultInviteTTL, log),
		accountRepo:  repository.NewAccountRepository(db),
	}
	env.accounts.now = clock
	env.tasks.now = clock
	env.achievements.now = clock
	env.families.now = clock
	return env
}

func (e *testEnv) child(t *testing.T, username string, age int) *models.Account {
	t.Helper()
	a, err := e.accounts.RegisterChild(context.Background(), ChildRegistration{
		Username: username, Password: "secret1", Name: "Kid " + username, Age: age,
	})
	if err != nil {
		t.Fatalf("RegisterChild(%s) error = %v", username, err)
	}
	return a
}

func (e *testEnv) parent(t *testing.T, username string) *models.Account {
	t.Helper()
	a, err := e.accounts.RegisterParent(context.Background(), ParentRegistration{
		Username: username, Password: "secret1", Name: "Parent " + username,
	})
	if err != nil {
		t.Fatalf("RegisterParent(%s) error = %v", username, err)
	}
	return a
}

func (e *testEnv) task(t *testing.T, childID int64, points int) *models.Task {
	t.Helper()
	task, err := e.tasks.CreateTask(context.Background(), TaskInput{
		ChildID: childID, Title: "Water the plants", Description: "All of them",
		Category: models.CategoryNature, Difficulty: models.DifficultyEasy, Points: &points,
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	return task
}

func (e *testEnv) reload(t *testing.T, id int64) *models.Account {
	t.Helper()
	a, err := e.accountRepo.GetByID(context.Background(), id)
	if err != nil || a == nil {
		t.Fatalf("GetByID(%d) = %v, %v", id, a, err)
	}
	return a
}

func (e *testEnv) setProgress(t *testing.T, a *models.Account, points, streak int, lastActive *time.Time) {
	t.Helper()
	a.Points, a.StreakDays, a.LastActiveOn = points, streak, lastActive
	if err := e.accountRepo.UpdateProgress(context.Background(), a); err != nil {
		t.Fatalf("UpdateProgress() error = %v", err)
	}
}

func day(offset int) *time.Time {
	d := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"familyquest/internal/models"
	"familyquest/internal/repository"
	"familyquest/internal/validation"
)

func TestCompleteTaskBasic(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	child := env.child(t, "mila", 9)

	task, err := env.tasks.CreateTask(ctx, TaskInput{
		ChildID: child.ID, Title: "Jump rope", Description: "100 jumps",
		Category: models.CategorySport, Difficulty: models.DifficultyMedium,
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Points != 35 {
		t.Fatalf("derived points = %d, want 35", task.Points)
	}

	result, err := env.tasks.CompleteTask(ctx, task.ID, child.ID, "")
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if result.PointsAwarded != 35 || len(result.NewAchievements) != 0 {
		t.Errorf("CompleteTask() = %+v, want 35 points and no achievements", result)
	}

	got := env.reload(t, child.ID)
	if got.Points != 35 || got.Level != 1 || got.StreakDays != 1 {
		t.Errorf("child after completion = points %d level %d streak %d", got.Points, got.Level, got.StreakDays)
	}
	if got.LastActiveOn == nil || !got.LastActiveOn.Equal(*day(0)) {
		t.Errorf("last active = %v, want %v", got.LastActiveOn, day(0))
	}
}

func TestCompleteTaskFirstAchievement(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	if _, err := env.achievements.SeedCatalog(ctx); err != nil {
		t.Fatalf("SeedCatalog() error = %v", err)
	}
	child := env.child(t, "leo", 9)
	task := env.task(t, child.ID, 20)

	result, err := env.tasks.CompleteTask(ctx, task.ID, child.ID, "photo-1")
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if result.PointsAwarded != 30 {
		t.Errorf("points = %d, want 30", result.PointsAwarded)
	}
	if len(result.NewAchievements) != 1 || result.NewAchievements[0].Code != "first_task" || result.NewAchievements[0].RewardPoints != 10 {
		t.Errorf("new achievements = %+v, want first_task", result.NewAchievements)
	}
	if got := env.reload(t, child.ID); got.Points != 30 {
		t.Errorf("child points = %d, want 30", got.Points)
	}

	unlocked, err := env.achievements.Unlocked(ctx, child.ID)
	if err != nil || len(unlocked) != 1 {
		t.Errorf("Unlocked() = %v, %v", unlocked, err)
	}
}

func TestCompleteTaskLevelUp(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	child := env.child(t, "zoe", 9)
	env.setProgress(t, child, 95, 0, nil)
	task := env.task(t, child.ID, 10)

	result, err := env.tasks.CompleteTask(ctx, task.ID, child.ID, "")
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if !result.LeveledUp || result.Level != 2 {
		t.Errorf("result = %+v, want level-up to 2", result)
	}
	got := env.reload(t, child.ID)
	if got.Points != 105 || got.Level != 2 {
		t.Errorf("child = points %d level %d, want 105 and 2", got.Points, got.Level)
	}
}

func TestCompleteTaskIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	child := env.child(t, "ann", 10)
	other := env.child(t, "bob", 10)
	task := env.task(t, child.ID, 25)

	tests := []struct {
		name    string
		taskID  int64
		childID int64
		want    int
	}{
		{"first completion", task.ID, child.ID, 25},
		{"repeat completion", task.ID, child.ID, 0},
		{"missing task", 9999, child.ID, 0},
		{"task of another child", task.ID, other.ID, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.tasks.CompleteTask(ctx, tt.taskID, tt.childID, "")
			if err != nil {
				t.Fatalf("CompleteTask() error = %v", err)
			}
			if result.PointsAwarded != tt.want {
				t.Errorf("points = %d, want %d", result.PointsAwarded, tt.want)
			}
		})
	}

	if got := env.reload(t, child.ID); got.Points != 25 {
		t.Errorf("child points = %d, want 25", got.Points)
	}
	if got := env.reload(t, other.ID); got.Points != 0 {
		t.Errorf("other child points = %d, want 0", got.Points)
	}
}

func TestCompleteTaskConcurrent(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	child := env.child(t, "max", 10)
	task := env.task(t, child.ID, 40)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		awarded int
		wins    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := env.tasks.CompleteTask(ctx, task.ID, child.ID, "")
			if err != nil {
				t.Errorf("CompleteTask() error = %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			awarded += result.PointsAwarded
			if result.PointsAwarded > 0 {
				wins++
			}
		}()
	}
	wg.Wait()

	if wins != 1 || awarded != 40 {
		t.Errorf("wins = %d awarded = %d, want exactly one award of 40", wins, awarded)
	}
	if got := env.reload(t, child.ID); got.Points != 40 {
		t.Errorf("child points = %d, want 40", got.Points)
	}
}

func TestCompleteDifferentTasksConcurrent(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	child := env.child(t, "ivy", 10)
	first := env.task(t, child.ID, 40)
	second := env.task(t, child.ID, 25)

	var wg sync.WaitGroup
	for _, task := range []*models.Task{first, second} {
		wg.Add(1)
		go func(taskID int64) {
			defer wg.Done()
			result, err := env.tasks.CompleteTask(ctx, taskID, child.ID, "")
			if err != nil {
				t.Errorf("CompleteTask(%d) error = %v", taskID, err)
				return
			}
			if result.PointsAwarded == 0 {
				t.Errorf("CompleteTask(%d) awarded nothing", taskID)
			}
		}(task.ID)
	}
	wg.Wait()

	got := env.reload(t, child.ID)
	if got.Points != 65 {
		t.Errorf("child points = %d, want 65", got.Points)
	}
	if got.StreakDays != 1 {
		t.Errorf("streak = %d, want 1", got.StreakDays)
	}
}

func TestCompleteTaskRollsBackOnProgressFailure(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	if _, err := env.achievements.SeedCatalog(ctx); err != nil {
		t.Fatalf("SeedCatalog() error = %v", err)
	}
	child := env.child(t, "noa", 9)
	env.setProgress(t, child, 15, 0, nil)
	task := env.task(t, child.ID, 20)

	trigger := `CREATE TRIGGER fail_points BEFORE UPDATE OF points ON accounts
BEGIN
	SELECT RAISE(ABORT, 'boom');
END`
	if _, err := env.db.ExecContext(ctx, trigger); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if _, err := env.tasks.CompleteTask(ctx, task.ID, child.ID, "photo"); err == nil {
		t.Fatal("CompleteTask() error = nil, want failure from progress update")
	}

	stored, err := repository.NewTaskRepository(env.db).GetByID(ctx, task.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID() = %v, %v", stored, err)
	}
	if stored.Completed || stored.CompletedAt != nil || stored.ProofRef != "" {
		t.Errorf("task = %+v, want still pending", stored)
	}
	if got := env.reload(t, child.ID); got.Points != 15 || got.StreakDays != 0 || got.LastActiveOn != nil {
		t.Errorf("child = %+v, want progress untouched", got)
	}
	unlocked, err := env.achievements.Unlocked(ctx, child.ID)
	if err != nil {
		t.Fatalf("Unlocked() error = %v", err)
	}
	if len(unlocked) != 0 {
		t.Errorf("Unlocked() = %+v, want none", unlocked)
	}
}

func TestStreakPolicy(t *testing.T) {
	tests := []struct {
		name       string
		lastActive int // days relative to today; 99 means never
		streak     int
		want       int
	}{
		{"never active", 99, 0, 1},
		{"same day keeps streak", 0, 4, 4},
		{"same day with zero streak", 0, 0, 1},
		{"yesterday extends", -1, 4, 5},
		{"gap resets", -3, 12, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t)
			child := env.child(t, "sam", 9)
			var last = day(tt.lastActive)
			if tt.lastActive == 99 {
				last = nil
			}
			env.setProgress(t, child, 0, tt.streak, last)
			task := env.task(t, child.ID, 10)

			if _, err := env.tasks.CompleteTask(context.Background(), task.ID, child.ID, ""); err != nil {
				t.Fatalf("CompleteTask() error = %v", err)
			}
			got := env.reload(t, child.ID)
			if got.StreakDays != tt.want {
				t.Errorf("streak = %d, want %d", got.StreakDays, tt.want)
			}
			if got.LastActiveOn == nil || !got.LastActiveOn.Equal(*day(0)) {
				t.Errorf("last active = %v, want today", got.LastActiveOn)
			}
		})
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	child := env.child(t, "eva", 6)
	parent := env.parent(t, "dad")
	zero := 0

	tests := []struct {
		name     string
		in       TaskInput
		wantErr  bool
		notFound bool
	}{
		{"empty title", TaskInput{ChildID: child.ID, Description: "d", Category: "help", Difficulty: models.DifficultyEasy}, true, false},
		{"empty description", TaskInput{ChildID: child.ID, Title: "t", Category: "help", Difficulty: models.DifficultyEasy}, true, false},
		{"unknown difficulty", TaskInput{ChildID: child.ID, Title: "t", Description: "d", Category: "help", Difficulty: "epic"}, true, false},
		{"bad category", TaskInput{ChildID: child.ID, Title: "t", Description: "d", Category: "Help Me!", Difficulty: models.DifficultyEasy}, true, false},
		{"zero points", TaskInput{ChildID: child.ID, Title: "t", Description: "d", Category: "help", Difficulty: models.DifficultyEasy, Points: &zero}, true, false},
		{"owner is a parent", TaskInput{ChildID: parent.ID, Title: "t", Description: "d", Category: "help", Difficulty: models.DifficultyEasy}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tasks.CreateTask(ctx, tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateTask() error = %v, wantErr %v", err, tt.wantErr)
			}
			var verr validation.ValidationError
			if tt.notFound && !errors.Is(err, ErrChildNotFound) {
				t.Errorf("error = %v, want ErrChildNotFound", err)
			}
			if !tt.notFound && !errors.As(err, &verr) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}

	// help for a 6 year old: 20 * 1.15 * 1.3 = 29.9
	task, err := env.tasks.CreateTask(ctx, TaskInput{
		ChildID: child.ID, Title: " Feed the cat ", Description: "Morning and evening",
		Category: "Help", Difficulty: models.DifficultyEasy,
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Points != 29 || task.Title != "Feed the cat" || task.Category != models.CategoryHelp || task.Emoji != "🤝" {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestTaskListingsAndTemplates(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	child := env.child(t, "ivy", 9)

	if len(env.tasks.TaskTemplates()) != 5 {
		t.Errorf("TaskTemplates() returned %d entries", len(env.tasks.TaskTemplates()))
	}
	fromTemplate, err := env.tasks.CreateTaskFromTemplate(ctx, child.ID, "clean_room", nil)
	if err != nil {
		t.Fatalf("CreateTaskFromTemplate() error = %v", err)
	}
	if fromTemplate.Points != 50 || fromTemplate.Source != models.SourceTemplate {
		t.Errorf("template task = %+v", fromTemplate)
	}
	if _, err := env.tasks.CreateTaskFromTemplate(ctx, child.ID, "fly_to_moon", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown template error = %v, want ErrNotFound", err)
	}

	for i := 0; i < 4; i++ {
		env.task(t, child.ID, 10)
	}
	active, err := env.tasks.ListActiveTasks(ctx, child.ID, 0)
	if err != nil || len(active) != 5 {
		t.Fatalf("ListActiveTasks() = %d, %v", len(active), err)
	}
	daily, _ := env.tasks.ListDailyTasks(ctx, child.ID, 0)
	if len(daily) != DefaultDailyTasks {
		t.Errorf("ListDailyTasks() = %d, want %d", len(daily), DefaultDailyTasks)
	}

	if _, err := env.tasks.CompleteTask(ctx, fromTemplate.ID, child.ID, ""); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	completed, _ := env.tasks.ListCompletedTasks(ctx, child.ID, 10)
	if len(completed) != 1 || completed[0].ID != fromTemplate.ID {
		t.Errorf("ListCompletedTasks() = %+v", completed)
	}
	active, _ = env.tasks.ListActiveTasks(ctx, child.ID, 0)
	if len(active) != 4 {
		t.Errorf("completed task still active: %d", len(active))
	}

	stats, err := env.tasks.ChildStats(ctx, child.ID)
	if err != nil {
		t.Fatalf("ChildStats() error = %v", err)
	}
	if stats.TasksCompleted != 1 || stats.CategoryCounts[models.CategoryHelp] != 1 || stats.Points != 50 {
		t.Errorf("ChildStats() = %+v", stats)
	}
}

func TestCreateTaskFromProposal(t *testing.T) {
	env := setupEnv(t)
	child := env.child(t, "ola", 9)

	task, err := env.tasks.CreateTaskFromProposal(context.Background(), child.ID, models.TaskProposal{
		Title: "Paper boat", Description: "Fold a boat", Category: models.CategoryCreative,
		Materials: []string{"paper"}, PhotoOpportunity: true,
	}, models.DifficultyEasy, models.SourceGenerated, nil)
	if err != nil {
		t.Fatalf("CreateTaskFromProposal() error = %v", err)
	}
	if task.Source != models.SourceGenerated || !task.PhotoRequired || task.Points != 24 {
		t.Errorf("unexpected task %+v", task)
	}

	_, err = env.tasks.CreateTaskFromProposal(context.Background(), child.ID, models.TaskProposal{
		Title: "", Description: "x", Category: models.CategoryCreative,
	}, models.DifficultyEasy, models.SourceGenerated, nil)
	var verr validation.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("empty title error = %v, want ValidationError", err)
	}
}

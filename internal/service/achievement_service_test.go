package service

import (
	"context"
	"testing"

	"familyquest/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	defs, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	if len(defs) != 10 {
		t.Fatalf("catalog has %d entries, want 10", len(defs))
	}
	seen := map[string]bool{}
	for i, def := range defs {
		if seen[def.Code] {
			t.Errorf("duplicate code %s", def.Code)
		}
		seen[def.Code] = true
		if def.Threshold <= 0 || def.RewardPoints <= 0 {
			t.Errorf("%s has non-positive threshold or reward", def.Code)
		}
		if def.ConditionType == models.ConditionCategoryTasks && def.Category == "" {
			t.Errorf("%s is missing its category", def.Code)
		}
		if i > 0 && def.SortOrder <= defs[i-1].SortOrder {
			t.Errorf("sort order not increasing at %s", def.Code)
		}
	}
	if defs[0].Code != "first_task" {
		t.Errorf("first entry = %s, want first_task", defs[0].Code)
	}
}

func TestSeedCatalogIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	n, err := env.achievements.SeedCatalog(ctx)
	if err != nil || n != 10 {
		t.Fatalf("first SeedCatalog() = %d, %v", n, err)
	}
	n, err = env.achievements.SeedCatalog(ctx)
	if err != nil || n != 0 {
		t.Errorf("second SeedCatalog() = %d, %v, want 0", n, err)
	}
	catalog, _ := env.achievements.Catalog(ctx)
	if len(catalog) != 10 {
		t.Errorf("Catalog() returned %d entries", len(catalog))
	}
}

func TestCheckAndUnlockGrantsOnce(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	if _, err := env.achievements.SeedCatalog(ctx); err != nil {
		t.Fatalf("SeedCatalog() error = %v", err)
	}
	child := env.child(t, "nia", 9)

	stats := models.ChildStats{
		TasksCompleted: 10,
		Points:         0,
		StreakDays:     7,
		CategoryCounts: map[string]int{models.CategoryScience: 5},
	}

	unlocked, err := env.achievements.CheckAndUnlock(ctx, child.ID, stats)
	if err != nil {
		t.Fatalf("CheckAndUnlock() error = %v", err)
	}
	want := []string{"first_task", "helper_10", "streak_7", "scientist"}
	if len(unlocked) != len(want) {
		t.Fatalf("unlocked %d achievements, want %d: %+v", len(unlocked), len(want), unlocked)
	}
	for i, code := range want {
		if unlocked[i].Code != code {
			t.Errorf("unlocked[%d] = %s, want %s", i, unlocked[i].Code, code)
		}
	}

	// 10 + 50 + 100 + 100
	got := env.reload(t, child.ID)
	if got.Points != 260 || got.Level != 3 {
		t.Errorf("child = points %d level %d, want 260 and 3", got.Points, got.Level)
	}

	again, err := env.achievements.CheckAndUnlock(ctx, child.ID, stats)
	if err != nil || len(again) != 0 {
		t.Errorf("second CheckAndUnlock() = %+v, %v, want none", again, err)
	}
	if got := env.reload(t, child.ID); got.Points != 260 {
		t.Errorf("reward granted twice: points = %d", got.Points)
	}

	// Only the supplied snapshot is evaluated, never the stored balance
	stats.Points = 499
	more, _ := env.achievements.CheckAndUnlock(ctx, child.ID, stats)
	if len(more) != 0 {
		t.Errorf("unexpected unlocks %+v", more)
	}
}

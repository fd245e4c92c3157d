package models

import "time"

type ConditionType string

const (
	ConditionTasksCompleted ConditionType = "tasks_completed"
	ConditionStreakDays     ConditionType = "streak_days"
	ConditionPointsTotal    ConditionType = "points_total"
	ConditionCategoryTasks  ConditionType = "category_tasks"
)

// AchievementDefinition is an immutable catalog entry.
type AchievementDefinition struct {
	ID            int64         `json:"-"`
	Code          string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Icon          string        `json:"icon"`
	ConditionType ConditionType `json:"condition_type"`
	Category      string        `json:"category,omitempty"`
	Threshold     int           `json:"threshold"`
	RewardPoints  int           `json:"reward_points"`
	SortOrder     int           `json:"-"`
}

// SatisfiedBy reports whether stats meet the definition's condition.
func (d *AchievementDefinition) SatisfiedBy(stats ChildStats) bool {
	switch d.ConditionType {
	case ConditionTasksCompleted:
		return stats.TasksCompleted >= d.Threshold
	case ConditionStreakDays:
		return stats.StreakDays >= d.Threshold
	case ConditionPointsTotal:
		return stats.Points >= d.Threshold
	case ConditionCategoryTasks:
		return stats.CategoryCounts[d.Category] >= d.Threshold
	default:
		return false
	}
}

// UnlockedAchievement pairs a definition with when a child earned it.
type UnlockedAchievement struct {
	AchievementDefinition
	UnlockedAt time.Time `json:"unlocked_at"`
}

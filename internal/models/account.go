package models

import "time"

// Role tags an account as a child or a parent.
type Role string

const (
	RoleChild  Role = "child"
	RoleParent Role = "parent"
)

// DateLayout is the storage format for calendar dates (streak days, due dates).
const DateLayout = "2006-01-02"

// Account is a registered person. The progression fields are only
// meaningful for children.
type Account struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"display_name"`
	Role         Role       `json:"role"`
	Email        string     `json:"email,omitempty"`
	Age          int        `json:"age,omitempty"`
	Interests    []string   `json:"interests,omitempty"`
	Points       int        `json:"points"`
	Level        int        `json:"level"`
	StreakDays   int        `json:"streak_days"`
	LastActiveOn *time.Time `json:"last_active_on,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (a *Account) IsChild() bool {
	return a.Role == RoleChild
}

func (a *Account) IsParent() bool {
	return a.Role == RoleParent
}

// ChildStats is the snapshot the achievement engine evaluates.
type ChildStats struct {
	TasksCompleted int            `json:"tasks_completed"`
	Points         int            `json:"points"`
	StreakDays     int            `json:"streak_days"`
	CategoryCounts map[string]int `json:"category_counts"`
}

package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Well-known categories. Any lower-case token is accepted.
const (
	CategoryCreative = "creative"
	CategoryScience  = "science"
	CategorySport    = "sport"
	CategoryHelp     = "help"
	CategoryLearning = "learning"
	CategoryNature   = "nature"
)

// TaskSource records how a task came into existence.
type TaskSource string

const (
	SourceManual    TaskSource = "manual"
	SourceTemplate  TaskSource = "template"
	SourceGenerated TaskSource = "generated"
	SourceFallback  TaskSource = "fallback"
)

// Task is a unit of work owned by exactly one child.
type Task struct {
	ID            int64      `json:"id"`
	ChildID       int64      `json:"child_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
	Points        int        `json:"points"`
	Emoji         string     `json:"emoji"`
	PhotoRequired bool       `json:"photo_required"`
	DueOn         *time.Time `json:"due_on,omitempty"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ProofRef      string     `json:"proof_ref,omitempty"`
	CreatedBy     *int64     `json:"created_by,omitempty"`
	Source        TaskSource `json:"source"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TaskTemplate is an entry of the built-in task library.
type TaskTemplate struct {
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	Points      int        `json:"points"`
	Emoji       string     `json:"emoji"`
}

// TaskProposal is a suggestion from the generation backend or the fallback
// library. It is untrusted until validated.
type TaskProposal struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Category         string   `json:"category"`
	Materials        []string `json:"materials"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	Tips             []string `json:"tips"`
	PhotoOpportunity bool     `json:"photo_opportunity"`
}

// CompletionResult is returned by task completion. A zero value means
// nothing was awarded.
type CompletionResult struct {
	PointsAwarded   int                     `json:"points"`
	NewAchievements []AchievementDefinition `json:"new_achievements"`
	Level           int                     `json:"level,omitempty"`
	LeveledUp       bool                    `json:"leveled_up,omitempty"`
}

var categoryEmoji = map[string]string{
	CategoryCreative: "🎨",
	CategoryScience:  "🔬",
	CategorySport:    "🏃",
	CategoryHelp:     "🤝",
	CategoryLearning: "📚",
	CategoryNature:   "🌱",
}

// CategoryEmoji returns the display emoji for a category, with a generic
// target for unknown ones.
func CategoryEmoji(category string) string {
	if e, ok := categoryEmoji[category]; ok {
		return e
	}
	return "🎯"
}

// Package progression holds the pure arithmetic behind levels, task rewards
// and daily streaks. Nothing here touches storage.
package progression

import (
	"math"
	"time"

	"familyquest/internal/models"
)

// PointsPerLevel is the width of every level band.
const PointsPerLevel = 100

// MaxStreakMultiplier caps the streak bonus at double points.
const MaxStreakMultiplier = 2.0

var basePoints = map[models.Difficulty]int{
	models.DifficultyEasy:   20,
	models.DifficultyMedium: 35,
	models.DifficultyHard:   50,
}

// defaultBasePoints applies to a difficulty outside the known tiers.
const defaultBasePoints = 30

var categoryMultipliers = map[string]float64{
	models.CategoryCreative: 1.2,
	models.CategoryHelp:     1.15,
	models.CategoryLearning: 1.1,
}

// LevelForPoints maps accumulated points to a level, starting at 1.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

// LevelProgress describes how far a child is into the current level.
type LevelProgress struct {
	CurrentLevel int     `json:"current_level"`
	NextLevel    int     `json:"next_level"`
	PointsNeeded int     `json:"points_needed"`
	Progress     float64 `json:"progress"`
}

// NextLevelRequirement reports the points missing for the next level and the
// fraction of the current band already earned, in [0,1).
func NextLevelRequirement(points int) LevelProgress {
	if points < 0 {
		points = 0
	}
	current := LevelForPoints(points)
	next := current + 1
	return LevelProgress{
		CurrentLevel: current,
		NextLevel:    next,
		PointsNeeded: next*PointsPerLevel - points,
		Progress:     float64(points%PointsPerLevel) / PointsPerLevel,
	}
}

// BasePoints returns the tier reward before any multiplier.
func BasePoints(difficulty models.Difficulty) int {
	if p, ok := basePoints[difficulty]; ok {
		return p
	}
	return defaultBasePoints
}

// TaskPoints suggests a reward for a task given who is doing it. The result
// is truncated toward zero after all multipliers are applied.
func TaskPoints(difficulty models.Difficulty, age int, category string, streakDays int) int {
	points := float64(BasePoints(difficulty))

	if m, ok := categoryMultipliers[category]; ok {
		points *= m
	}

	switch {
	case age > 0 && age < 8:
		points *= 1.3
	case age > 12:
		points *= 0.9
	}

	if streakDays < 0 {
		streakDays = 0
	}
	points *= math.Min(1+float64(streakDays)*0.1, MaxStreakMultiplier)

	// Guard against float noise such as 35*1.2 = 41.99999
	return int(math.Floor(points + 1e-9))
}

// Date truncates t to a calendar day in loc, returned as midnight UTC so that
// day values compare and format independently of the zone they came from.
func Date(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar day for storage.
func FormatDate(day time.Time) string {
	return day.Format(models.DateLayout)
}

// ParseDate reads a stored calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout, s, time.UTC)
}

// NextStreak applies the once-per-day policy: a second completion on the same
// day leaves the streak alone, a completion the day after the last active day
// extends it, and anything else starts over at 1.
func NextStreak(lastActive *time.Time, today time.Time, current int) int {
	if lastActive == nil {
		return 1
	}
	last := Date(*lastActive, time.UTC)
	today = Date(today, time.UTC)

	switch {
	case last.Equal(today):
		if current < 1 {
			return 1
		}
		return current
	case last.AddDate(0, 0, 1).Equal(today):
		return current + 1
	default:
		return 1
	}
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/models"
)

const definitionColumns = "id, code, name, description, icon, condition_type, category, threshold, reward_points, sort_order"

// AchievementRepository handles the achievement catalog and per-child unlocks
type AchievementRepository struct {
	db database.Querier
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db database.Querier) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AchievementRepository) WithTx(tx *database.Tx) *AchievementRepository {
	return &AchievementRepository{db: tx}
}

// InsertDefinition adds a catalog entry unless its code already exists.
// Existing entries are never modified.
func (r *AchievementRepository) InsertDefinition(ctx context.Context, def *models.AchievementDefinition) (bool, error) {
	query := r.db.GetDialect().InsertIgnore(`
		INSERT INTO achievement_definitions (code, name, description, icon, condition_type, category, threshold, reward_points, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	result, err := r.db.ExecContext(ctx, query,
		def.Code, def.Name, def.Description, def.Icon, string(def.ConditionType), nullString(def.Category),
		def.Threshold, def.RewardPoints, def.SortOrder,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement definition %s: %w", def.Code, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// ListDefinitions returns the catalog in evaluation order
func (r *AchievementRepository) ListDefinitions(ctx context.Context) ([]models.AchievementDefinition, error) {
	return r.listDefinitions(ctx, "SELECT "+definitionColumns+" FROM achievement_definitions ORDER BY sort_order, id")
}

// ListLocked returns the definitions the child has not unlocked, in evaluation order
func (r *AchievementRepository) ListLocked(ctx context.Context, childID int64) ([]models.AchievementDefinition, error) {
	query := "SELECT " + definitionColumns + ` FROM achievement_definitions
		WHERE id NOT IN (SELECT achievement_id FROM achievement_unlocks WHERE child_id = ?)
		ORDER BY sort_order, id`
	return r.listDefinitions(ctx, query, childID)
}

// InsertUnlock records an unlock. It reports false when the child already
// had the achievement, including when a concurrent writer got there first.
func (r *AchievementRepository) InsertUnlock(ctx context.Context, childID, achievementID int64, unlockedAt time.Time) (bool, error) {
	query := r.db.GetDialect().InsertIgnore(
		"INSERT INTO achievement_unlocks (child_id, achievement_id, unlocked_at) VALUES (?, ?, ?)")
	result, err := r.db.ExecContext(ctx, query, childID, achievementID, unlockedAt.UTC())
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert achievement unlock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// ListUnlocked returns the child's unlocked achievements, newest first
func (r *AchievementRepository) ListUnlocked(ctx context.Context, childID int64) ([]models.UnlockedAchievement, error) {
	query := `
		SELECT ` + prefixed("d", definitionColumns) + `, u.unlocked_at
		FROM achievement_unlocks u
		INNER JOIN achievement_definitions d ON d.id = u.achievement_id
		WHERE u.child_id = ?
		ORDER BY u.unlocked_at DESC, d.sort_order
	`
	rows, err := r.db.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked achievements: %w", err)
	}
	defer rows.Close()

	var unlocked []models.UnlockedAchievement
	for rows.Next() {
		var (
			u          models.UnlockedAchievement
			unlockedAt time.Time
		)
		if err := scanDefinitionWith(rows, &u.AchievementDefinition, &unlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlocked achievement: %w", err)
		}
		u.UnlockedAt = unlockedAt.UTC()
		unlocked = append(unlocked, u)
	}
	return unlocked, rows.Err()
}

// AchievementUnlock is a raw unlock row, used by backups.
type AchievementUnlock struct {
	ID            int64     `json:"id"`
	ChildID       int64     `json:"child_id"`
	AchievementID int64     `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// ListAllUnlocks returns every unlock row ordered by ID
func (r *AchievementRepository) ListAllUnlocks(ctx context.Context) ([]AchievementUnlock, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, child_id, achievement_id, unlocked_at FROM achievement_unlocks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list achievement unlocks: %w", err)
	}
	defer rows.Close()

	var unlocks []AchievementUnlock
	for rows.Next() {
		var u AchievementUnlock
		if err := rows.Scan(&u.ID, &u.ChildID, &u.AchievementID, &u.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement unlock: %w", err)
		}
		u.UnlockedAt = u.UnlockedAt.UTC()
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}

// RestoreDefinition inserts a catalog entry keeping its original ID
func (r *AchievementRepository) RestoreDefinition(ctx context.Context, def *models.AchievementDefinition) error {
	query := `
		INSERT INTO achievement_definitions (id, code, name, description, icon, condition_type, category, threshold, reward_points, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		def.ID, def.Code, def.Name, def.Description, def.Icon, string(def.ConditionType), nullString(def.Category),
		def.Threshold, def.RewardPoints, def.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to restore achievement definition %s: %w", def.Code, err)
	}
	return nil
}

// RestoreUnlock inserts an unlock keeping its original ID
func (r *AchievementRepository) RestoreUnlock(ctx context.Context, u *AchievementUnlock) error {
	query := "INSERT INTO achievement_unlocks (id, child_id, achievement_id, unlocked_at) VALUES (?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, u.ID, u.ChildID, u.AchievementID, u.UnlockedAt.UTC()); err != nil {
		return fmt.Errorf("failed to restore achievement unlock %d: %w", u.ID, err)
	}
	return nil
}

func (r *AchievementRepository) listDefinitions(ctx context.Context, query string, args ...interface{}) ([]models.AchievementDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievement definitions: %w", err)
	}
	defer rows.Close()

	var defs []models.AchievementDefinition
	for rows.Next() {
		var def models.AchievementDefinition
		if err := scanDefinitionWith(rows, &def); err != nil {
			return nil, fmt.Errorf("failed to scan achievement definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func scanDefinitionWith(s rowScanner, def *models.AchievementDefinition, extra ...interface{}) error {
	var (
		condition string
		category  sql.NullString
	)
	dest := []interface{}{
		&def.ID, &def.Code, &def.Name, &def.Description, &def.Icon, &condition, &category,
		&def.Threshold, &def.RewardPoints, &def.SortOrder,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	def.ConditionType = models.ConditionType(condition)
	def.Category = category.String
	return nil
}

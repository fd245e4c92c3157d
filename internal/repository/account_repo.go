package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/models"
)

const accountColumns = `id, username, password_hash, display_name, role, email, age, interests,
	points, level, streak_days, last_active_on, avatar, created_at`

// AccountRepository handles database operations for children and parents
type AccountRepository struct {
	db database.Querier
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db database.Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx *database.Tx) *AccountRepository {
	return &AccountRepository{db: tx}
}

// Create inserts a new account and sets its ID. A taken username yields ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	interests, err := json.Marshal(nonNil(a.Interests))
	if err != nil {
		return fmt.Errorf("failed to encode interests: %w", err)
	}

	var age sql.NullInt64
	if a.Age > 0 {
		age = sql.NullInt64{Int64: int64(a.Age), Valid: true}
	}

	query := `
		INSERT INTO accounts (username, password_hash, display_name, role, email, age, interests,
			points, level, streak_days, last_active_on, avatar, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		a.Username, a.PasswordHash, a.DisplayName, string(a.Role), nullString(a.Email), age, string(interests),
		a.Points, a.Level, a.StreakDays, nullDate(a.LastActiveOn), a.Avatar, a.CreatedAt.UTC(),
	)
	if err != nil {
		if err = classify(r.db, err); err == ErrDuplicate {
			return err
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	a.ID = id
	return nil
}

// GetByID retrieves an account by ID, or nil when it does not exist
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// GetByUsername retrieves an account by username, or nil when it does not exist
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE username = ?", username)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}
	return a, nil
}

// GetByIDForUpdate is GetByID with a row lock held until the surrounding
// transaction ends. It only makes sense on a repository bound with WithTx.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE id = ?" + r.db.GetDialect().ForUpdate()
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return a, nil
}

// UpdateProgress persists a child's derived progression fields.
func (r *AccountRepository) UpdateProgress(ctx context.Context, a *models.Account) error {
	query := `UPDATE accounts SET points = ?, level = ?, streak_days = ?, last_active_on = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, a.Points, a.Level, a.StreakDays, nullDate(a.LastActiveOn), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

// ListAll returns every account ordered by ID
func (r *AccountRepository) ListAll(ctx context.Context) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// Restore inserts an account keeping its original ID
func (r *AccountRepository) Restore(ctx context.Context, a *models.Account) error {
	interests, err := json.Marshal(nonNil(a.Interests))
	if err != nil {
		return fmt.Errorf("failed to encode interests: %w", err)
	}
	var age sql.NullInt64
	if a.Age > 0 {
		age = sql.NullInt64{Int64: int64(a.Age), Valid: true}
	}
	query := `
		INSERT INTO accounts (id, username, password_hash, display_name, role, email, age, interests,
			points, level, streak_days, last_active_on, avatar, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.Username, a.PasswordHash, a.DisplayName, string(a.Role), nullString(a.Email), age, string(interests),
		a.Points, a.Level, a.StreakDays, nullDate(a.LastActiveOn), a.Avatar, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to restore account %d: %w", a.ID, err)
	}
	return nil
}

func collectAccounts(rows *sql.Rows) ([]models.Account, error) {
	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func scanAccount(s rowScanner) (*models.Account, error) {
	var (
		a          models.Account
		role       string
		email      sql.NullString
		age        sql.NullInt64
		interests  string
		lastActive sql.NullString
		createdAt  time.Time
	)
	err := s.Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.DisplayName, &role, &email, &age, &interests,
		&a.Points, &a.Level, &a.StreakDays, &lastActive, &a.Avatar, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	a.Email = email.String
	a.Age = int(age.Int64)
	a.LastActiveOn = datePtr(lastActive)
	a.CreatedAt = createdAt.UTC()
	if interests != "" {
		if err := json.Unmarshal([]byte(interests), &a.Interests); err != nil {
			return nil, fmt.Errorf("failed to decode interests: %w", err)
		}
	}
	return &a, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

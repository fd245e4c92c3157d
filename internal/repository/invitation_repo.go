package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/models"
)

const invitationColumns = "id, code, parent_id, child_name, email, status, expires_at, created_at, used_at, used_by"

type InvitationRepository struct {
	db database.Querier
}

func NewInvitationRepository(db database.Querier) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *InvitationRepository) WithTx(tx *database.Tx) *InvitationRepository {
	return &InvitationRepository{db: tx}
}

// Create inserts a pending invitation. A code collision yields ErrDuplicate.
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (code, parent_id, child_name, email, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		inv.Code, inv.ParentID, nullString(inv.ChildName), nullString(inv.Email), string(inv.Status),
		inv.ExpiresAt.UTC(), inv.CreatedAt.UTC(),
	)
	if err != nil {
		if err = classify(r.db, err); err == ErrDuplicate {
			return err
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	inv.ID = id
	return nil
}

// GetByCode retrieves an invitation by code, or nil when it does not exist
func (r *InvitationRepository) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+invitationColumns+" FROM invitations WHERE code = ?", code)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// MarkUsed flips a pending invitation to used. It reports false when the
// invitation was no longer pending.
func (r *InvitationRepository) MarkUsed(ctx context.Context, id, childID int64, usedAt time.Time) (bool, error) {
	query := `UPDATE invitations SET status = ?, used_at = ?, used_by = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query,
		string(models.InvitationUsed), usedAt.UTC(), childID, id, string(models.InvitationPending))
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// ListByParent returns a parent's invitations, newest first
func (r *InvitationRepository) ListByParent(ctx context.Context, parentID int64) ([]models.Invitation, error) {
	return r.list(ctx, "SELECT "+invitationColumns+" FROM invitations WHERE parent_id = ? ORDER BY created_at DESC, id DESC", parentID)
}

// ListAll returns every invitation ordered by ID
func (r *InvitationRepository) ListAll(ctx context.Context) ([]models.Invitation, error) {
	return r.list(ctx, "SELECT "+invitationColumns+" FROM invitations ORDER BY id")
}

// Restore inserts an invitation keeping its original ID
func (r *InvitationRepository) Restore(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (id, code, parent_id, child_name, email, status, expires_at, created_at, used_at, used_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.Code, inv.ParentID, nullString(inv.ChildName), nullString(inv.Email), string(inv.Status),
		inv.ExpiresAt.UTC(), inv.CreatedAt.UTC(), nullTime(inv.UsedAt), nullInt64(inv.UsedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to restore invitation %d: %w", inv.ID, err)
	}
	return nil
}

func (r *InvitationRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

func scanInvitation(s rowScanner) (*models.Invitation, error) {
	var (
		inv       models.Invitation
		childName sql.NullString
		email     sql.NullString
		status    string
		expiresAt time.Time
		createdAt time.Time
		usedAt    sql.NullTime
		usedBy    sql.NullInt64
	)
	err := s.Scan(&inv.ID, &inv.Code, &inv.ParentID, &childName, &email, &status, &expiresAt, &createdAt, &usedAt, &usedBy)
	if err != nil {
		return nil, err
	}
	inv.ChildName = childName.String
	inv.Email = email.String
	inv.Status = models.InvitationStatus(status)
	inv.ExpiresAt = expiresAt.UTC()
	inv.CreatedAt = createdAt.UTC()
	inv.UsedAt = timePtr(usedAt)
	inv.UsedBy = int64Ptr(usedBy)
	return &inv, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"familyquest/internal/database"
	"familyquest/internal/models"
)

// FamilyRepository handles database operations for parent/child links
type FamilyRepository struct {
	db database.Querier
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.Querier) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *FamilyRepository) WithTx(tx *database.Tx) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

// GetLink retrieves the link for a (parent, child) pair in any status, or nil
func (r *FamilyRepository) GetLink(ctx context.Context, parentID, childID int64) (*models.FamilyLink, error) {
	query := "SELECT id, parent_id, child_id, status, created_at FROM family_links WHERE parent_id = ? AND child_id = ?"
	link, err := scanLink(r.db.QueryRowContext(ctx, query, parentID, childID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family link: %w", err)
	}
	return link, nil
}

// CreateLink inserts a new link. A duplicate pair yields ErrDuplicate.
func (r *FamilyRepository) CreateLink(ctx context.Context, link *models.FamilyLink) error {
	query := "INSERT INTO family_links (parent_id, child_id, status, created_at) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, link.ParentID, link.ChildID, string(link.Status), link.CreatedAt.UTC())
	if err != nil {
		if err = classify(r.db, err); err == ErrDuplicate {
			return err
		}
		return fmt.Errorf("failed to create family link: %w", err)
	}
	link.ID = id
	return nil
}

// SetStatus changes the status of an existing link
func (r *FamilyRepository) SetStatus(ctx context.Context, linkID int64, status models.LinkStatus) error {
	_, err := r.db.ExecContext(ctx, "UPDATE family_links SET status = ? WHERE id = ?", string(status), linkID)
	if err != nil {
		return fmt.Errorf("failed to update family link: %w", err)
	}
	return nil
}

// IsActiveLink reports whether parentID has an active link to childID
func (r *FamilyRepository) IsActiveLink(ctx context.Context, parentID, childID int64) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM family_links WHERE parent_id = ? AND child_id = ? AND status = ?"
	if err := r.db.QueryRowContext(ctx, query, parentID, childID, string(models.LinkActive)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family link: %w", err)
	}
	return count > 0, nil
}

// ChildrenOf lists the children actively linked to a parent
func (r *FamilyRepository) ChildrenOf(ctx context.Context, parentID int64) ([]models.Account, error) {
	query := `
		SELECT ` + prefixed("a", accountColumns) + `
		FROM accounts a
		INNER JOIN family_links fl ON fl.child_id = a.id
		WHERE fl.parent_id = ? AND fl.status = ?
		ORDER BY a.display_name, a.id
	`
	rows, err := r.db.QueryContext(ctx, query, parentID, string(models.LinkActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// ParentsOf lists the parents actively linked to a child
func (r *FamilyRepository) ParentsOf(ctx context.Context, childID int64) ([]models.Account, error) {
	query := `
		SELECT ` + prefixed("a", accountColumns) + `
		FROM accounts a
		INNER JOIN family_links fl ON fl.parent_id = a.id
		WHERE fl.child_id = ? AND fl.status = ?
		ORDER BY a.display_name, a.id
	`
	rows, err := r.db.QueryContext(ctx, query, childID, string(models.LinkActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list parents: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// ListAll returns every link ordered by ID
func (r *FamilyRepository) ListAll(ctx context.Context) ([]models.FamilyLink, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, parent_id, child_id, status, created_at FROM family_links ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list family links: %w", err)
	}
	defer rows.Close()

	var links []models.FamilyLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family link: %w", err)
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

// Restore inserts a link keeping its original ID
func (r *FamilyRepository) Restore(ctx context.Context, link *models.FamilyLink) error {
	query := "INSERT INTO family_links (id, parent_id, child_id, status, created_at) VALUES (?, ?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, link.ID, link.ParentID, link.ChildID, string(link.Status), link.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to restore family link %d: %w", link.ID, err)
	}
	return nil
}

func scanLink(s rowScanner) (*models.FamilyLink, error) {
	var (
		link      models.FamilyLink
		status    string
		createdAt time.Time
	)
	if err := s.Scan(&link.ID, &link.ParentID, &link.ChildID, &status, &createdAt); err != nil {
		return nil, err
	}
	link.Status = models.LinkStatus(status)
	link.CreatedAt = createdAt.UTC()
	return &link, nil
}

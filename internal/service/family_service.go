package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"familyquest/internal/credentials"
	"familyquest/internal/database"
	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/repository"
	"familyquest/internal/validation"
)

// DefaultInviteTTL is how long an invitation code stays valid.
const DefaultInviteTTL = 7 * 24 * time.Hour

const maxCodeAttempts = 5

// errInvitationTaken rolls back a link created for an invitation that a
// concurrent request consumed first.
var errInvitationTaken = errors.New("invitation already used")

// InvitationNotifier delivers a freshly created invitation to the family.
type InvitationNotifier interface {
	SendInvitationEmail(ctx context.Context, inv *models.Invitation, parentName string) error
}

// InviteRequest is a parent's request for a new invitation code
type InviteRequest struct {
	ParentID  int64
	ChildName string
	Email     string
}

// FamilyService handles invitations and parent/child links
type FamilyService struct {
	db          *database.DB
	accounts    *repository.AccountRepository
	families    *repository.FamilyRepository
	invitations *repository.InvitationRepository
	notifier    InvitationNotifier
	inviteTTL   time.Duration
	log         *logger.Logger
	now         func() time.Time
}

// NewFamilyService creates a new family service. notifier may be nil.
func NewFamilyService(db *database.DB, notifier InvitationNotifier, inviteTTL time.Duration, log *logger.Logger) *FamilyService {
	if inviteTTL <= 0 {
		inviteTTL = DefaultInviteTTL
	}
	return &FamilyService{
		db:          db,
		accounts:    repository.NewAccountRepository(db),
		families:    repository.NewFamilyRepository(db),
		invitations: repository.NewInvitationRepository(db),
		notifier:    notifier,
		inviteTTL:   inviteTTL,
		log:         log,
		now:         time.Now,
	}
}

// GenerateInviteCode creates a pending invitation for the parent
func (s *FamilyService) GenerateInviteCode(ctx context.Context, req InviteRequest) (*models.Invitation, error) {
	parent, err := s.accounts.GetByID(ctx, req.ParentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get parent: %w", err)
	}
	if parent == nil {
		return nil, ErrAccountNotFound
	}
	if !parent.IsParent() {
		return nil, ErrForbidden
	}

	childName := strings.TrimSpace(req.ChildName)
	if utf8.RuneCountInString(childName) > 64 {
		return nil, validation.ValidationError{Field: "child_name", Message: "child name must be at most 64 characters"}
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	inv := &models.Invitation{
		ParentID:  parent.ID,
		ChildName: childName,
		Email:     email,
		Status:    models.InvitationPending,
		ExpiresAt: now.Add(s.inviteTTL),
		CreatedAt: now,
	}

	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, fmt.Errorf("failed to generate a unique invitation code after %d attempts", maxCodeAttempts)
		}
		code, err := credentials.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invitation code: %w", err)
		}
		inv.Code = code
		err = s.invitations.Create(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		s.log.Warn("invitation code collision, retrying", "attempt", attempt+1)
	}

	s.log.Info("invitation created", "invitation_id", inv.ID, "parent_id", parent.ID, "expires_at", inv.ExpiresAt)

	if email != "" && s.notifier != nil {
		if err := s.notifier.SendInvitationEmail(ctx, inv, parent.DisplayName); err != nil {
			s.log.Warn("failed to send invitation email", "invitation_id", inv.ID, "error", err)
		}
	}
	return inv, nil
}

// AcceptInvitation links the child to the inviting parent. It returns false
// without changing anything when the code is malformed, unknown, used,
// expired, or the child does not exist. A child already actively linked to
// the parent gets false and ErrAlreadyLinked.
func (s *FamilyService) AcceptInvitation(ctx context.Context, code string, childID int64) (bool, error) {
	code = credentials.NormalizeInviteCode(code)
	if err := validation.ValidateInviteCode(code); err != nil {
		return false, nil
	}

	now := s.now().UTC()
	accepted := false
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		invitations := s.invitations.WithTx(tx)
		families := s.families.WithTx(tx)

		inv, err := invitations.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		if inv == nil || inv.Status != models.InvitationPending || inv.IsUsed() {
			return nil
		}
		if !inv.IsValid(now) {
			return ErrInvitationExpired
		}

		child, err := s.accounts.WithTx(tx).GetByID(ctx, childID)
		if err != nil {
			return err
		}
		if child == nil || !child.IsChild() {
			return nil
		}

		link, err := families.GetLink(ctx, inv.ParentID, childID)
		if err != nil {
			return err
		}
		switch {
		case link == nil:
			err := families.CreateLink(ctx, &models.FamilyLink{
				ParentID:  inv.ParentID,
				ChildID:   childID,
				Status:    models.LinkActive,
				CreatedAt: now,
			})
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyLinked
			}
			if err != nil {
				return err
			}
		case link.Status == models.LinkActive:
			return ErrAlreadyLinked
		default:
			if err := families.SetStatus(ctx, link.ID, models.LinkActive); err != nil {
				return err
			}
		}

		ok, err := invitations.MarkUsed(ctx, inv.ID, childID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errInvitationTaken
		}
		accepted = true
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrInvitationExpired), errors.Is(err, errInvitationTaken):
		s.log.Info("invitation rejected", "child_id", childID, "reason", err.Error())
		return false, nil
	case errors.Is(err, ErrAlreadyLinked):
		return false, ErrAlreadyLinked
	default:
		return false, fmt.Errorf("failed to accept invitation: %w", err)
	}

	if accepted {
		s.log.Info("invitation accepted", "child_id", childID)
	}
	return accepted, nil
}

// ChildrenOf returns the children actively linked to the parent
func (s *FamilyService) ChildrenOf(ctx context.Context, parentID int64) ([]models.Account, error) {
	return s.families.ChildrenOf(ctx, parentID)
}

// ParentsOf returns the parents actively linked to the child
func (s *FamilyService) ParentsOf(ctx context.Context, childID int64) ([]models.Account, error) {
	return s.families.ParentsOf(ctx, childID)
}

// IsParentOf reports whether an active link exists
func (s *FamilyService) IsParentOf(ctx context.Context, parentID, childID int64) (bool, error) {
	return s.families.IsActiveLink(ctx, parentID, childID)
}

// ListInvitations returns the parent's invitations, newest first. Pending
// invitations past their expiry are reported as expired; the stored status
// is not changed.
func (s *FamilyService) ListInvitations(ctx context.Context, parentID int64) ([]models.Invitation, error) {
	invitations, err := s.invitations.ListByParent(ctx, parentID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	for i := range invitations {
		invitations[i].Status = invitations[i].EffectiveStatus(now)
	}
	return invitations, nil
}

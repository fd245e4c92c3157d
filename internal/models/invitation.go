package models

import "time"

type InvitationStatus string

const (
	InvitationPending InvitationStatus = "pending"
	InvitationUsed    InvitationStatus = "used"
	InvitationExpired InvitationStatus = "expired"
)

type Invitation struct {
	ID        int64            `json:"id"`
	Code      string           `json:"code"`
	ParentID  int64            `json:"parent_id"`
	ChildName string           `json:"child_name,omitempty"`
	Email     string           `json:"email,omitempty"`
	Status    InvitationStatus `json:"status"`
	ExpiresAt time.Time        `json:"expires_at"`
	CreatedAt time.Time        `json:"created_at"`
	UsedAt    *time.Time       `json:"used_at,omitempty"`
	UsedBy    *int64           `json:"used_by,omitempty"`
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

func (i *Invitation) IsUsed() bool {
	return i.Status == InvitationUsed || i.UsedAt != nil
}

// IsValid reports whether the invitation can still be accepted at now.
func (i *Invitation) IsValid(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsUsed() && !i.IsExpired(now)
}

// EffectiveStatus reports expired for pending invitations past their expiry.
// The stored status is never rewritten to expired.
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && i.IsExpired(now) {
		return InvitationExpired
	}
	return i.Status
}

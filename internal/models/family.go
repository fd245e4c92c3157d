package models

import "time"

type LinkStatus string

const (
	LinkPending  LinkStatus = "pending"
	LinkActive   LinkStatus = "active"
	LinkInactive LinkStatus = "inactive"
)

// FamilyLink is the directed parent to child relationship.
type FamilyLink struct {
	ID        int64      `json:"id"`
	ParentID  int64      `json:"parent_id"`
	ChildID   int64      `json:"child_id"`
	Status    LinkStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

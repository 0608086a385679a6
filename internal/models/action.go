package models

import "time"

// ActionStatus values persisted in actions.status.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionLogged    ActionStatus = "logged"
	ActionCompleted ActionStatus = "completed"
)

// ActionPriority values persisted in actions.priority.
type ActionPriority string

const (
	PriorityLow    ActionPriority = "low"
	PriorityMedium ActionPriority = "medium"
	PriorityHigh   ActionPriority = "high"
	PriorityUrgent ActionPriority = "urgent"
)

// Valid reports whether the priority is known.
func (p ActionPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AutoCompleteNote is written when a defect disappears on inspection re-save.
const AutoCompleteNote = "Auto-completed: defect resolved on inspection re-save"

// Action is a workshop task, either raised manually or derived from an inspection defect.
type Action struct {
	ID               string         `db:"id" json:"id"`
	VehicleID        *string        `db:"vehicle_id" json:"vehicle_id"`
	InspectionID     *string        `db:"inspection_id" json:"inspection_id"`
	InspectionItemID *string        `db:"inspection_item_id" json:"inspection_item_id"`
	Title            string         `db:"title" json:"title"`
	Description      *string        `db:"description" json:"description"`
	Priority         ActionPriority `db:"priority" json:"priority"`
	Status           ActionStatus   `db:"status" json:"status"`
	LoggedComment    *string        `db:"logged_comment" json:"logged_comment,omitempty"`
	LoggedAt         *time.Time     `db:"logged_at" json:"logged_at,omitempty"`
	LoggedBy         *string        `db:"logged_by" json:"logged_by,omitempty"`
	ActionedComment  *string        `db:"actioned_comment" json:"actioned_comment,omitempty"`
	ActionedAt       *time.Time     `db:"actioned_at" json:"actioned_at,omitempty"`
	ActionedBy       *string        `db:"actioned_by" json:"actioned_by,omitempty"`
	CreatedBy        *string        `db:"created_by" json:"created_by,omitempty"`
	LastUpdatedBy    *string        `db:"last_updated_by" json:"last_updated_by,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// AuditValues returns the stringified audited fields.
func (a *Action) AuditValues() map[string]*string {
	return map[string]*string{
		"title":       Text(a.Title),
		"description": FormatText(a.Description),
		"priority":    Text(string(a.Priority)),
	}
}

// Open reports whether the task still needs workshop attention.
func (a *Action) Open() bool {
	return a.Status != ActionCompleted
}

// ActionFilter constrains action listing.
type ActionFilter struct {
	VehicleID    string
	InspectionID string
	Status       ActionStatus
	Page         int
	PageSize     int
}

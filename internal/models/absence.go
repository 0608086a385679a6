package models

import "time"

// AbsenceStatus values persisted in absences.status.
type AbsenceStatus string

const (
	AbsencePending   AbsenceStatus = "pending"
	AbsenceApproved  AbsenceStatus = "approved"
	AbsenceRejected  AbsenceStatus = "rejected"
	AbsenceCancelled AbsenceStatus = "cancelled"
)

// Absence is an employee leave record.
type Absence struct {
	ID             string        `db:"id" json:"id"`
	EmployeeID     string        `db:"employee_id" json:"employee_id"`
	Reason         string        `db:"reason" json:"reason"`
	StartDate      time.Time     `db:"start_date" json:"start_date"`
	EndDate        *time.Time    `db:"end_date" json:"end_date"`
	IsHalfDay      bool          `db:"is_half_day" json:"is_half_day"`
	HalfDaySession *string       `db:"half_day_session" json:"half_day_session"`
	DurationDays   float64       `db:"duration_days" json:"duration_days"`
	Notes          *string       `db:"notes" json:"notes"`
	Status         AbsenceStatus `db:"status" json:"status"`
	CreatedBy      string        `db:"created_by" json:"created_by"`
	ApprovedBy     *string       `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	RejectedBy     *string       `db:"rejected_by" json:"rejected_by,omitempty"`
	RejectedAt     *time.Time    `db:"rejected_at" json:"rejected_at,omitempty"`
	CancelledBy    *string       `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	LastUpdatedBy  *string       `db:"last_updated_by" json:"last_updated_by,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// AuditValues returns the stringified audited fields.
func (a *Absence) AuditValues() map[string]*string {
	return map[string]*string{
		"start_date":       FormatDate(&a.StartDate),
		"end_date":         FormatDate(a.EndDate),
		"is_half_day":      FormatBool(a.IsHalfDay),
		"half_day_session": FormatText(a.HalfDaySession),
		"reason":           Text(a.Reason),
		"duration_days":    FormatDecimal(a.DurationDays),
		"notes":            FormatText(a.Notes),
	}
}

// AbsenceFilter constrains absence listing.
type AbsenceFilter struct {
	EmployeeID string
	Status     AbsenceStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

package models

import "time"

// TimesheetStatus values persisted in timesheets.status.
type TimesheetStatus string

const (
	TimesheetDraft     TimesheetStatus = "draft"
	TimesheetSubmitted TimesheetStatus = "submitted"
	TimesheetApproved  TimesheetStatus = "approved"
	TimesheetRejected  TimesheetStatus = "rejected"
	TimesheetProcessed TimesheetStatus = "processed"
)

// Timesheet is a weekly hours record.
type Timesheet struct {
	ID              string           `db:"id" json:"id"`
	EmployeeID      string           `db:"employee_id" json:"employee_id"`
	WeekEnding      time.Time        `db:"week_ending" json:"week_ending"`
	RegNumber       *string          `db:"reg_number" json:"reg_number"`
	TotalHours      float64          `db:"total_hours" json:"total_hours"`
	Notes           *string          `db:"notes" json:"notes"`
	Status          TimesheetStatus  `db:"status" json:"status"`
	SubmittedAt     *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedBy      *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ManagerComments *string          `db:"manager_comments" json:"manager_comments,omitempty"`
	ProcessedBy     *string          `db:"processed_by" json:"processed_by,omitempty"`
	ProcessedAt     *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
	LastUpdatedBy   *string          `db:"last_updated_by" json:"last_updated_by,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
	Entries         []TimesheetEntry `db:"-" json:"entries,omitempty"`
}

// AuditValues returns the stringified audited fields.
func (t *Timesheet) AuditValues() map[string]*string {
	return map[string]*string{
		"week_ending": FormatDate(&t.WeekEnding),
		"reg_number":  FormatText(t.RegNumber),
		"total_hours": FormatDecimal(t.TotalHours),
		"notes":       FormatText(t.Notes),
	}
}

// TimesheetEntry is one day of a timesheet.
type TimesheetEntry struct {
	ID           string  `db:"id" json:"id"`
	TimesheetID  string  `db:"timesheet_id" json:"timesheet_id"`
	DayOfWeek    int     `db:"day_of_week" json:"day_of_week"`
	TimeStarted  *string `db:"time_started" json:"time_started"`
	TimeFinished *string `db:"time_finished" json:"time_finished"`
	DidNotWork   bool    `db:"did_not_work" json:"did_not_work"`
	DailyTotal   float64 `db:"daily_total" json:"daily_total"`
	Remarks      *string `db:"remarks" json:"remarks"`
}

// TimesheetFilter constrains timesheet listing.
type TimesheetFilter struct {
	EmployeeID string
	Status     TimesheetStatus
	Page       int
	PageSize   int
}

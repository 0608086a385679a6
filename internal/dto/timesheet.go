package dto

// TimesheetEntryInput is one day of hours.
type TimesheetEntryInput struct {
	DayOfWeek    int     `json:"day_of_week" validate:"required,min=1,max=7"`
	TimeStarted  *string `json:"time_started" validate:"omitempty,datetime=15:04"`
	TimeFinished *string `json:"time_finished" validate:"omitempty,datetime=15:04"`
	DidNotWork   bool    `json:"did_not_work"`
	Remarks      *string `json:"remarks" validate:"omitempty,max=500"`
}

// CreateTimesheetRequest opens a draft timesheet. EmployeeID defaults to the caller.
type CreateTimesheetRequest struct {
	EmployeeID string                `json:"employee_id" validate:"omitempty,uuid"`
	WeekEnding string                `json:"week_ending" validate:"required,datetime=2006-01-02"`
	RegNumber  *string               `json:"reg_number" validate:"omitempty,max=10"`
	Notes      *string               `json:"notes" validate:"omitempty,max=2000"`
	Entries    []TimesheetEntryInput `json:"entries" validate:"max=7,dive"`
}

// ReplaceEntriesRequest replaces every entry of a timesheet.
type ReplaceEntriesRequest struct {
	Comment string                `json:"comment"`
	Entries []TimesheetEntryInput `json:"entries" validate:"max=7,dive"`
}

// TimesheetQuery mirrors supported listing filters.
type TimesheetQuery struct {
	PageQuery
	EmployeeID string `form:"employee_id"`
	Status     string `form:"status" validate:"omitempty,oneof=draft submitted approved rejected processed"`
}

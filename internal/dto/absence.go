package dto

// CreateAbsenceRequest books leave. EmployeeID defaults to the caller.
type CreateAbsenceRequest struct {
	EmployeeID     string  `json:"employee_id" validate:"omitempty,uuid"`
	Reason         string  `json:"reason" validate:"required,max=100"`
	StartDate      string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	IsHalfDay      bool    `json:"is_half_day"`
	HalfDaySession *string `json:"half_day_session" validate:"omitempty,oneof=AM PM"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
}

// AbsenceQuery mirrors supported listing filters.
type AbsenceQuery struct {
	PageQuery
	EmployeeID string `form:"employee_id"`
	Status     string `form:"status" validate:"omitempty,oneof=pending approved rejected cancelled"`
	From       string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

package dto

// ReportQuery selects the output format of a report.
type ReportQuery struct {
	Format     string `form:"format" validate:"omitempty,oneof=json csv pdf"`
	WithinDays int    `form:"within_days" validate:"omitempty,min=1,max=365"`
}

// ExportQuery selects the output format of a history export.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

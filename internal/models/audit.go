package models

import "time"

// AuditAction constants name the events written to audit_logs.
const (
	AuditActionVehicleSync    = "VEHICLE_SYNC"
	AuditActionVehicleCreate  = "VEHICLE_CREATE"
	AuditActionVehicleDelete  = "VEHICLE_DELETE"
	AuditActionAccessDenied   = "ACCESS_DENIED"
	AuditActionUpstreamFailed = "UPSTREAM_FAILED"
)

// AuditLog represents an operational audit record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ErrorLog records a server-side failure with request context.
type ErrorLog struct {
	ID        string    `db:"id" json:"id"`
	RequestID *string   `db:"request_id" json:"request_id,omitempty"`
	Method    *string   `db:"method" json:"method,omitempty"`
	Path      *string   `db:"path" json:"path,omitempty"`
	ActorID   *string   `db:"actor_id" json:"actor_id,omitempty"`
	Code      string    `db:"code" json:"code"`
	Message   string    `db:"message" json:"message"`
	Detail    *string   `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

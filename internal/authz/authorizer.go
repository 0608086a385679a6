// Package authz decides whether an actor may perform an action on a resource.
package authz

import (
	"fmt"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

// Capability names an action that can be granted to a role.
type Capability string

const (
	VehicleManage     Capability = "vehicle:manage"
	VehicleRead       Capability = "vehicle:read"
	MaintenanceRead   Capability = "maintenance:read"
	MaintenanceUpdate Capability = "maintenance:update"
	AbsenceRequest    Capability = "absence:request"
	AbsenceRead       Capability = "absence:read"
	AbsenceUpdate     Capability = "absence:update"
	AbsenceReview     Capability = "absence:review"
	AbsenceCancel     Capability = "absence:cancel"
	TimesheetWrite    Capability = "timesheet:write"
	TimesheetRead     Capability = "timesheet:read"
	TimesheetReview   Capability = "timesheet:review"
	ActionManage      Capability = "action:manage"
	ActionRead        Capability = "action:read"
	InspectionWrite   Capability = "inspection:write"
	InspectionRead    Capability = "inspection:read"
	InspectionAmend   Capability = "inspection:amend"
	ReportRead        Capability = "report:read"
)

// Scope limits a grant to the actor's own records or opens it to all.
type Scope int

const (
	ScopeOwn Scope = iota + 1
	ScopeAll
)

// Resource describes the target of an action. An empty OwnerID means the owner is not yet
// known, as for list and create requests.
type Resource struct {
	Kind    string
	ID      string
	OwnerID string
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Scope   Scope
	Reason  string
}

// Err returns a forbidden error for a denied decision.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, d.Reason)
}

// Policy maps roles to their grants.
type Policy map[models.UserRole]map[Capability]Scope

// Authorizer evaluates capability checks against a policy.
type Authorizer struct {
	policy Policy
}

// New builds an authorizer. A nil policy uses DefaultPolicy.
func New(policy Policy) *Authorizer {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Authorizer{policy: policy}
}

// Authorize checks whether actor may perform capability on resource.
func (a *Authorizer) Authorize(actor models.Actor, capability Capability, resource Resource) Decision {
	grants, ok := a.policy[actor.Role]
	if !ok {
		return Decision{Reason: fmt.Sprintf("role %q has no grants", actor.Role)}
	}
	scope, ok := grants[capability]
	if !ok {
		return Decision{Reason: fmt.Sprintf("missing capability %s", capability)}
	}
	if scope == ScopeOwn && resource.OwnerID != "" && resource.OwnerID != actor.ID {
		return Decision{Scope: scope, Reason: fmt.Sprintf("%s belongs to another user", kindOr(resource.Kind))}
	}
	return Decision{Allowed: true, Scope: scope}
}

// Can is shorthand for Authorize(...).Allowed.
func (a *Authorizer) Can(actor models.Actor, capability Capability, resource Resource) bool {
	return a.Authorize(actor, capability, resource).Allowed
}

// OwnOnly reports whether the actor's grant for capability is limited to their own records.
func (a *Authorizer) OwnOnly(actor models.Actor, capability Capability) bool {
	return a.policy[actor.Role][capability] == ScopeOwn
}

func kindOr(kind string) string {
	if kind == "" {
		return "resource"
	}
	return kind
}

// DefaultPolicy is the built-in role table.
func DefaultPolicy() Policy {
	all := func(caps ...Capability) map[Capability]Scope {
		out := make(map[Capability]Scope, len(caps))
		for _, c := range caps {
			out[c] = ScopeAll
		}
		return out
	}

	everything := all(
		VehicleManage, VehicleRead, MaintenanceRead, MaintenanceUpdate,
		AbsenceRequest, AbsenceRead, AbsenceUpdate, AbsenceReview, AbsenceCancel,
		TimesheetWrite, TimesheetRead, TimesheetReview,
		ActionManage, ActionRead,
		InspectionWrite, InspectionRead, InspectionAmend,
		ReportRead,
	)

	workshop := all(VehicleRead, MaintenanceRead, MaintenanceUpdate, ActionManage, ActionRead, InspectionRead, ReportRead)
	for _, c := range []Capability{AbsenceRequest, AbsenceRead, AbsenceCancel, TimesheetWrite, TimesheetRead} {
		workshop[c] = ScopeOwn
	}

	employee := all(VehicleRead)
	for _, c := range []Capability{AbsenceRequest, AbsenceRead, AbsenceCancel, TimesheetWrite, TimesheetRead, InspectionWrite, InspectionRead} {
		employee[c] = ScopeOwn
	}

	manager := all()
	for c := range everything {
		manager[c] = ScopeAll
	}

	return Policy{
		models.RoleAdmin:    everything,
		models.RoleManager:  manager,
		models.RoleWorkshop: workshop,
		models.RoleEmployee: employee,
	}
}

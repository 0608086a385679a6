package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

func TestAuthorizeByRole(t *testing.T) {
	authorizer := New(nil)
	manager := models.Actor{ID: "m1", Role: models.RoleManager}
	workshop := models.Actor{ID: "w1", Role: models.RoleWorkshop}
	employee := models.Actor{ID: "e1", Role: models.RoleEmployee}

	assert.True(t, authorizer.Can(manager, AbsenceReview, Resource{}))
	assert.True(t, authorizer.Can(manager, InspectionAmend, Resource{}))
	assert.True(t, authorizer.Can(workshop, MaintenanceUpdate, Resource{}))
	assert.False(t, authorizer.Can(workshop, AbsenceReview, Resource{}))
	assert.False(t, authorizer.Can(employee, MaintenanceUpdate, Resource{}))
	assert.False(t, authorizer.Can(employee, InspectionAmend, Resource{}))
}

func TestAuthorizeOwnScope(t *testing.T) {
	authorizer := New(nil)
	employee := models.Actor{ID: "e1", Role: models.RoleEmployee}

	assert.True(t, authorizer.OwnOnly(employee, AbsenceRead))
	assert.True(t, authorizer.Can(employee, AbsenceRead, Resource{Kind: "absence", OwnerID: "e1"}))

	decision := authorizer.Authorize(employee, AbsenceRead, Resource{Kind: "absence", OwnerID: "e2"})
	require.False(t, decision.Allowed)
	require.ErrorIs(t, decision.Err(), appErrors.ErrForbidden)
	assert.Contains(t, decision.Reason, "absence")
}

func TestAuthorizeUnknownRole(t *testing.T) {
	decision := New(nil).Authorize(models.Actor{ID: "x", Role: "visitor"}, VehicleRead, Resource{})
	assert.False(t, decision.Allowed)
	assert.NoError(t, Decision{Allowed: true}.Err())
}

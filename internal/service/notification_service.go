package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/models"
	"github.com/fleetline/fleet-api/pkg/mailer"
)

type notificationUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// NotificationService emails employees about decisions on their records.
type NotificationService struct {
	sender mailer.Sender
	users  notificationUserLookup
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService. A nil sender logs instead of sending.
func NewNotificationService(sender mailer.Sender, users notificationUserLookup, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = mailer.Noop{Logger: logger}
	}
	return &NotificationService{sender: sender, users: users, logger: logger}
}

// AbsenceDecision notifies the employee that their absence was approved or rejected.
func (s *NotificationService) AbsenceDecision(ctx context.Context, absence *models.Absence, comment string) error {
	user, err := s.users.FindByID(ctx, absence.EmployeeID)
	if err != nil {
		return fmt.Errorf("lookup employee %s: %w", absence.EmployeeID, err)
	}

	period := absence.StartDate.Format(models.DateLayout)
	if absence.EndDate != nil && !absence.EndDate.Equal(absence.StartDate) {
		period += " to " + absence.EndDate.Format(models.DateLayout)
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\nYour %s absence for %s has been %s.\n", user.FullName, absence.Reason, period, absence.Status)
	if strings.TrimSpace(comment) != "" {
		fmt.Fprintf(&body, "\nComment: %s\n", strings.TrimSpace(comment))
	}

	return s.sender.Send(ctx, mailer.Message{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("Absence %s", absence.Status),
		Text:    body.String(),
	})
}

// TimesheetRejected notifies the employee that their timesheet needs changes.
func (s *NotificationService) TimesheetRejected(ctx context.Context, sheet *models.Timesheet, comment string) error {
	user, err := s.users.FindByID(ctx, sheet.EmployeeID)
	if err != nil {
		return fmt.Errorf("lookup employee %s: %w", sheet.EmployeeID, err)
	}

	week := sheet.WeekEnding.Format(models.DateLayout)
	text := fmt.Sprintf("Hello %s,\n\nYour timesheet for the week ending %s was rejected.\n\nReason: %s\n\nPlease amend and resubmit it.\n",
		user.FullName, week, strings.TrimSpace(comment))

	return s.sender.Send(ctx, mailer.Message{
		To:      []string{user.Email},
		Subject: "Timesheet rejected: week ending " + week,
		Text:    text,
	})
}

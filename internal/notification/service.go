package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/events"
	"github.com/assetflow/backend/internal/repository"
)

// Service persists notifications and bridges the event bus to the hub:
// every event is broadcast to connected sessions, and events that concern
// a specific user also produce a stored notification for them.
type Service struct {
	db            *database.DB
	notifications *repository.NotificationRepository
	hub           *Hub
	bus           *events.Bus
	logger        *log.Logger
}

// NewService creates the notification service.
func NewService(db *database.DB, notifications *repository.NotificationRepository, hub *Hub, bus *events.Bus) *Service {
	return &Service{
		db:            db,
		notifications: notifications,
		hub:           hub,
		bus:           bus,
		logger:        log.New(log.Writer(), "[Notifications] ", log.LstdFlags),
	}
}

// Run consumes the bus until ctx is done. Runs as one goroutine owned by
// main.
func (s *Service) Run(ctx context.Context) {
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Service) handle(ctx context.Context, ev *events.Event) {
	if payload, err := ev.JSON(); err == nil {
		s.hub.Broadcast(payload)
	}

	userID, title, message := targetOf(ev)
	if userID == "" {
		return
	}
	if err := s.Notify(ctx, userID, title, message, ev.Type, ev.Subject); err != nil {
		s.logger.Printf("persist failed for %s to %s: %v", ev.Type, userID, err)
	}
}

// targetOf maps an event to the user it concerns, if any. Loan overdue
// events are deliberately absent: the daily sweep persists those through
// NotifyOncePerDay, and persisting here as well would duplicate them.
func targetOf(ev *events.Event) (userID, title, message string) {
	str := func(key string) string {
		v, _ := ev.Data[key].(string)
		return v
	}
	switch ev.Type {
	case events.TypeLoanDecided:
		return str("borrower_id"), "Loan " + str("status"),
			fmt.Sprintf("Your loan %s was %s", str("loan_number"), str("status"))
	case events.TypeLoanReturned:
		return str("borrower_id"), "Loan closed",
			fmt.Sprintf("Loan %s is closed as %s", str("loan_number"), str("status"))
	case events.TypeWorkOrderAssigned:
		return str("technician_id"), "Work order assigned",
			fmt.Sprintf("Work order %s has been assigned to you", str("wo_number"))
	case events.TypeApprovalDecided:
		return str("requester_id"), "Approval " + str("status"),
			fmt.Sprintf("Your %s request is now %s", str("resource_type"), str("status"))
	case events.TypeTimesheetMoved:
		return str("checker_id"), "Timesheet " + str("status"),
			fmt.Sprintf("Your timesheet moved to %s", str("status"))
	}
	return "", "", ""
}

// Notify persists a notification and pushes it to the user's live
// sessions.
func (s *Service) Notify(ctx context.Context, userID, title, message, entityType, entityID string) error {
	n := &domain.Notification{
		UserID:     userID,
		Title:      title,
		Message:    message,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if err := s.notifications.Create(ctx, s.db, n); err != nil {
		return err
	}
	ev := events.NewEvent(events.TypeNotification, n.ID, map[string]any{
		"title":   n.Title,
		"message": n.Message,
	})
	if payload, err := ev.JSON(); err == nil {
		s.hub.SendToUser(userID, payload)
	}
	return nil
}

// NotifyOncePerDay persists a notification unless one for the same entity
// was already created today. Used by scheduler sweeps to stay idempotent
// across restarts.
func (s *Service) NotifyOncePerDay(ctx context.Context, userID, title, message, entityType, entityID string) error {
	exists, err := s.notifications.ExistsForEntityOn(ctx, s.db, userID, entityType, entityID, nowUTC())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.Notify(ctx, userID, title, message, entityType, entityID)
}

// List returns a user's notifications.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, page repository.Page) ([]*domain.Notification, error) {
	return s.notifications.List(ctx, s.db, userID, unreadOnly, page)
}

// UnreadCount returns how many unread notifications a user has.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifications.CountUnread(ctx, s.db, userID)
}

// MarkRead flags one notification read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.notifications.MarkRead(ctx, s.db, id)
}

// MarkAllRead flags all of a user's notifications read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.notifications.MarkAllRead(ctx, s.db, userID)
}

// Delete removes one notification.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.notifications.Delete(ctx, s.db, id)
}

func nowUTC() time.Time { return time.Now().UTC() }

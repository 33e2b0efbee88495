package service

import (
	"context"
	"fmt"

	"smartcity/internal/authz"
	"smartcity/internal/models"
	"smartcity/internal/observability"
	"smartcity/internal/repository"
)

// NotificationService owns Notification creation. It consumes lifecycle
// events and derives exactly one notification per triggering event.
type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// HandleEvent creates the notifications an event calls for and returns them
// so the dispatcher can route each to its channel. Events that produce no
// notifications return an empty slice.
func (s *NotificationService) HandleEvent(ctx context.Context, ev Event) ([]*models.Notification, error) {
	switch ev.Kind {
	case EventRequestStatusChanged:
		n := &models.Notification{
			UserID:       &ev.Request.OwnerID,
			Type:         models.NotificationRequestStatusChanged,
			Title:        "Request Status Updated",
			Message:      fmt.Sprintf("Your request '%s' is now %s", ev.Request.Name, ev.Request.Status),
			RelatedID:    ev.Request.ID,
			RelatedType:  "REQUEST",
			Municipality: ev.Request.Municipality,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return nil, err
		}
		observability.NotificationsCreated.WithLabelValues(string(n.Type), "personal").Inc()
		return []*models.Notification{n}, nil

	case EventBusinessApproved:
		n := &models.Notification{
			Type:         models.NotificationNewBusinessApproved,
			Title:        "New Business Approved",
			Message:      fmt.Sprintf("A new business '%s' was approved in your area", ev.Request.Name),
			RelatedID:    ev.Request.ID,
			RelatedType:  "REQUEST",
			Municipality: ev.Request.Municipality,
			Lat:          ev.Request.Lat,
			Lng:          ev.Request.Lng,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return nil, err
		}
		observability.NotificationsCreated.WithLabelValues(string(n.Type), "broadcast").Inc()
		return []*models.Notification{n}, nil

	case EventRequestDeleted:
		// Notifications pointing at a removed request are dead links.
		if err := s.repo.DeleteForRelated(ctx, ev.Request.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return nil, nil
}

// ListFor returns the actor's personal notifications plus every
// NEW_BUSINESS_APPROVED broadcast. The two sets are disjoint by
// construction, so no dedup is needed.
func (s *NotificationService) ListFor(ctx context.Context, actor authz.Actor) ([]*models.Notification, error) {
	personal, err := s.repo.ListPersonal(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	broadcasts, err := s.repo.ListBroadcasts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Notification, 0, len(personal)+len(broadcasts))
	out = append(out, personal...)
	for _, b := range broadcasts {
		if b.Type == models.NotificationNewBusinessApproved {
			out = append(out, b)
		}
	}
	return out, nil
}

// MarkRead flips the read flag on the actor's own notification. Broadcasts
// have no owner and cannot be marked read.
func (s *NotificationService) MarkRead(ctx context.Context, actor authz.Actor, id string) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d := authz.CanMarkNotificationRead(actor, n); !d.Allowed {
		return d.Err()
	}
	return s.repo.MarkRead(ctx, id)
}

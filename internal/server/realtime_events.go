package server

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"smartcity/internal/models"
	"smartcity/internal/service"
)

// Wire event type constants prevent typos in event names.
const (
	WireRequestCreated       = "request_created"
	WireRequestUpdated       = "request_updated"
	WireRequestStatusChanged = "request_status_changed"
	WireBusinessApproved     = "business_approved"
	WireDocumentsUpdated     = "documents_updated"
	WireRequestDeleted       = "request_deleted"
	WireNotification         = "notification"
	WireConversationMessage  = "conversation_message"
)

var wireTypes = map[service.EventKind]string{
	service.EventRequestCreated:       WireRequestCreated,
	service.EventRequestUpdated:       WireRequestUpdated,
	service.EventRequestStatusChanged: WireRequestStatusChanged,
	service.EventBusinessApproved:     WireBusinessApproved,
	service.EventDocumentsUpdated:     WireDocumentsUpdated,
	service.EventRequestDeleted:       WireRequestDeleted,
}

func marshalWireEvent(eventType, municipality string, payload interface{}) ([]byte, bool) {
	msg, err := json.Marshal(map[string]interface{}{
		"type":         eventType,
		"municipality": municipality,
		"payload":      payload,
	})
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return nil, false
	}
	return msg, true
}

// dispatchRequestEvents is the second half of every request mutation: the
// storage write has already committed, so from here on failures are logged
// and never propagated back to the client.
func (s *Server) dispatchRequestEvents(ctx context.Context, events []service.Event) {
	for _, ev := range events {
		notifs, err := s.notificationService.HandleEvent(ctx, ev)
		if err != nil {
			log.Printf("failed to persist notifications for %s: %v", ev.Kind, err)
		}

		if s.notifier == nil {
			continue
		}

		if msg, ok := marshalWireEvent(wireTypes[ev.Kind], ev.Request.Municipality, ev); ok {
			if err := s.notifier.PublishFeed(ctx, msg); err != nil {
				log.Printf("failed to publish %s feed event: %v", ev.Kind, err)
			}
		}

		for _, n := range notifs {
			s.publishNotification(ctx, n)
		}
	}
}

func (s *Server) publishNotification(ctx context.Context, n *models.Notification) {
	msg, ok := marshalWireEvent(WireNotification, n.Municipality, n)
	if !ok {
		return
	}
	var err error
	if n.Broadcast() {
		err = s.notifier.PublishApproved(ctx, msg)
	} else {
		err = s.notifier.PublishUser(ctx, *n.UserID, msg)
	}
	if err != nil {
		log.Printf("failed to publish notification %s: %v", n.ID, err)
	}
}

// dispatchConversationMessage fans a freshly appended message out to the
// owner's thread channel. Best-effort, like all realtime delivery.
func (s *Server) dispatchConversationMessage(ctx context.Context, ownerID, municipality string, msg *models.Message) {
	if s.notifier == nil {
		return
	}
	payload, ok := marshalWireEvent(WireConversationMessage, municipality, msg)
	if !ok {
		return
	}
	if err := s.notifier.PublishConversation(ctx, ownerID, payload); err != nil {
		log.Printf("failed to publish conversation message for owner %s: %v", ownerID, err)
	}
}

// ownerMunicipality looks up the municipality a conversation is scoped to.
// Falls back to the actor-supplied hint when the lookup fails.
func (s *Server) ownerMunicipality(ctx context.Context, ownerID, fallback string) string {
	owner, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil || owner == nil {
		return strings.TrimSpace(fallback)
	}
	return owner.Municipality
}

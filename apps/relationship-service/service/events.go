package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cashpop-social/apps/relationship-service/model"
	"cashpop-social/pkg/logger"
)

const relationshipEventTopic = "relationship-events"

// 事件类型
const (
	EventRequestSent     = "request_sent"
	EventRequestAccepted = "request_accepted"
	EventRequestRejected = "request_rejected"
	EventFriendBlocked   = "friend_blocked"
	EventAutoAccepted    = "auto_accepted"
)

// publishRelationshipEvent 异步发送关系变更事件
func (s *Service) publishRelationshipEvent(ctx context.Context, eventType string, rel *model.Relationship, source string) {
	if s.kafka == nil {
		return
	}

	event := &model.RelationshipEvent{
		EventType:   eventType,
		OwnerEmail:  rel.OwnerEmail,
		PeerEmail:   rel.PeerEmail,
		Status:      rel.Status,
		InitiatedBy: rel.InitiatedBy,
		Source:      source,
		Timestamp:   time.Now(),
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		s.logger.Error(ctx, "Failed to marshal relationship event",
			logger.F("error", err.Error()),
			logger.F("eventType", eventType))
		return
	}

	go func() {
		key := fmt.Sprintf("%s:%s", event.OwnerEmail, event.PeerEmail)
		if err := s.kafka.SendMessage(relationshipEventTopic, []byte(key), eventData); err != nil {
			s.logger.Error(context.Background(), "Failed to send relationship event",
				logger.F("error", err.Error()),
				logger.F("topic", relationshipEventTopic),
				logger.F("key", key))
		}
	}()
}

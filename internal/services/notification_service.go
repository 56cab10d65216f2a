package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"gobear/internal/kafka"
	"gobear/internal/models"
	"gobear/internal/storage"
)

// NotificationEvent is the wire format published to the notifications topic.
// The consumer persists it as a models.Notification and pushes it to any
// connected client of the recipient.
type NotificationEvent struct {
	UserID    uint                    `json:"userId"`
	Kind      models.NotificationKind `json:"kind"`
	Payload   map[string]interface{}  `json:"payload,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// NotificationDispatcher publishes a notification event for a user. Services
// call Dispatch after their transaction commits; delivery is asynchronous and
// failures are logged by the caller, never surfaced to the user.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, userID uint, kind models.NotificationKind, payload map[string]interface{}) error
}

// NotificationPusher delivers a rendered notification to a connected client,
// if one is registered for the user. Implemented by the websocket hub.
type NotificationPusher interface {
	Push(userID uint, data []byte)
}

// kafkaNotificationDispatcher publishes NotificationEvents to Kafka, keyed by
// recipient so a user's notifications stay ordered within a partition.
type kafkaNotificationDispatcher struct {
	producer kafka.MessageProducer
	topic    string
}

// NewKafkaNotificationDispatcher creates a dispatcher publishing to topic.
func NewKafkaNotificationDispatcher(producer kafka.MessageProducer, topic string) NotificationDispatcher {
	return &kafkaNotificationDispatcher{producer: producer, topic: topic}
}

func (d *kafkaNotificationDispatcher) Dispatch(ctx context.Context, userID uint, kind models.NotificationKind, payload map[string]interface{}) error {
	event := NotificationEvent{
		UserID:    userID,
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event for user %d: %w", userID, err)
	}
	key := []byte(strconv.FormatUint(uint64(userID), 10))
	if err := d.producer.SendMessage(ctx, d.topic, key, data); err != nil {
		return fmt.Errorf("failed to publish notification event for user %d: %w", userID, err)
	}
	return nil
}

// NotificationService persists and serves in-app notifications. Its
// ProcessNotificationEvent method is the Kafka consumer handler for the
// notifications topic.
type NotificationService interface {
	ProcessNotificationEvent(ctx context.Context, key []byte, value []byte) error
	ListNotifications(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uint) error
}

type notificationService struct {
	repo   storage.NotificationRepository
	pusher NotificationPusher
}

// NewNotificationService creates a new NotificationService. pusher may be nil
// when no realtime channel is configured.
func NewNotificationService(repo storage.NotificationRepository, pusher NotificationPusher) NotificationService {
	return &notificationService{repo: repo, pusher: pusher}
}

// ProcessNotificationEvent decodes a NotificationEvent, stores it and pushes
// it to the recipient's websocket connection when one is open. Malformed
// events are logged and dropped so the consumer does not wedge on a poison
// message.
func (s *notificationService) ProcessNotificationEvent(ctx context.Context, key []byte, value []byte) error {
	var event NotificationEvent
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("Dropping malformed notification event (key %s): %v", string(key), err)
		return nil
	}
	if event.UserID == 0 || event.Kind == "" {
		log.Printf("Dropping notification event with missing recipient or kind (key %s)", string(key))
		return nil
	}

	payloadJSON := ""
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			log.Printf("Dropping notification payload for user %d: %v", event.UserID, err)
		} else {
			payloadJSON = string(data)
		}
	}

	notification := &models.Notification{
		UserID:  event.UserID,
		Kind:    event.Kind,
		Payload: payloadJSON,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		// Returned so the consumer does not commit the offset; the event is
		// redelivered once the database recovers.
		return fmt.Errorf("failed to persist notification for user %d: %w", event.UserID, err)
	}

	if s.pusher != nil {
		if data, err := json.Marshal(notification); err == nil {
			s.pusher.Push(event.UserID, data)
		} else {
			log.Printf("Failed to encode notification %d for push: %v", notification.ID, err)
		}
	}
	return nil
}

func (s *notificationService) ListNotifications(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

// MarkRead marks one of the caller's notifications as read. Marking an
// already-read notification again is a no-op.
func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	if _, err := s.repo.MarkRead(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", notificationID, err)
	}
	return nil
}

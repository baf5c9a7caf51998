package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/observability"
	"github.com/noah-isme/gema-lms-api/internal/repository"
)

const notificationBufferSize = 16

// ErrDuplicateNotification indicates the user already holds a notification with the same source key.
var ErrDuplicateNotification = errors.New("notification already delivered")

// Notifier publishes a single in-app notification.
type Notifier interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// NotificationService stores notifications and streams them to connected clients.
type NotificationService interface {
	Notifier
	List(ctx context.Context, userID uint, limit, offset int) (dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo         repository.NotificationRepository
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	sanitizer    *bluemonday.Policy
	broker       *notificationBroker
	nodeID       string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs a notification service. Redis and NATS are
// optional and relay notifications to streams held by other API nodes.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, natsConn *nats.Conn, channelBase string, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:         repo,
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		validator:    validate,
		logger:       logger.With().Str("component", "notification_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/gema-lms-api/internal/service/notification"),
		sanitizer:    bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

// Start subscribes to the relay so notifications published on other nodes reach
// local streams. NATS is preferred when both transports are configured.
func (s *notificationService) Start(ctx context.Context) {
	switch {
	case s.natsEnabled():
		s.consumeNATS(ctx)
	case s.redisEnabled():
		go s.consumeRedis(ctx)
	}
}

func (s *notificationService) natsEnabled() bool {
	return s.nats != nil && s.natsSubject != ""
}

func (s *notificationService) redisEnabled() bool {
	return s.redis != nil && s.redisChannel != ""
}

// Publish stores the notification and pushes it to live streams. A notification
// whose source key the user already holds is reported as ErrDuplicateNotification.
func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, validationFailure(err)
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if cleanMessage == "" {
		return dto.NotificationResponse{}, fieldError("message", "is empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(payload.UserID)),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	model := models.Notification{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Title:   strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Message: cleanMessage,
	}

	if key := strings.TrimSpace(payload.SourceKey); key != "" {
		model.SourceKey = &key
		created, err := s.repo.CreateUnique(spanCtx, &model)
		if err != nil {
			span.RecordError(err)
			return dto.NotificationResponse{}, err
		}
		if !created {
			return dto.NotificationResponse{}, ErrDuplicateNotification
		}
	} else if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	s.broker.broadcast(response.UserID, response)
	if err := s.relay(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to relay notification to broker")
	}

	return response, nil
}

func (s *notificationService) List(ctx context.Context, userID uint, limit, offset int) (dto.NotificationListResponse, error) {
	if userID == 0 {
		return dto.NotificationListResponse{}, errors.New("user id is required")
	}

	notifications, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	return dto.NotificationListResponse{
		Items:  dto.NewNotificationResponseSlice(notifications),
		Unread: unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(userID, channel)
	observability.NotificationStreams().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(userID, channel)
			observability.NotificationStreams().Dec()
		})
	}

	return channel, cleanup
}

func (s *notificationService) relay(ctx context.Context, notification dto.NotificationResponse) error {
	if !s.natsEnabled() && !s.redisEnabled() {
		return nil
	}

	payload, err := json.Marshal(notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.natsEnabled() {
		return s.nats.Publish(s.natsSubject, payload)
	}
	return s.redis.Publish(ctx, s.redisChannel, payload).Err()
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

// consumeNATS uses a plain subscription: every node must see every event to
// reach the streams it holds.
func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.broker.broadcast(event.Notification.UserID, event.Notification)
}

func (b *notificationBroker) subscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *notificationBroker) broadcast(userID uint, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- notification:
		default:
		}
	}
}

package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// NotificationHandler manages the notification inbox and its websocket stream.
type NotificationHandler struct {
	service      service.NotificationService
	logger       zerolog.Logger
	pingInterval time.Duration
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, pingInterval time.Duration) *NotificationHandler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &NotificationHandler{
		service:      service,
		logger:       logger.With().Str("component", "notification_handler").Logger(),
		pingInterval: pingInterval,
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.stream))
	router.Get("", h.list)
	router.Patch("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	notifications, err := h.service.List(requestContext(c), userID, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list notifications")
	}

	return utils.SendSuccess(c, "notifications", notifications)
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	notification, err := h.service.MarkRead(requestContext(c), id, userID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update notification")
	}

	return utils.SendSuccess(c, "notification updated", notification)
}

func (h *NotificationHandler) stream(conn *websocket.Conn) {
	userID := userIDFromLocal(conn.Locals("user_id"))
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		_ = conn.Close()
		return
	}

	logger := h.logger.With().Uint("user_id", userID).Interface("correlation_id", conn.Locals("correlation_id")).Logger()

	notifications, unsubscribe := h.service.Subscribe(userID)
	defer unsubscribe()

	// the client never sends data; reading surfaces disconnects
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	logger.Info().Msg("notification stream connected")
	defer logger.Info().Msg("notification stream disconnected")

	for {
		select {
		case notification, ok := <-notifications:
			if !ok {
				return
			}
			if err := conn.WriteJSON(notification); err != nil {
				logger.Debug().Err(err).Msg("failed to write notification")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

package handler_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-lms-api/internal/dto"
)

func startFiberServer(t *testing.T, app *fiber.App) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	return ln.Addr().String()
}

func TestNotificationStreamDeliversPublishedNotifications(t *testing.T) {
	app := newTestApp(t)
	student, _ := app.seedStudent(t, "student@gema.test")
	addr := startFiberServer(t, app.app)

	header := http.Header{}
	header.Set("X-Test-User", strconv.FormatUint(uint64(student.id), 10))
	header.Set("X-Test-Role", student.role)

	conn, resp, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/api/v2/notifications/ws", addr), header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	received := make(chan dto.NotificationResponse, 1)
	go func() {
		var notification dto.NotificationResponse
		if err := conn.ReadJSON(&notification); err == nil {
			received <- notification
		}
	}()

	// the subscription is registered asynchronously after the upgrade
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case notification := <-received:
			require.Equal(t, student.id, notification.UserID)
			require.Equal(t, "Room changed to B204", notification.Message)
			return
		case <-ticker.C:
			_, err := app.notifications.Publish(context.Background(), dto.NotificationCreateRequest{
				UserID:    student.id,
				Type:      "announcement",
				Message:   "Room changed to B204",
				SourceKey: fmt.Sprintf("room-change:%d", i),
			})
			require.NoError(t, err)
		case <-deadline:
			t.Fatal("notification was not streamed")
		}
	}
}

func TestNotificationStreamRequiresUpgrade(t *testing.T) {
	app := newTestApp(t)
	student, _ := app.seedStudent(t, "student@gema.test")

	status, _ := app.do(t, student, http.MethodGet, "/api/v2/notifications/ws", nil)
	require.Equal(t, http.StatusUpgradeRequired, status)
}

func TestNotificationStreamRejectsAnonymous(t *testing.T) {
	app := newTestApp(t)
	addr := startFiberServer(t, app.app)

	_, resp, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/api/v2/notifications/ws", addr), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

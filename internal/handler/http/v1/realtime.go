package v1

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/emergency_response_system/internal/realtime"
)

const wsWriteTimeout = 5 * time.Second

//go:generate mockgen -source=realtime.go -destination=mocks/mock_realtime.go -package=mocks

// RealtimeSubscriber - источник realtime-сообщений для одного пользователя
type RealtimeSubscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan realtime.Message, func() error, error)
}

// upgradeWriter отдаёт websocket.Accept писатель без WriteHeaderNow.
// Статус 101 пишется сразу в исходный http.ResponseWriter, gin-писатель до Hijack остаётся незаписанным.
type upgradeWriter struct {
	gin gin.ResponseWriter
}

func (u upgradeWriter) Header() http.Header { return u.gin.Header() }

func (u upgradeWriter) Write(b []byte) (int, error) { return u.gin.Write(b) }

func (u upgradeWriter) WriteHeader(code int) {
	u.gin.WriteHeader(code)
	if code != http.StatusSwitchingProtocols {
		return
	}
	if raw, ok := u.gin.(interface{ Unwrap() http.ResponseWriter }); ok {
		raw.Unwrap().WriteHeader(code)
	}
}

func (u upgradeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) { return u.gin.Hijack() }

// @Summary Realtime change feed
// @Description WebSocket stream of incident changes within the caller's scope and the caller's new notifications. Browsers pass the token as access_token query parameter.
// @Tags Realtime
// @Security BearerAuth
// @Param access_token query string false "Bearer token for browser clients"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 503 {object} ErrorResponse "Realtime unavailable"
// @Router /realtime [get]
func (h *Handler) streamRealtime(c *gin.Context) {
	actor := mustActor(c)
	log := h.log(c, "streamRealtime")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// подписываемся до апгрейда, чтобы ошибку Redis можно было вернуть обычным ответом
	messages, closeSub, err := h.realtime.Subscribe(ctx, actor.ID)
	if err != nil {
		log.WithError(err).Error("Failed to subscribe to realtime channels")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "realtime unavailable"})
		return
	}
	defer func() {
		if err := closeSub(); err != nil {
			log.WithError(err).Warn("Failed to close realtime subscription")
		}
	}()

	opts := &websocket.AcceptOptions{}
	if len(h.opts.WSAllowedOrigins) > 0 {
		opts.OriginPatterns = h.opts.WSAllowedOrigins
	}
	conn, err := websocket.Accept(upgradeWriter{gin: c.Writer}, c.Request, opts)
	if err != nil {
		log.WithError(err).Warn("WebSocket handshake failed")
		return
	}
	defer conn.CloseNow()

	write := func(ctx context.Context, m realtime.Message) error {
		writeCtx, cancelWrite := context.WithTimeout(ctx, wsWriteTimeout)
		defer cancelWrite()
		return wsjson.Write(writeCtx, conn, m)
	}
	if err := write(ctx, realtime.Message{Kind: realtime.KindReady}); err != nil {
		log.WithError(err).Warn("Failed to send ready frame")
		return
	}

	// входящие кадры клиента не нужны, читаем только чтобы заметить закрытие
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	log.Info("Realtime client connected")
	err = realtime.Pump(ctx, messages, realtime.Filter(actor), write)
	switch {
	case errors.Is(err, context.Canceled):
		_ = conn.Close(websocket.StatusNormalClosure, "closed")
	case errors.Is(err, realtime.ErrClosed):
		_ = conn.Close(websocket.StatusGoingAway, "subscription closed")
	default:
		log.WithError(err).Warn("Realtime stream stopped")
		_ = conn.Close(websocket.StatusInternalError, "write_failed")
	}
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ridedispatch/internal/broadcast"
	"ridedispatch/internal/domain"
)

// WSHandler upgrades clients to a websocket and bridges them to the event hub.
type WSHandler struct {
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *broadcast.Hub, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks are delegated to the CORS layer in front.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Connect handles GET /v1/ws?rider_id=... or ?driver_id=...
//
// Riders subscribe to their own topic; drivers subscribe to their own topic
// plus the global drivers topic where new requests are announced. Ride-scoped
// topics are joined over the socket with join_ride control messages.
func (h *WSHandler) Connect(c *gin.Context) {
	riderID := c.Query("rider_id")
	driverID := c.Query("driver_id")
	if riderID == "" && driverID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rider_id or driver_id required"})
		return
	}

	var topics []string
	if riderID != "" {
		topics = append(topics, domain.TopicRider(riderID))
	}
	if driverID != "" {
		topics = append(topics, domain.TopicDriver(driverID), domain.TopicDrivers)
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	session := broadcast.NewSession(h.hub, conn, h.logger, topics...)
	session.Run()
}

package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/safarides/safar-backend/pkg/eventbus"
	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/metrics"
	"github.com/safarides/safar-backend/pkg/middleware"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens at the CORS layer; the handshake itself
		// is guarded by the bearer token.
		return true
	},
}

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	bus *eventbus.Bus
}

// NewHandler creates a realtime handler over the event bus.
func NewHandler(bus *eventbus.Bus) *Handler {
	return &Handler{bus: bus}
}

// HandleWebSocket runs after the auth middleware, so a failed bearer check
// never reaches the upgrade: authentication rejection is a hard error.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(userID, middleware.IsAdmin(c), conn, h.bus)
	metrics.WebsocketClients.Inc()

	go client.WritePump()
	go client.ReadPump()

	logger.Debug("websocket connected", zap.String("user_id", userID.String()))
}

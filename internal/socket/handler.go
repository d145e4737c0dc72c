// internal/socket/handler.go
package socket

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-discuss/internal/logger"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
)

// TokenParser turns a bearer token into the caller's identity.
type TokenParser interface {
	Parse(token string) (models.Identity, error)
}

// Handler upgrades HTTP requests into hub clients.
type Handler struct {
	Hub      *Hub
	Tokens   TokenParser
	Policy   JoinPolicy
	Sender   MessageSender
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler builds a handler. An empty allowedOrigins list accepts any origin.
func NewHandler(hub *Hub, tokens TokenParser, policy JoinPolicy, sender MessageSender, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o != "" {
			allowed[strings.TrimRight(o, "/")] = true
		}
	}

	return &Handler{
		Hub:    hub,
		Tokens: tokens,
		Policy: policy,
		Sender: sender,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				return allowed[strings.TrimRight(origin, "/")]
			},
		},
		log: logger.Component("ws"),
	}
}

// HandleWebSocket validates the token from the query string (browsers cannot
// set headers on a websocket handshake) or the Authorization header.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
		return
	}

	identity, err := h.Tokens.Parse(tokenString)
	if err != nil {
		h.log.Debug().Err(err).Msg("rejected websocket token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := h.newClient(identity, conn)
	h.Hub.Attach(client)

	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) newClient(identity models.Identity, conn *websocket.Conn) *Client {
	id := uuid.New().String()
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		hub:      h.Hub,
		policy:   h.Policy,
		sender:   h.Sender,
		send:     make(chan []byte, sendBuffer),
		log:      h.log.With().Str("user", identity.ID).Str("conn", id).Logger(),
	}
}

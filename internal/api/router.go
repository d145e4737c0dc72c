// Package api assembles the gin engine: public health and websocket routes
// plus the token-protected discussion API.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-discuss/internal/api/handlers"
	"github.com/Marga-Ghale/ora-discuss/internal/api/middleware"
	"github.com/Marga-Ghale/ora-discuss/internal/service"
	"github.com/Marga-Ghale/ora-discuss/internal/socket"
)

type RouterDeps struct {
	Services       *service.Services
	Hub            *socket.Hub
	WS             *socket.Handler
	Tokens         middleware.TokenParser
	AllowedOrigins []string
	Storage        string // reported by /health
	RelayEnabled   bool
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		relay := "disabled"
		if deps.RelayEnabled {
			relay = "redis"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now().UTC(),
			"storage":    deps.Storage,
			"relay":      relay,
			"ws_clients": deps.Hub.GetConnectedClientsCount(),
		})
	})

	h := handlers.NewHandlers(deps.Services)

	api := r.Group("/api")
	{
		if deps.WS != nil {
			api.GET("/ws", deps.WS.HandleWebSocket)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(deps.Tokens))
		{
			projects := protected.Group("/projects")
			{
				projects.GET("", h.Project.List)
				projects.GET("/:id", h.Project.Get)
				projects.PATCH("/:id/columns", h.Project.PatchColumns)

				projects.GET("/:id/messages", h.Message.History)
				projects.POST("/:id/messages", h.Message.Send)

				projects.GET("/:id/files", h.File.List)
				projects.POST("/:id/files", h.File.Upload)
				projects.DELETE("/:id/files/:fileId", h.File.Delete)
			}

			protected.GET("/files/:fileId/download", h.File.Download)

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.POST("/request", h.Notification.Request)
				notifications.POST("/:id/accept", h.Notification.Accept)
				notifications.POST("/:id/reject", h.Notification.Reject)
			}
		}
	}

	return r
}

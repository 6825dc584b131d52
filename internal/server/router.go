// internal/server/router.go
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kor4soft/teamsync/internal/config"
	"github.com/kor4soft/teamsync/internal/server/tablestore"
	"github.com/kor4soft/teamsync/internal/socket"
)

// NewRouter assembles the gin engine: auth, the generic table surface, the
// websocket change feed and blob storage.
func NewRouter(cfg *config.Config, auth AuthService, store *tablestore.Store, wsHandler *socket.Handler) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := NewAuthHandler(auth)
	tablesHandler := NewTablesHandler(store)
	storageHandler := NewStorageHandler(cfg.DataDir)

	api := r.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", AuthMiddleware(auth), authHandler.Me)
		}

		api.GET("/ws", wsHandler.HandleWebSocket)

		protected := api.Group("")
		protected.Use(AuthMiddleware(auth))
		{
			tables := protected.Group("/tables/:table")
			{
				tables.GET("", tablesHandler.List)
				tables.GET("/count", tablesHandler.Count)
				tables.POST("", tablesHandler.Create)
				tables.PATCH("/:id", tablesHandler.Update)
				tables.DELETE("/:id", tablesHandler.Delete)
			}

			protected.POST("/storage/:bucket", storageHandler.Upload)
		}
	}

	r.GET("/storage/:bucket/:key", storageHandler.Serve)

	return r
}

package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/roomcast/internal/adapters/auth"
	"github.com/dkeye/roomcast/internal/adapters/signal"
	"github.com/dkeye/roomcast/internal/app/orch"
	"github.com/dkeye/roomcast/internal/config"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// requestLogger is gin.Logger over zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().Str("module", "adapters.http").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, rooms core.RoomStore, authn *auth.Authenticator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(requestLogger())
	}
	r.Use(gin.Recovery())

	ctrl := signal.NewSignalWSController(o, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "OK",
			"timestamp":         time.Now().UTC().Format(time.RFC3339),
			"activeRooms":       o.Rooms.RoomCount(),
			"activeConnections": o.ActiveConnections(),
		})
	})

	api.GET("/join/:roomId", func(c *gin.Context) {
		room, err := rooms.RoomByID(c.Request.Context(), domain.RoomID(c.Param("roomId")))
		if err != nil {
			if errors.Is(err, domain.ErrRoomNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
				return
			}
			log.Error().Err(err).Str("module", "adapters.http").Str("room", c.Param("roomId")).Msg("room lookup")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, room)
	})

	api.GET("/ws", auth.Middleware(authn), func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"floor_service/internal/allocation"
	"floor_service/internal/catalog"
	"floor_service/internal/floor"
	"floor_service/internal/ledger"
	"floor_service/internal/status"
)

type Handler struct {
	ledger     *ledger.Engine
	status     *status.Engine
	allocation *allocation.Manager
	catalog    *catalog.Catalog
}

func NewHandler(l *ledger.Engine, s *status.Engine, a *allocation.Manager, c *catalog.Catalog) *Handler {
	return &Handler{ledger: l, status: s, allocation: a, catalog: c}
}

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	l := r.Group("/ledger")
	l.POST("/transfer", h.transfer)
	l.POST("/reclaim", h.reclaim)
	l.POST("/credit", h.credit)

	admins := r.Group("/admins")
	admins.POST("", h.createAdmin)
	admins.POST("/login", h.login)
	admins.GET("/:id/entries", h.listEntries)
	admins.PUT("/:id/status", h.accountStatus(floor.KindAdmin))

	users := r.Group("/users")
	users.POST("", h.createSubUser)
	users.GET("", h.listUsers)
	users.PUT("/:id/status", h.accountStatus(floor.KindUser))

	rooms := r.Group("/rooms")
	rooms.POST("", h.createRoom)
	rooms.GET("", h.listRooms)
	rooms.PUT("/:id/manager", h.assignManager)
	rooms.PUT("/:id/machines/:machineId", h.attachMachine)
	rooms.GET("/:id/machines", h.listMachinesInRoom)

	machines := r.Group("/machines")
	machines.POST("", h.createMachine)
	machines.GET("", h.listMachines)
	machines.PUT("/:id/worker", h.assignWorker)
	machines.PUT("/:id/games/:gameId", h.attachGame)
	machines.GET("/:id/games", h.listGamesOnMachine)

	r.PUT("/devices/status", h.freeze)

	games := r.Group("/games")
	games.POST("", h.createGame)
	games.PUT("/:id/bet-limits", h.setBetLimits)
	games.PUT("/:id/status", h.gameStatus)
	games.DELETE("/:id", h.deleteGame)

	return r
}

// renderError writes the taxonomy code and status for err. Internal errors
// are logged and their message is not exposed.
func renderError(c *gin.Context, err error) {
	code := floor.CodeOf(err)
	msg := err.Error()
	if code == floor.CodeInternal {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		msg = "internal error"
	}
	c.JSON(floor.HTTPStatus(err), gin.H{"error": msg, "code": code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("request handled")
	}
}

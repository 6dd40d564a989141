package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"floor_service/internal/catalog"
	"floor_service/internal/floor"
	"floor_service/internal/ledger"
	"floor_service/internal/status"
)

func (h *Handler) transfer(c *gin.Context) {
	var req ledger.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.ledger.TransferToTarget(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) reclaim(c *gin.Context) {
	var req ledger.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.ledger.ReclaimFromTarget(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) credit(c *gin.Context) {
	var req ledger.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.ledger.CreditAdmin(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listEntries(c *gin.Context) {
	var page floor.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.ledger.ListEntries(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) accountStatus(kind floor.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body statusBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		changed, err := h.status.SetAccountStatus(c.Request.Context(), kind, c.Param("id"), body.Status)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"changed": changed})
	}
}

func (h *Handler) freeze(c *gin.Context) {
	var req status.FreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	changed, err := h.status.Freeze(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

func (h *Handler) gameStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	changed, err := h.status.SetGameStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

type userBody struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *Handler) assignManager(c *gin.Context) {
	var body userBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.allocation.AssignManager(c.Request.Context(), c.Param("id"), body.UserID); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) assignWorker(c *gin.Context) {
	var body userBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.allocation.AssignWorker(c.Request.Context(), c.Param("id"), body.UserID); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) attachMachine(c *gin.Context) {
	if err := h.allocation.AttachMachine(c.Request.Context(), c.Param("id"), c.Param("machineId")); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) attachGame(c *gin.Context) {
	var body struct {
		RoomName string `json:"room_name"`
	}
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := h.allocation.AttachGame(c.Request.Context(), c.Param("id"), c.Param("gameId"), body.RoomName); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listMachinesInRoom(c *gin.Context) {
	var page floor.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.allocation.ListMachinesInRoom(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listGamesOnMachine(c *gin.Context) {
	var page floor.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.allocation.ListGamesOnMachine(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) createRoom(c *gin.Context) {
	var req catalog.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	room, err := h.catalog.CreateRoom(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *Handler) listRooms(c *gin.Context) {
	var page floor.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.catalog.ListRooms(c.Request.Context(), page)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) createMachine(c *gin.Context) {
	var req catalog.CreateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	machine, err := h.catalog.CreateMachine(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, machine)
}

func (h *Handler) listMachines(c *gin.Context) {
	var page floor.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.catalog.ListMachines(c.Request.Context(), page)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) createGame(c *gin.Context) {
	var req catalog.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	game, err := h.catalog.CreateGame(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, game)
}

func (h *Handler) setBetLimits(c *gin.Context) {
	var body struct {
		MinBet int64 `json:"min_bet"`
		MaxBet int64 `json:"max_bet"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	game, err := h.catalog.SetGameBetLimits(c.Request.Context(), c.Param("id"), body.MinBet, body.MaxBet)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

func (h *Handler) deleteGame(c *gin.Context) {
	if err := h.catalog.DeleteGame(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createSubUser(c *gin.Context) {
	var req catalog.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.catalog.CreateSubUser(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) listUsers(c *gin.Context) {
	var page floor.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}
	userType := floor.UserType(c.DefaultQuery("type", string(floor.UserTypeUser)))
	result, err := h.catalog.ListUsersByType(c.Request.Context(), userType, page)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) createAdmin(c *gin.Context) {
	var req catalog.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	admin, err := h.catalog.CreateAdmin(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}

func (h *Handler) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	admin, err := h.catalog.VerifyAdminPassword(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, admin)
}

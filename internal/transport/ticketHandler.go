package transport

import (
	"net/http"
	"strconv"

	"github.com/ds124wfegd/tickethub/internal/service"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	lifecycleService service.LifecycleService
}

func NewTicketHandler(lifecycleService service.LifecycleService) *TicketHandler {
	return &TicketHandler{lifecycleService: lifecycleService}
}

// OwnerRequest представляет запрос операции от имени владельца билета
type OwnerRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticket, err := h.lifecycleService.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) CheckIn(c *gin.Context) {
	ticket, err := h.lifecycleService.CheckIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Cancel(c *gin.Context) {
	var req OwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.lifecycleService.Cancel(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) RequestRefund(c *gin.Context) {
	var req OwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.lifecycleService.RequestRefund(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// CompleteRefund вызывается коллаборатором расчётов после возврата денег
func (h *TicketHandler) CompleteRefund(c *gin.Context) {
	ticket, err := h.lifecycleService.CompleteRefund(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) Transfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.TicketID = c.Param("id")

	ticket, err := h.lifecycleService.Transfer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *TicketHandler) GetUserTickets(c *gin.Context) {
	tickets, err := h.lifecycleService.GetUserTickets(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}

func (h *TicketHandler) GetEventTickets(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	tickets, err := h.lifecycleService.GetEventTickets(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}

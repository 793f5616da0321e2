package transport

import (
	"net/http"

	"github.com/ds124wfegd/tickethub/internal/service"

	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	reservationService service.ReservationService
}

func NewPurchaseHandler(reservationService service.ReservationService) *PurchaseHandler {
	return &PurchaseHandler{reservationService: reservationService}
}

// Purchase выпускает билеты либо возвращает отказ с причиной
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	var req service.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	registration, err := h.reservationService.Purchase(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registration)
}

func (h *PurchaseHandler) GetRegistration(c *gin.Context) {
	registration, err := h.reservationService.GetRegistration(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, registration)
}

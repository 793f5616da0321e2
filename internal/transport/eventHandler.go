package transport

import (
	"net/http"
	"strconv"

	"github.com/ds124wfegd/tickethub/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	catalogService  service.CatalogService
	discountService service.DiscountService
}

func NewEventHandler(catalogService service.CatalogService, discountService service.DiscountService) *EventHandler {
	return &EventHandler{
		catalogService:  catalogService,
		discountService: discountService,
	}
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.catalogService.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	event, err := h.catalogService.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// GetAvailability возвращает сводку доступности мероприятия
func (h *EventHandler) GetAvailability(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	stats, err := h.catalogService.GetEventStats(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *EventHandler) CreateTicketType(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	var req service.CreateTicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EventID = eventID

	tt, err := h.catalogService.CreateTicketType(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tt)
}

func (h *EventHandler) ListTicketTypes(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	types, err := h.catalogService.ListTicketTypes(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types)
}

func (h *EventHandler) CreateDiscount(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	var req service.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EventID = eventID

	code, err := h.discountService.CreateDiscount(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, code)
}

// ValidateDiscount проверяет код без списания использования
func (h *EventHandler) ValidateDiscount(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	var req service.ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EventID = eventID

	quote, err := h.discountService.ValidateDiscount(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func parseEventID(c *gin.Context) (int64, bool) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return 0, false
	}
	return eventID, true
}

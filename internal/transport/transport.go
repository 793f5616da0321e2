package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/tickethub/internal/transport/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func InitRoutes(
	eventHandler *EventHandler,
	purchaseHandler *PurchaseHandler,
	ticketHandler *TicketHandler,
	waitlistHandler *WaitlistHandler,
) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		// Event and catalog routes
		events := api.Group("/events")
		{
			events.POST("", eventHandler.CreateEvent)
			events.GET("/:id", eventHandler.GetEvent)
			events.GET("/:id/availability", eventHandler.GetAvailability)
			events.GET("/:id/tickets", ticketHandler.GetEventTickets)

			events.POST("/:id/ticket-types", eventHandler.CreateTicketType)
			events.GET("/:id/ticket-types", eventHandler.ListTicketTypes)

			events.POST("/:id/discounts", eventHandler.CreateDiscount)
			events.POST("/:id/discounts/validate", eventHandler.ValidateDiscount)
		}

		// Purchase routes
		purchases := api.Group("/purchases")
		{
			purchases.POST("", purchaseHandler.Purchase)
			purchases.GET("/:id", purchaseHandler.GetRegistration)
		}

		// Ticket lifecycle routes
		tickets := api.Group("/tickets")
		{
			tickets.GET("/:id", ticketHandler.GetTicket)
			tickets.POST("/:id/checkin", ticketHandler.CheckIn)
			tickets.POST("/:id/cancel", ticketHandler.Cancel)
			tickets.POST("/:id/refund-request", ticketHandler.RequestRefund)
			tickets.POST("/:id/refund", ticketHandler.CompleteRefund)
			tickets.POST("/:id/transfer", ticketHandler.Transfer)
		}

		// User routes
		users := api.Group("/users")
		{
			users.GET("/:user_id/tickets", ticketHandler.GetUserTickets)
		}

		// Waitlist routes
		waitlist := api.Group("/waitlist")
		{
			waitlist.POST("/join", waitlistHandler.Join)
			waitlist.GET("/entries/:id", waitlistHandler.GetEntry)
			waitlist.POST("/entries/:id/leave", waitlistHandler.Leave)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

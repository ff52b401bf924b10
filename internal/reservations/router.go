package reservations

import (
	"venuepass/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller) {
	reservations := rg.Group("/reservations")
	{
		reservations.POST("/quote", controller.Quote) // POST /api/v1/reservations/quote

		user := reservations.Group("")
		user.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
		{
			user.POST("", controller.CreateReservation)            // POST /api/v1/reservations
			user.GET("/me", controller.ListMyReservations)         // GET /api/v1/reservations/me
			user.GET("/:id", controller.GetReservation)            // GET /api/v1/reservations/:id
			user.POST("/:id/cancel", controller.CancelReservation) // POST /api/v1/reservations/:id/cancel
		}

		// payment provider and timer callbacks
		callbacks := reservations.Group("")
		callbacks.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleStaff, middleware.RoleAdmin))
		{
			callbacks.POST("/:id/events", controller.ApplyEvent) // POST /api/v1/reservations/:id/events
		}
	}
}

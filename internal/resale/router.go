package resale

import (
	"venuepass/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupResaleRoutes(rg *gin.RouterGroup, controller *Controller) {
	resale := rg.Group("/resale")
	{
		resale.GET("/tickets/:id/cap", controller.GetPriceCap) // GET /api/v1/resale/tickets/:id/cap

		offers := resale.Group("/offers")
		offers.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
		{
			offers.POST("", controller.CreateOffer)            // POST /api/v1/resale/offers
			offers.POST("/:id/cancel", controller.CancelOffer) // POST /api/v1/resale/offers/:id/cancel
		}
	}
}

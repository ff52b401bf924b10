package venues

import (
	"venuepass/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupVenueRoutes(rg *gin.RouterGroup, controller *Controller) {
	public := rg.Group("/venues")
	{
		public.GET("", controller.ListVenues)   // GET /api/v1/venues
		public.GET("/:id", controller.GetVenue) // GET /api/v1/venues/:id
	}

	admin := rg.Group("/admin/venues")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.POST("", controller.CreateVenue)                // POST /api/v1/admin/venues
		admin.PUT("/:id/capacity", controller.UpdateCapacity) // PUT /api/v1/admin/venues/:id/capacity
	}
}

package tickets

import (
	"net/http"

	"venuepass/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// Admit checks a credential at the door. Rejections are still 200: the
// verdict is in data.result.
func (c *Controller) Admit(ctx *gin.Context) {
	var req AdmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, response.FieldErrors(err))
		return
	}

	admission, err := c.service.Admit(ctx.Request.Context(), req.Code, uuid.MustParse(req.VenueID))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to check ticket", nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Ticket checked", admission, nil)
}

package resale

import (
	"errors"
	"net/http"

	"venuepass/internal/shared/middleware"
	"venuepass/internal/shared/utils/response"
	"venuepass/internal/tickets"
	"venuepass/internal/venues"
	"venuepass/pkg/money"

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

func (c *Controller) GetPriceCap(ctx *gin.Context) {
	ticketID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid ticket ID", nil, err.Error())
		return
	}

	result, err := c.service.PriceCap(ctx.Request.Context(), ticketID)
	if err != nil {
		c.respondError(ctx, "Failed to compute resale cap", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Resale cap computed", result, nil)
}

func (c *Controller) CreateOffer(ctx *gin.Context) {
	sellerID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateOfferRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, response.FieldErrors(err))
		return
	}

	offer, err := c.service.CreateOffer(ctx.Request.Context(), sellerID, req)
	if err != nil {
		var capErr *PriceAboveCapError
		if errors.As(err, &capErr) {
			response.RespondJSON(ctx, "error", http.StatusUnprocessableEntity, "Resale price exceeds cap", nil, gin.H{
				"proposed": capErr.Proposed,
				"cap":      capErr.Cap,
			})
			return
		}
		c.respondError(ctx, "Failed to create resale offer", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Resale offer created", offer, nil)
}

func (c *Controller) CancelOffer(ctx *gin.Context) {
	sellerID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	offerID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid offer ID", nil, err.Error())
		return
	}

	offer, err := c.service.CancelOffer(ctx.Request.Context(), sellerID, offerID)
	if err != nil {
		c.respondError(ctx, "Failed to cancel resale offer", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Resale offer cancelled", offer, nil)
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, tickets.ErrTicketNotFound), errors.Is(err, venues.ErrVenueNotFound), errors.Is(err, ErrOfferNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, ErrNotTicketOwner):
		statusCode = http.StatusForbidden
	case errors.Is(err, ErrTicketNotResellable), errors.Is(err, ErrOfferAlreadyOpen), errors.Is(err, ErrOfferNotCancellable):
		statusCode = http.StatusConflict
	case errors.Is(err, money.ErrInvalidDecimal), errors.Is(err, money.ErrTooPrecise), errors.Is(err, ErrInvalidResalePrice):
		statusCode = http.StatusBadRequest
	}
	response.RespondJSON(ctx, "error", statusCode, message, nil, err.Error())
}

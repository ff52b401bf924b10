package reservations

import (
	"errors"
	"net/http"

	"venuepass/internal/pricing"
	"venuepass/internal/shared/middleware"
	"venuepass/internal/shared/utils/response"
	"venuepass/internal/venues"

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

func (c *Controller) Quote(ctx *gin.Context) {
	var req QuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, response.FieldErrors(err))
		return
	}

	quote, err := c.service.Quote(ctx.Request.Context(), req)
	if err != nil {
		c.respondError(ctx, "Failed to quote reservation", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Quote computed", quote, nil)
}

func (c *Controller) CreateReservation(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateReservationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, response.FieldErrors(err))
		return
	}

	reservation, err := c.service.PlaceHold(ctx.Request.Context(), userID, req)
	if err != nil {
		c.respondError(ctx, "Failed to place hold", err)
		return
	}

	if reservation.State == StateWaitlisted {
		response.RespondJSON(ctx, "success", http.StatusAccepted, "Venue is full, reservation waitlisted", reservation, nil)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Hold placed, awaiting payment", reservation, nil)
}

func (c *Controller) GetReservation(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid reservation ID", nil, err.Error())
		return
	}

	reservation, err := c.service.GetReservation(ctx.Request.Context(), id)
	if err != nil {
		c.respondError(ctx, "Failed to get reservation", err)
		return
	}
	if !reservation.IsOwnedBy(userID) && ctx.GetString(middleware.ContextRole) != middleware.RoleAdmin {
		response.RespondJSON(ctx, "error", http.StatusForbidden, "Access denied", nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation retrieved successfully", reservation, nil)
}

func (c *Controller) ListMyReservations(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var query ListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, response.FieldErrors(err))
		return
	}

	reservations, err := c.service.ListUserReservations(ctx.Request.Context(), userID, query)
	if err != nil {
		c.respondError(ctx, "Failed to list reservations", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservations retrieved successfully", reservations, nil)
}

// ApplyEvent receives payment and timer callbacks
func (c *Controller) ApplyEvent(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid reservation ID", nil, err.Error())
		return
	}

	var req ApplyEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, response.FieldErrors(err))
		return
	}

	reservation, err := c.service.Apply(ctx.Request.Context(), id, Event(req.Event))
	if err != nil {
		var terr *TransitionError
		if errors.As(err, &terr) && terr.Duplicate {
			// redelivered callback: report the state it already produced
			response.RespondJSON(ctx, "success", http.StatusOK, "Event already applied", reservation, nil)
			return
		}
		c.respondError(ctx, "Failed to apply event", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Event applied", reservation, nil)
}

func (c *Controller) CancelReservation(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid reservation ID", nil, err.Error())
		return
	}

	reservation, err := c.service.Cancel(ctx.Request.Context(), userID, id)
	if err != nil {
		c.respondError(ctx, "Failed to cancel reservation", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation cancelled", reservation, nil)
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrReservationNotFound), errors.Is(err, venues.ErrVenueNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, ErrNotOwner):
		statusCode = http.StatusForbidden
	case errors.Is(err, ErrNoTransition), errors.Is(err, ErrStateConflict), errors.Is(err, ErrNotCancellable), errors.Is(err, ErrHoldExpired):
		statusCode = http.StatusConflict
	case errors.Is(err, ErrPartyTooLarge), errors.Is(err, pricing.ErrInvalidContext):
		statusCode = http.StatusBadRequest
	}
	response.RespondJSON(ctx, "error", statusCode, message, nil, err.Error())
}

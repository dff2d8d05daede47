package dispute

import (
	"errors"
	"net/http"
	"strconv"

	"tutorslot/internal/api"
	"tutorslot/internal/auth"
	"tutorslot/internal/booking"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Raise godoc
// @Summary      Dispute a session awaiting confirmation
// @Description  Freezes the escrowed funds until an admin rules. Only open within the confirmation window.
// @Tags         disputes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int           true  "Booking ID"
// @Param        request    body      RaiseRequest  true  "Dispute reason"
// @Success      201        {object}  Dispute
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/dispute [post]
func (h *Handler) Raise(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID", Code: api.CodeValidation})
		return
	}

	var req RaiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		return
	}

	d, err := h.service.Raise(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Booking not found", Code: api.CodeNotFound})
		case errors.Is(err, ErrNotParticipant):
			c.JSON(http.StatusForbidden, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		case errors.Is(err, ErrWindowClosed):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error(), Code: api.CodeWindowClosed})
		case errors.Is(err, ErrNotDisputable), errors.Is(err, booking.ErrStateChanged):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Booking is not awaiting confirmation", Code: api.CodeStateTransition})
		case errors.Is(err, ErrAlreadyDisputed):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error(), Code: api.CodeConflict})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to raise dispute", Code: api.CodeInternal})
		}
		return
	}

	c.JSON(http.StatusCreated, d)
}

// Resolve godoc
// @Summary      Admin ruling on an open dispute
// @Description  Settles the escrowed funds: full release, full refund, or a percentage split that conserves every cent.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        disputeID  path      int             true  "Dispute ID"
// @Param        request    body      ResolveRequest  true  "Ruling"
// @Success      200        {object}  Dispute
// @Failure      409        {object}  api.ErrorResponse
// @Router       /admin/disputes/{disputeID}/resolve [post]
func (h *Handler) Resolve(c *gin.Context) {
	adminID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	disputeID, err := strconv.Atoi(c.Param("disputeID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid dispute ID", Code: api.CodeValidation})
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		return
	}

	d, err := h.service.Resolve(c.Request.Context(), adminID, disputeID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrDisputeNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Dispute not found", Code: api.CodeNotFound})
		case errors.Is(err, ErrMissingPercent):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		case errors.Is(err, ErrAlreadyResolved), errors.Is(err, booking.ErrStateChanged):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Dispute is already resolved", Code: api.CodeStateTransition})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to resolve dispute", Code: api.CodeInternal})
		}
		return
	}

	c.JSON(http.StatusOK, d)
}

// ListOpen godoc
// @Summary      Open disputes awaiting a ruling
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Dispute
// @Router       /admin/disputes [get]
func (h *Handler) ListOpen(c *gin.Context) {
	disputes, err := h.service.ListOpen(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load disputes", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, disputes)
}

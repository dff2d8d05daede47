package bundle

import (
	"errors"
	"net/http"
	"strconv"

	"tutorslot/internal/api"
	"tutorslot/internal/auth"
	"tutorslot/internal/booking"
	"tutorslot/internal/wallet"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListTiers godoc
// @Summary      Available bundle tiers
// @Tags         bundles
// @Produce      json
// @Success      200  {array}  Tier
// @Router       /tiers [get]
func (h *Handler) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, Tiers())
}

// Purchase godoc
// @Summary      Buy a session bundle
// @Description  Locks the discounted total in the buyer's wallet in one transaction.
// @Tags         bundles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      PurchaseRequest  true  "Tier and teacher"
// @Success      201      {object}  Bundle
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bundles [post]
func (h *Handler) Purchase(c *gin.Context) {
	studentID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		return
	}

	b, err := h.service.Purchase(c.Request.Context(), studentID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownTier):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		case errors.Is(err, wallet.ErrInsufficientFunds):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Insufficient wallet balance", Code: api.CodeInsufficientFunds})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to purchase bundle", Code: api.CodeInternal})
		}
		return
	}

	c.JSON(http.StatusCreated, b)
}

// ScheduleNext godoc
// @Summary      Schedule the next session of a bundle
// @Description  Creates a booking request carrying the bundle's per-session share. No payment step is needed.
// @Tags         bundles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bundleID  path      int              true  "Bundle ID"
// @Param        request   body      ScheduleRequest  true  "Session times (UTC)"
// @Success      201       {object}  booking.Booking
// @Failure      409       {object}  api.ErrorResponse
// @Router       /bundles/{bundleID}/sessions [post]
func (h *Handler) ScheduleNext(c *gin.Context) {
	studentID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	bundleID, err := strconv.Atoi(c.Param("bundleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid bundle ID", Code: api.CodeValidation})
		return
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		return
	}

	b, err := h.service.ScheduleNext(c.Request.Context(), studentID, bundleID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrBundleNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Bundle not found", Code: api.CodeNotFound})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Not allowed", Code: api.CodeValidation})
		case errors.Is(err, ErrBundleExhausted):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error(), Code: api.CodeConflict})
		case errors.Is(err, booking.ErrSlotUnavailable), errors.Is(err, booking.ErrSlotTaken):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Requested time is not available", Code: api.CodeConflict})
		case errors.Is(err, booking.ErrInvalidTimes):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to schedule session", Code: api.CodeInternal})
		}
		return
	}

	c.JSON(http.StatusCreated, b)
}

// Get godoc
// @Summary      One bundle with its progress counters
// @Tags         bundles
// @Security     BearerAuth
// @Produce      json
// @Param        bundleID  path      int  true  "Bundle ID"
// @Success      200       {object}  Bundle
// @Failure      404       {object}  api.ErrorResponse
// @Router       /bundles/{bundleID} [get]
func (h *Handler) Get(c *gin.Context) {
	studentID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	bundleID, err := strconv.Atoi(c.Param("bundleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid bundle ID", Code: api.CodeValidation})
		return
	}

	b, err := h.service.Get(c.Request.Context(), studentID, bundleID)
	if err != nil {
		switch {
		case errors.Is(err, ErrBundleNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Bundle not found", Code: api.CodeNotFound})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Not allowed", Code: api.CodeValidation})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load bundle", Code: api.CodeInternal})
		}
		return
	}

	c.JSON(http.StatusOK, b)
}

// ListMine godoc
// @Summary      Bundles of the current user
// @Tags         bundles
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Bundle
// @Router       /bundles [get]
func (h *Handler) ListMine(c *gin.Context) {
	studentID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	bundles, err := h.service.ListMine(c.Request.Context(), studentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load bundles", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, bundles)
}

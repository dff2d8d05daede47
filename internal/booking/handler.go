package booking

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"tutorslot/internal/api"
	"tutorslot/internal/auth"
	"tutorslot/internal/wallet"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// writeError maps service errors onto stable API codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidTimes):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
	case errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Booking not found", Code: api.CodeNotFound})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Not allowed", Code: api.CodeValidation})
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrSlotTaken):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Requested time is not available", Code: api.CodeConflict})
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrStateChanged):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Booking is not in the right state for this action", Code: api.CodeStateTransition})
	case errors.Is(err, wallet.ErrInsufficientFunds):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Insufficient wallet balance", Code: api.CodeInsufficientFunds})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Something went wrong", Code: api.CodeInternal})
	}
}

// Request godoc
// @Summary      Request a session
// @Description  Creates a booking in pending_teacher_approval. Price is snapshotted from the teacher's current hourly rate.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      RequestBookingRequest  true  "Requested session"
// @Success      201      {object}  Booking
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bookings [post]
func (h *Handler) Request(c *gin.Context) {
	studentID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req RequestBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		return
	}

	b, err := h.service.Request(c.Request.Context(), studentID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

// List godoc
// @Summary      Bookings of the current user
// @Description  Teachers see bookings they teach, parents see bookings they placed.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Booking
// @Router       /bookings [get]
func (h *Handler) List(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	role, _ := auth.GetRole(c)

	bookings, err := h.service.ListForActor(c.Request.Context(), userID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load bookings", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// Get godoc
// @Summary      One booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	role, _ := auth.GetRole(c)

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID", Code: api.CodeValidation})
		return
	}

	b, err := h.service.Get(c.Request.Context(), userID, role, bookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Approve godoc
// @Summary      Teacher accepts a requested session
// @Description  Standalone bookings move to waiting_for_payment; bundle sessions go straight to scheduled.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      403        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	h.teacherAction(c, h.service.Approve)
}

// Reject godoc
// @Summary      Teacher declines a requested session
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      403        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	h.teacherAction(c, h.service.Reject)
}

// SubmitPayment godoc
// @Summary      Parent marks a booking as paid
// @Description  Moves the booking into payment_review for an admin to verify.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/payment [post]
func (h *Handler) SubmitPayment(c *gin.Context) {
	h.studentAction(c, h.service.SubmitPayment)
}

// ApprovePayment godoc
// @Summary      Admin verifies payment and locks funds
// @Description  Locks the price in the payer's wallet and schedules the session. Atomic with a final slot re-check.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      409        {object}  api.ErrorResponse
// @Router       /admin/bookings/{bookingID}/approve-payment [post]
func (h *Handler) ApprovePayment(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID", Code: api.CodeValidation})
		return
	}

	b, err := h.service.ApprovePayment(c.Request.Context(), bookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// Confirm godoc
// @Summary      Parent confirms a finished session
// @Description  Releases the escrowed amount to the teacher. Confirming twice is a no-op.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/confirm [post]
func (h *Handler) Confirm(c *gin.Context) {
	h.studentAction(c, h.service.Confirm)
}

// Cancel godoc
// @Summary      Cancel a booking
// @Description  Refund split depends on who cancels and how close to the start it is.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      403        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	role, _ := auth.GetRole(c)

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID", Code: api.CodeValidation})
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), userID, role, bookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// ListByStatus godoc
// @Summary      Admin listing of bookings by status
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        status  query    string  true  "Booking status"
// @Success      200     {array}  Booking
// @Router       /admin/bookings [get]
func (h *Handler) ListByStatus(c *gin.Context) {
	status := Status(c.Query("status"))
	if _, ok := transitions[status]; !ok && !status.Terminal() {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Unknown status", Code: api.CodeValidation})
		return
	}

	bookings, err := h.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load bookings", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// teacherAction and studentAction share the actor/ID plumbing of the
// single-booking lifecycle endpoints.
func (h *Handler) teacherAction(c *gin.Context, fn func(ctx context.Context, actorID, bookingID int) (*Booking, error)) {
	h.actorAction(c, fn)
}

func (h *Handler) studentAction(c *gin.Context, fn func(ctx context.Context, actorID, bookingID int) (*Booking, error)) {
	h.actorAction(c, fn)
}

func (h *Handler) actorAction(c *gin.Context, fn func(ctx context.Context, actorID, bookingID int) (*Booking, error)) {
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

	b, err := fn(c.Request.Context(), userID, bookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

package availability

import (
	"errors"
	"net/http"
	"strconv"

	"tutorslot/internal/api"
	"tutorslot/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListSlots godoc
// @Summary      Bookable slots for a teacher
// @Description  Derives open slots for one calendar day in the viewer's timezone.
// @Tags         availability
// @Security     BearerAuth
// @Produce      json
// @Param        teacherID  path      int     true   "Teacher user ID"
// @Param        date       query     string  true   "Day, YYYY-MM-DD in viewer timezone"
// @Param        tz         query     string  false  "Viewer IANA timezone (default UTC)"
// @Success      200        {array}   Slot
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /teachers/{teacherID}/slots [get]
func (h *Handler) ListSlots(c *gin.Context) {
	teacherID, err := strconv.Atoi(c.Param("teacherID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid teacher ID", Code: api.CodeValidation})
		return
	}

	date := c.Query("date")
	tz := c.DefaultQuery("tz", "UTC")

	slots, err := h.service.Slots(c.Request.Context(), teacherID, date, tz)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTimezone), errors.Is(err, ErrInvalidDate):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		case errors.Is(err, ErrTeacherNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Teacher not found", Code: api.CodeNotFound})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to compute slots", Code: api.CodeInternal})
		}
		return
	}

	c.JSON(http.StatusOK, slots)
}

// CreateRule godoc
// @Summary      Add a weekly availability rule
// @Tags         availability
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRuleRequest  true  "Rule (UTC weekday and minutes)"
// @Success      201      {object}  Rule
// @Failure      400      {object}  api.ErrorResponse
// @Router       /me/availability/rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	teacherID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), teacherID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidRule) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create rule", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// ListMyRules godoc
// @Summary      Weekly rules of the current teacher
// @Tags         availability
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  Rule
// @Router       /me/availability/rules [get]
func (h *Handler) ListMyRules(c *gin.Context) {
	teacherID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	rules, err := h.service.ListRules(c.Request.Context(), teacherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load rules", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, rules)
}

// DeleteRule godoc
// @Summary      Delete a weekly rule
// @Tags         availability
// @Security     BearerAuth
// @Produce      json
// @Param        ruleID  path      int  true  "Rule ID"
// @Success      200     {object}  api.MessageResponse
// @Failure      404     {object}  api.ErrorResponse
// @Router       /me/availability/rules/{ruleID} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	teacherID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	ruleID, err := strconv.Atoi(c.Param("ruleID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid rule ID", Code: api.CodeValidation})
		return
	}

	if err := h.service.DeleteRule(c.Request.Context(), teacherID, ruleID); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Rule not found", Code: api.CodeNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to delete rule", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Rule deleted"})
}

// CreateException godoc
// @Summary      Block a date range
// @Description  Exceptions (vacations, blackouts) always win over weekly rules.
// @Tags         availability
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateExceptionRequest  true  "Blocked range"
// @Success      201      {object}  Exception
// @Failure      400      {object}  api.ErrorResponse
// @Router       /me/availability/exceptions [post]
func (h *Handler) CreateException(c *gin.Context) {
	teacherID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		return
	}

	exc, err := h.service.CreateException(c.Request.Context(), teacherID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidRule) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "ends_at must be after starts_at", Code: api.CodeValidation})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create exception", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusCreated, exc)
}

// DeleteException godoc
// @Summary      Remove a blocked date range
// @Tags         availability
// @Security     BearerAuth
// @Produce      json
// @Param        exceptionID  path      int  true  "Exception ID"
// @Success      200          {object}  api.MessageResponse
// @Failure      404          {object}  api.ErrorResponse
// @Router       /me/availability/exceptions/{exceptionID} [delete]
func (h *Handler) DeleteException(c *gin.Context) {
	teacherID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	exceptionID, err := strconv.Atoi(c.Param("exceptionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid exception ID", Code: api.CodeValidation})
		return
	}

	if err := h.service.DeleteException(c.Request.Context(), teacherID, exceptionID); err != nil {
		if errors.Is(err, ErrExceptionNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Exception not found", Code: api.CodeNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to delete exception", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Exception deleted"})
}

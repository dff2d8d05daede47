package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"tutorslot/internal/api"
	"tutorslot/internal/auth"
	"tutorslot/internal/metrics"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GetBalance godoc
// @Summary      Wallet balance
// @Description  Returns available, locked and total balance in cents.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Balance
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /wallet [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	balance, err := h.repo.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load wallet", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, balance)
}

// Deposit godoc
// @Summary      Request a deposit
// @Description  Creates a pending deposit that an admin must approve before funds become available.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      DepositRequest  true  "Amount in cents"
// @Success      201      {object}  Transaction
// @Failure      400      {object}  api.ErrorResponse
// @Router       /wallet/deposits [post]
func (h *Handler) Deposit(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "amount_cents must be positive", Code: api.CodeValidation})
		return
	}

	t, err := h.repo.Deposit(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create deposit request", Code: api.CodeInternal})
		return
	}

	metrics.RecordLedgerTransaction(string(TypeDeposit))
	c.JSON(http.StatusCreated, t)
}

// Withdraw godoc
// @Summary      Request a withdrawal
// @Description  Moves the amount from available to locked until an admin pays it out.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      WithdrawalRequest  true  "Amount in cents"
// @Success      201      {object}  Transaction
// @Failure      400      {object}  api.ErrorResponse
// @Failure      422      {object}  api.ErrorResponse
// @Router       /wallet/withdrawals [post]
func (h *Handler) Withdraw(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "amount_cents must be positive", Code: api.CodeValidation})
		return
	}

	t, err := h.repo.RequestWithdrawal(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: "Insufficient available balance", Code: api.CodeInsufficientFunds})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create withdrawal request", Code: api.CodeInternal})
		return
	}

	metrics.RecordLedgerTransaction(string(TypeWithdrawal))
	c.JSON(http.StatusCreated, t)
}

// ListTransactions godoc
// @Summary      Ledger history
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size (default 50)"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {array}   Transaction
// @Failure      401     {object}  api.ErrorResponse
// @Router       /wallet/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.repo.Transactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load transactions", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, txs)
}

// ListPendingReview godoc
// @Summary      Deposits and withdrawals awaiting review
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Transaction
// @Router       /admin/reviews [get]
func (h *Handler) ListPendingReview(c *gin.Context) {
	txs, err := h.repo.PendingReview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load pending transactions", Code: api.CodeInternal})
		return
	}

	c.JSON(http.StatusOK, txs)
}

// ReviewTransaction godoc
// @Summary      Approve or reject a deposit/withdrawal
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        txID     path      int            true  "Transaction ID"
// @Param        request  body      ReviewRequest  true  "Decision"
// @Success      200      {object}  Transaction
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /admin/reviews/{txID} [post]
func (h *Handler) ReviewTransaction(c *gin.Context) {
	txID, err := strconv.Atoi(c.Param("txID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid transaction ID", Code: api.CodeValidation})
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error(), Code: api.CodeValidation})
		return
	}

	t, err := h.repo.Review(c.Request.Context(), txID, req.Decision == "approve", req.Note)
	if err != nil {
		switch {
		case errors.Is(err, ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Transaction not found", Code: api.CodeNotFound})
		case errors.Is(err, ErrNotReviewable):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Transaction already reviewed", Code: api.CodeStateTransition})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to review transaction", Code: api.CodeInternal})
		}
		return
	}

	metrics.RecordLedgerTransaction(string(t.Type))
	c.JSON(http.StatusOK, t)
}

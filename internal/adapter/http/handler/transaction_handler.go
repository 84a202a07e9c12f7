package handler

import (
	"chainlock/internal/adapter/http/dto"
	"chainlock/internal/core/domain"
	"chainlock/internal/core/ports"
	"chainlock/pkg/apperror"
	"chainlock/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionHandler handles the transfer authorization endpoints.
type TransactionHandler struct {
	authSvc ports.AuthorizationService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(authSvc ports.AuthorizationService) *TransactionHandler {
	return &TransactionHandler{authSvc: authSvc}
}

// Initiate handles POST /api/v1/transactions/initiate.
func (h *TransactionHandler) Initiate(c *gin.Context) {
	var req dto.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("amount must be a decimal number"))
		return
	}

	fromAddress := ""
	if req.FromAddress != nil {
		fromAddress = *req.FromAddress
	}

	result, err := h.authSvc.Initiate(c.Request.Context(), ports.InitiateRequest{
		ToAddress:   req.ToAddress,
		Amount:      amount,
		FromAddress: fromAddress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.InitiateResponse{
		Transaction: toTransactionResponse(result.Transaction),
		Message:     result.Message,
	}
	if result.NotifyErr != nil {
		msg := result.NotifyErr.Error()
		resp.NotificationError = &msg
	}

	response.Created(c, resp)
}

// Confirm handles POST /api/v1/transactions/confirm.
func (h *TransactionHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		response.Error(c, apperror.Validation("transaction_id must be a valid UUID"))
		return
	}

	txn, err := h.authSvc.Confirm(c.Request.Context(), ports.ConfirmRequest{
		TransactionID: txID,
		Secret:        req.Secret,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ConfirmResponse{
		Transaction: toTransactionResponse(txn),
		Message:     "transaction succeeded",
	})
}

// Get handles GET /api/v1/transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("transaction id must be a valid UUID"))
		return
	}

	txn, err := h.authSvc.Get(c.Request.Context(), txID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransactionResponse(txn))
}

// toTransactionResponse converts domain.Transaction to its DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:          tx.ID.String(),
		FromAddress: tx.FromAddress,
		ToAddress:   tx.ToAddress,
		Amount:      tx.Amount.String(),
		State:       string(tx.State),
		FailureCode: tx.FailureCode,
		CreatedAt:   tx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if tx.ProcessedAt != nil {
		s := tx.ProcessedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ProcessedAt = &s
	}
	return resp
}

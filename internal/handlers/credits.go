package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roomlift/api/internal/ledger"
	"roomlift/api/internal/models"
)

type transactionResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	BalanceAfter float64   `json:"balanceAfter"`
	LogID        *string   `json:"logId,omitempty"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (h HandlerSet) GetCredits(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	balance, err := h.credits.Balance(c.Request.Context(), user.ID)
	if err != nil && !errors.Is(err, ledger.ErrBalanceNotFound) {
		h.log.Error().Err(err).Msg("get balance failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_credits_failed"})
		return
	}

	transactions, err := h.credits.Transactions(c.Request.Context(), user.ID, 20)
	if err != nil {
		h.log.Error().Err(err).Msg("list transactions failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_credits_failed"})
		return
	}

	items := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		items = append(items, toTransactionResponse(tx))
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":      balance,
		"transactions": items,
	})
}

func toTransactionResponse(tx models.CreditTransaction) transactionResponse {
	return transactionResponse{
		ID:           tx.ID,
		Type:         string(tx.Type),
		Amount:       tx.Amount,
		BalanceAfter: tx.BalanceAfter,
		LogID:        tx.LogID,
		Description:  tx.Description,
		CreatedAt:    tx.CreatedAt,
	}
}

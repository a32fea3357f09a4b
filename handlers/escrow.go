package handlers

import (
	"net/http"

	"servana/utils"

	"github.com/gin-gonic/gin"
)

// GetEarningsOverviewHandler reports the caller's balance, escrowed funds
// and recent withdrawals.
func (hb *HandlerBundle) GetEarningsOverviewHandler(c *gin.Context) {
	providerID := c.GetString("userID")

	overview, err := hb.Escrow.GetEarningsOverview(c.Request.Context(), providerID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// RequestWithdrawalHandler moves released funds out of the caller's balance.
func (hb *HandlerBundle) RequestWithdrawalHandler(c *gin.Context) {
	userID := c.GetString("userID")

	var input struct {
		Amount        float64 `json:"amount" binding:"required"`
		BankAccountID string  `json:"bankAccountId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	withdrawal, err := hb.Escrow.RequestWithdrawal(c.Request.Context(), userID, input.Amount, input.BankAccountID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"withdrawal": withdrawal})
}

// RequestEarlyReleaseHandler lets a provider ask for escrow release before
// the holding period ends. Only completed bookings qualify.
func (hb *HandlerBundle) RequestEarlyReleaseHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")
	providerID := c.GetString("userID")

	var input struct {
		Justification string `json:"justification" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := hb.Escrow.RequestEarlyRelease(c.Request.Context(), bookingID, providerID, input.Justification); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "early release scheduled"})
}

// DisputePaymentHandler freezes an escrow record; disputed funds never
// release automatically.
func (hb *HandlerBundle) DisputePaymentHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")
	userID := c.GetString("userID")

	var input struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := hb.Escrow.DisputePayment(c.Request.Context(), bookingID, userID, input.Reason); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "payment disputed"})
}

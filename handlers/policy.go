package handlers

import (
	"net/http"
	"time"

	"servana/models"
	"servana/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreatePolicyHandler registers a cancellation, rescheduling or no-show
// policy. An empty serviceId makes it a platform default.
func (hb *HandlerBundle) CreatePolicyHandler(c *gin.Context) {
	var input struct {
		ServiceID          string  `json:"serviceId"`
		Type               string  `json:"type" binding:"required"`
		HoursBeforeBooking int     `json:"hoursBeforeBooking"`
		PenaltyType        string  `json:"penaltyType" binding:"required"`
		PenaltyValue       float64 `json:"penaltyValue"`
		AllowExceptions    bool    `json:"allowExceptions"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	policy := &models.BookingPolicy{
		ID:                 uuid.New().String(),
		ServiceID:          input.ServiceID,
		Type:               input.Type,
		HoursBeforeBooking: input.HoursBeforeBooking,
		PenaltyType:        input.PenaltyType,
		PenaltyValue:       input.PenaltyValue,
		AllowExceptions:    input.AllowExceptions,
		CreatedAt:          time.Now().UTC(),
	}
	if err := hb.Policy.CreatePolicy(c.Request.Context(), policy); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"policy": policy})
}

// EvaluateCancellationHandler previews the penalty a cancellation would
// incur right now, without cancelling anything.
func (hb *HandlerBundle) EvaluateCancellationHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")

	verdict, err := hb.Policy.EvaluateCancellation(c.Request.Context(), bookingID, time.Now().UTC())
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdict": verdict})
}

// EvaluateReschedulingHandler previews the penalty for moving a booking to a
// new start time.
func (hb *HandlerBundle) EvaluateReschedulingHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")

	var input struct {
		NewStart time.Time `json:"newStart" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	verdict, err := hb.Policy.EvaluateRescheduling(c.Request.Context(), bookingID, input.NewStart, time.Now().UTC())
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdict": verdict})
}

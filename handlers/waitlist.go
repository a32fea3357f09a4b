package handlers

import (
	"net/http"

	"servana/config"
	"servana/utils"

	"github.com/gin-gonic/gin"
)

// JoinWaitlistHandler queues the caller for a full service. One active entry
// per user per service.
func (hb *HandlerBundle) JoinWaitlistHandler(c *gin.Context) {
	userID := c.GetString("userID")

	var input struct {
		ServiceID      string   `json:"serviceId" binding:"required"`
		PreferredDate  string   `json:"preferredDate"`
		AlternateDates []string `json:"alternateDates"`
		Priority       int      `json:"priority"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	entry, err := hb.Waitlist.Join(c.Request.Context(), input.ServiceID, userID,
		input.PreferredDate, input.AlternateDates, input.Priority)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// NotifyWaitlistHandler offers a freed slot to a specific waitlist entry.
func (hb *HandlerBundle) NotifyWaitlistHandler(c *gin.Context) {
	waitlistID := c.Param("waitlistID")

	var input struct {
		SlotID         string `json:"slotId" binding:"required"`
		ExpiresInHours int    `json:"expiresInHours"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if input.ExpiresInHours <= 0 {
		input.ExpiresInHours = config.AppConfig.WaitlistNotifyHours
	}

	if err := hb.Waitlist.NotifyAvailability(c.Request.Context(), waitlistID, input.SlotID, input.ExpiresInHours); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "notified"})
}

// ConvertWaitlistHandler turns a notified entry into a booking. The claim
// window is enforced; an expired offer is gone.
func (hb *HandlerBundle) ConvertWaitlistHandler(c *gin.Context) {
	waitlistID := c.Param("waitlistID")

	var input struct {
		Amount float64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	booking, err := hb.Waitlist.ConvertToBooking(c.Request.Context(), waitlistID, input.Amount)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// LeaveWaitlistHandler withdraws the caller's own entry.
func (hb *HandlerBundle) LeaveWaitlistHandler(c *gin.Context) {
	waitlistID := c.Param("waitlistID")
	userID := c.GetString("userID")

	if err := hb.Waitlist.Leave(c.Request.Context(), waitlistID, userID); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// ListNotificationsHandler returns the caller's notification inbox.
func (hb *HandlerBundle) ListNotificationsHandler(c *gin.Context) {
	userID := c.GetString("userID")

	notifications, err := hb.Notifier.ListForUser(c.Request.Context(), userID, 50)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

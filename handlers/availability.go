package handlers

import (
	"net/http"
	"time"

	"servana/models"
	"servana/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SetAvailabilityHandler replaces the caller's weekly availability template.
// Slots already generated from the previous template are untouched.
func (hb *HandlerBundle) SetAvailabilityHandler(c *gin.Context) {
	providerID := c.GetString("userID")

	var input struct {
		Windows []models.AvailabilityWindow `json:"windows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := hb.Availability.SetWeeklyAvailability(c.Request.Context(), providerID, input.Windows); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "availability updated"})
}

// GenerateTimeSlotsHandler materializes bookable slots from the caller's
// weekly template over a date range.
func (hb *HandlerBundle) GenerateTimeSlotsHandler(c *gin.Context) {
	providerID := c.GetString("userID")

	var input struct {
		From         string `json:"from" binding:"required"` // YYYY-MM-DD
		To           string `json:"to" binding:"required"`
		SlotDuration int    `json:"slotDurationMinutes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	from, err := time.Parse("2006-01-02", input.From)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid from date", err.Error())
		return
	}
	to, err := time.Parse("2006-01-02", input.To)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid to date", err.Error())
		return
	}

	slots, err := hb.Availability.GenerateTimeSlots(c.Request.Context(), providerID, from, to,
		time.Duration(input.SlotDuration)*time.Minute)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(slots), "slots": slots})
}

// GetAvailableTimeSlotsHandler lists a provider's free slots for one date.
func (hb *HandlerBundle) GetAvailableTimeSlotsHandler(c *gin.Context) {
	providerID := c.Param("providerID")
	date := c.Query("date")
	if date == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "date query parameter is required")
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	slots, err := hb.Availability.GetAvailableSlots(c.Request.Context(), providerID, date)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// GetWeeklyScheduleHandler returns a provider's slots for one week, grouped
// by weekday.
func (hb *HandlerBundle) GetWeeklyScheduleHandler(c *gin.Context) {
	providerID := c.Param("providerID")

	weekStart := time.Now().UTC()
	if ws := c.Query("weekStart"); ws != "" {
		parsed, err := time.Parse("2006-01-02", ws)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid weekStart", err.Error())
			return
		}
		weekStart = parsed
	}

	schedule, err := hb.Availability.GetWeeklySchedule(c.Request.Context(), providerID, weekStart)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weekStart": weekStart.Format("2006-01-02"), "schedule": schedule})
}

// BookTimeSlotHandler claims a slot for an existing booking, or blocks it
// when the caller owns the slot. The claim is atomic: losing the race yields
// a conflict, never a double booking.
func (hb *HandlerBundle) BookTimeSlotHandler(c *gin.Context) {
	slotID := c.Param("slotID")
	userID := c.GetString("userID")

	var input struct {
		BookingID string `json:"bookingId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if input.BookingID == "" {
		// A claim without a booking is a manual block, reserved for the
		// slot's own provider.
		slot, err := hb.Availability.GetSlot(c.Request.Context(), slotID)
		if err != nil {
			utils.DomainError(c, err)
			return
		}
		if slot.ProviderID != userID {
			utils.JSONError(c, http.StatusForbidden, "forbidden",
				"only the slot's provider may block it without a booking")
			return
		}
		input.BookingID = "block:" + uuid.New().String()
	} else {
		booking, err := hb.Bookings.GetBooking(c.Request.Context(), input.BookingID)
		if err != nil {
			utils.DomainError(c, err)
			return
		}
		if booking.ClientID != userID && booking.ProviderID != userID {
			utils.JSONError(c, http.StatusForbidden, "forbidden",
				"booking belongs to a different user")
			return
		}
	}

	slot, err := hb.Availability.ReserveSlot(c.Request.Context(), slotID, input.BookingID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot})
}

// ReleaseTimeSlotHandler frees a previously booked slot. Allowed for the
// slot's provider and for the parties of the booking holding it.
func (hb *HandlerBundle) ReleaseTimeSlotHandler(c *gin.Context) {
	slotID := c.Param("slotID")
	userID := c.GetString("userID")

	slot, err := hb.Availability.GetSlot(c.Request.Context(), slotID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	if slot.ProviderID != userID && !hb.isBookingParty(c, slot.BookingID, userID) {
		utils.JSONError(c, http.StatusForbidden, "forbidden",
			"slot belongs to a different provider")
		return
	}

	if err := hb.Availability.ReleaseSlot(c.Request.Context(), slotID); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "slot released"})
}

func (hb *HandlerBundle) isBookingParty(c *gin.Context, bookingID, userID string) bool {
	if bookingID == "" {
		return false
	}
	booking, err := hb.Bookings.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		return false
	}
	return booking.ClientID == userID || booking.ProviderID == userID
}

package handlers

import (
	"net/http"
	"time"

	"servana/models"
	"servana/utils"

	"github.com/gin-gonic/gin"
)

// CreateBookingHandler opens a pending booking on a free slot. The slot
// claim happens before the booking row exists, so two clients racing for the
// same slot resolve to exactly one booking.
func (hb *HandlerBundle) CreateBookingHandler(c *gin.Context) {
	var draft models.BookingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	draft.ClientID = c.GetString("userID")

	booking, err := hb.Bookings.CreateBooking(c.Request.Context(), draft)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// GetBookingHandler fetches one booking. Only the two parties may read it.
func (hb *HandlerBundle) GetBookingHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")
	actorID := c.GetString("userID")

	booking, err := hb.Bookings.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	if booking.ClientID != actorID && booking.ProviderID != actorID {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "not a party to this booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// ListBookingsHandler lists the caller's bookings, optionally filtered by
// status. Providers see bookings against them; clients see their own.
func (hb *HandlerBundle) ListBookingsHandler(c *gin.Context) {
	actorID := c.GetString("userID")
	role := c.GetString("role")
	status := c.Query("status")

	bookings, err := hb.Bookings.ListBookings(c.Request.Context(), actorID, role, status)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// UpdateBookingStatusHandler drives the booking state machine. The target
// status selects the transition; illegal moves come back as conflicts.
func (hb *HandlerBundle) UpdateBookingStatusHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")
	actorID := c.GetString("userID")
	role := c.GetString("role")

	var input struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	ctx := c.Request.Context()
	switch input.Status {
	case models.BookingAccepted:
		if err := hb.Bookings.AcceptBooking(ctx, bookingID, actorID); err != nil {
			utils.DomainError(c, err)
			return
		}
	case models.BookingDeclined:
		if err := hb.Bookings.DeclineBooking(ctx, bookingID, actorID, input.Reason); err != nil {
			utils.DomainError(c, err)
			return
		}
	case models.BookingCompleted:
		if err := hb.Bookings.CompleteBooking(ctx, bookingID, actorID, time.Now().UTC()); err != nil {
			utils.DomainError(c, err)
			return
		}
	case models.BookingCancelled:
		verdict, err := hb.Bookings.CancelBooking(ctx, bookingID, actorID, role, input.Reason)
		if err != nil {
			utils.DomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": input.Status, "verdict": verdict})
		return
	default:
		utils.JSONError(c, http.StatusBadRequest, "invalid status",
			"status must be one of accepted, declined, completed, cancelled")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": input.Status})
}

// AcceptBookingHandler confirms a pending booking and opens its escrow.
func (hb *HandlerBundle) AcceptBookingHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")
	providerID := c.GetString("userID")

	if err := hb.Bookings.AcceptBooking(c.Request.Context(), bookingID, providerID); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

// DeclineBookingHandler rejects a pending booking and frees its slot.
func (hb *HandlerBundle) DeclineBookingHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")
	providerID := c.GetString("userID")

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := hb.Bookings.DeclineBooking(c.Request.Context(), bookingID, providerID, input.Reason); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "declined"})
}

// CancelBookingHandler cancels a booking for either party and reports the
// policy verdict that was applied.
func (hb *HandlerBundle) CancelBookingHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")
	actorID := c.GetString("userID")
	role := c.GetString("role")

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	verdict, err := hb.Bookings.CancelBooking(c.Request.Context(), bookingID, actorID, role, input.Reason)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "verdict": verdict})
}

// RescheduleBookingHandler moves a booking onto a different free slot.
func (hb *HandlerBundle) RescheduleBookingHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")
	actorID := c.GetString("userID")

	var input struct {
		NewSlotID string `json:"newSlotId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	booking, verdict, err := hb.Bookings.RescheduleBooking(c.Request.Context(), bookingID, actorID, input.NewSlotID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking, "verdict": verdict})
}

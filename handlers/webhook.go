package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"servana/config"
	"servana/models"
	"servana/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const maxWebhookBodyBytes = int64(65536)

// GatewayWebhookHandler receives payment gateway callbacks, verifies the
// signature and maps the event onto escrow state. Replayed deliveries are
// absorbed by the ledger, so returning 200 for a duplicate is correct.
func (hb *HandlerBundle) GatewayWebhookHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "failed to read body", err.Error())
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, config.AppConfig.StripeWebhookSecret)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "signature verification failed", err.Error())
		return
	}

	gw, ok := translateGatewayEvent(event)
	if !ok {
		// Unhandled event kinds are acknowledged so the gateway stops
		// retrying them.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := hb.Escrow.HandleGatewayEvent(c.Request.Context(), gw); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// translateGatewayEvent maps a verified gateway event onto the ledger's
// event shape. Gateway amounts are integer cents.
func translateGatewayEvent(event stripe.Event) (models.GatewayEvent, bool) {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return models.GatewayEvent{}, false
	}

	gw := models.GatewayEvent{
		ID:        event.ID,
		ChargeID:  charge.ID,
		BookingID: charge.Metadata["bookingId"],
		Amount:    float64(charge.Amount) / 100,
	}

	switch event.Type {
	case "charge.succeeded":
		gw.Kind = models.EventChargePaid
	case "charge.failed":
		gw.Kind = models.EventChargePaymentFailed
	case "charge.refunded":
		gw.RefundedAmount = float64(charge.AmountRefunded) / 100
		if charge.Refunded {
			gw.Kind = models.EventChargeRefunded
		} else {
			gw.Kind = models.EventChargePartialRefunded
		}
	default:
		return models.GatewayEvent{}, false
	}
	return gw, true
}

// Package payment bridges orders to Stripe: it creates payment intents and
// applies the webhook outcome to the order.
package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"stride_back_end/internal/handlers"
	"stride_back_end/internal/middleware"
	"stride_back_end/internal/models"
	"stride_back_end/internal/services"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxWebhookBody = int64(65536)

type Handler struct {
	orders        *services.OrderService
	webhookSecret string
	log           *zap.Logger
}

// New builds the handler. With an empty webhookSecret the webhook accepts
// unsigned events, which is only meant for local testing.
func New(orders *services.OrderService, webhookSecret string, log *zap.Logger) *Handler {
	return &Handler{orders: orders, webhookSecret: webhookSecret, log: log}
}

// CreateIntent starts a card payment for one of the user's pending orders.
func (h *Handler) CreateIntent(c *gin.Context) {
	var body struct {
		OrderID string `json:"orderId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	orderID, err := primitive.ObjectIDFromHex(body.OrderID)
	if err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid order ID")
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	u := middleware.MustUser(c)
	o, intent, err := h.orders.StartPayment(ctx, u.ID, orderID)
	if err != nil {
		handlers.OrderError(c, err)
		return
	}
	h.log.Info("payment intent created",
		zap.String("order_id", o.ID.Hex()),
		zap.String("payment_intent_id", intent.ID),
		zap.Float64("amount", o.Total))
	utils.RespondData(c, http.StatusOK, gin.H{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
		"amount":          o.Total,
	})
}

// Webhook receives Stripe events. Events Stripe should not retry are
// acknowledged with 200 even when they change nothing.
func (h *Handler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Could not read request body")
		return
	}

	var event stripe.Event
	if h.webhookSecret == "" {
		if err := json.Unmarshal(payload, &event); err != nil {
			utils.RespondFail(c, http.StatusBadRequest, "Invalid event payload")
			return
		}
	} else {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
		if err != nil {
			h.log.Warn("stripe webhook rejected", zap.Error(err))
			utils.RespondFail(c, http.StatusBadRequest, "Invalid signature")
			return
		}
	}

	var status models.PaymentStatus
	switch event.Type {
	case "payment_intent.succeeded":
		status = models.PaymentCompleted
	case "payment_intent.payment_failed":
		status = models.PaymentFailed
	default:
		h.log.Debug("stripe event ignored", zap.String("type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid payment intent")
		return
	}
	orderID, err := primitive.ObjectIDFromHex(pi.Metadata["order_id"])
	if err != nil {
		h.log.Warn("payment intent without order", zap.String("payment_intent_id", pi.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	_, err = h.orders.ConfirmIntent(ctx, orderID, pi.ID, status)
	var stock *services.StockError
	switch {
	case err == nil:
		h.log.Info("payment intent applied",
			zap.String("order_id", orderID.Hex()),
			zap.String("payment_intent_id", pi.ID),
			zap.String("payment_status", string(status)))
	case errors.As(err, &stock):
		// The order stays pending; the charge needs a manual refund.
		h.log.Error("paid order could not reserve stock",
			zap.String("order_id", orderID.Hex()),
			zap.String("payment_intent_id", pi.ID),
			zap.String("shoe_id", stock.ShoeID.Hex()))
	case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, services.ErrPaymentLocked):
		h.log.Warn("payment intent not applied",
			zap.String("order_id", orderID.Hex()),
			zap.String("payment_intent_id", pi.ID),
			zap.Error(err))
	default:
		handlers.Internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

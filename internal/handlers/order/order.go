// Package order serves checkout, order history and admin order management.
package order

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/cart"
	"stride_back_end/internal/handlers"
	"stride_back_end/internal/middleware"
	"stride_back_end/internal/models"
	"stride_back_end/internal/services"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const qrSize = 256

// UPIPayee is who UPI payments are collected for.
type UPIPayee struct {
	VPA  string
	Name string
}

type Handler struct {
	orders *services.OrderService
	carts  cache.CartStore
	payee  UPIPayee
	log    *zap.Logger
}

func New(orders *services.OrderService, carts cache.CartStore, payee UPIPayee, log *zap.Logger) *Handler {
	return &Handler{orders: orders, carts: carts, payee: payee, log: log}
}

// Create places an order for the signed-in user and drops the ordered
// lines from their cart.
func (h *Handler) Create(c *gin.Context) {
	var in services.PlaceOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	u := middleware.MustUser(c)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.orders.Place(ctx, u, in)
	if err != nil {
		handlers.OrderError(c, err)
		return
	}
	h.removeOrdered(ctx, u.ID.Hex(), o)
	utils.RespondData(c, http.StatusCreated, gin.H{"order": o})
}

func (h *Handler) removeOrdered(ctx context.Context, userID string, o *models.Order) {
	owner := cache.UserOwner(userID)
	ct, err := h.carts.Load(ctx, owner)
	if err != nil {
		h.log.Warn("cart not loaded after order", zap.String("order_id", o.ID.Hex()), zap.Error(err))
		return
	}
	removed := false
	for _, it := range o.Items {
		if ct.RemoveLine(cart.LineKey{ShoeID: it.ShoeID.Hex(), Size: it.Size, Color: it.Color}) {
			removed = true
		}
	}
	if !removed {
		return
	}
	if err := h.carts.Save(ctx, owner, ct); err != nil {
		h.log.Warn("cart not updated after order", zap.String("order_id", o.ID.Hex()), zap.Error(err))
	}
}

func (h *Handler) List(c *gin.Context) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	orders, err := h.orders.ListForUser(ctx, middleware.MustUser(c).ID)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"orders": nonNil(orders)})
}

// All lists every order for the admin dashboard.
func (h *Handler) All(c *gin.Context) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	orders, err := h.orders.ListAll(ctx)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"orders": nonNil(orders)})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.orders.Get(ctx, middleware.MustUser(c).ID, id)
	if err != nil {
		handlers.OrderError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"order": o})
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	var body struct {
		PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid payment status")
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.orders.VerifyPayment(ctx, middleware.MustUser(c).ID, id, body.PaymentStatus)
	if err != nil {
		handlers.OrderError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"order": o})
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.orders.Cancel(ctx, middleware.MustUser(c).ID, id)
	if err != nil {
		handlers.OrderError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"order": o})
}

// UpdateStatus is the admin status change.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid order status")
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	to := models.OrderStatus(strings.ToLower(strings.TrimSpace(body.Status)))
	o, err := h.orders.UpdateStatus(ctx, id, to)
	if err != nil {
		handlers.OrderError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"order": o})
}

func (h *Handler) upiPayment(c *gin.Context) (utils.UPIPayment, bool) {
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid order ID")
	if !ok {
		return utils.UPIPayment{}, false
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.orders.AwaitingUPI(ctx, middleware.MustUser(c).ID, id)
	if err != nil {
		handlers.OrderError(c, err)
		return utils.UPIPayment{}, false
	}
	return utils.UPIPayment{
		PayeeVPA:  h.payee.VPA,
		PayeeName: h.payee.Name,
		Amount:    o.Total,
		Reference: o.ID.Hex(),
		Note:      "Stride order " + o.ID.Hex(),
	}, true
}

// UPI returns the deep link and QR code for a UPI order awaiting payment.
func (h *Handler) UPI(c *gin.Context) {
	p, ok := h.upiPayment(c)
	if !ok {
		return
	}
	png, err := p.QRCode(qrSize)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{
		"upiLink": p.Link(),
		"amount":  p.Amount,
		"qrCode":  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}

func (h *Handler) UPIQRCode(c *gin.Context) {
	p, ok := h.upiPayment(c)
	if !ok {
		return
	}
	png, err := p.QRCode(qrSize)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func nonNil(orders []models.Order) []models.Order {
	if orders == nil {
		return []models.Order{}
	}
	return orders
}

package user

import (
	"net/http"

	"stride_back_end/internal/handlers"
	"stride_back_end/internal/middleware"
	"stride_back_end/internal/models"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// paymentMethodRequest rejects full card numbers outright: only the last
// four digits are ever accepted.
type paymentMethodRequest struct {
	models.PaymentMethod
	CardNumber string `json:"cardNumber"`
}

func (h *Handler) bindPaymentMethod(c *gin.Context) (models.PaymentMethod, bool) {
	var req paymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return models.PaymentMethod{}, false
	}
	if req.CardNumber != "" {
		utils.RespondFail(c, http.StatusBadRequest, "Full card numbers are not accepted")
		return models.PaymentMethod{}, false
	}
	pm := req.PaymentMethod
	pm.Normalize()
	if err := pm.Validate(h.now()); err != nil {
		handlers.ModelError(c, err)
		return models.PaymentMethod{}, false
	}
	return pm, true
}

func (h *Handler) ListPaymentMethods(c *gin.Context) {
	u := middleware.MustUser(c)
	utils.RespondData(c, http.StatusOK, gin.H{"paymentMethods": nonNil(u.PaymentMethods)})
}

func (h *Handler) AddPaymentMethod(c *gin.Context) {
	u := middleware.MustUser(c)
	pm, ok := h.bindPaymentMethod(c)
	if !ok {
		return
	}
	pm.ID = primitive.NewObjectID()
	h.savePaymentMethods(c, u, models.AppendDefaultable(u.PaymentMethods, pm), http.StatusCreated)
}

func (h *Handler) UpdatePaymentMethod(c *gin.Context) {
	u := middleware.MustUser(c)
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid payment method ID")
	if !ok {
		return
	}
	pm, ok := h.bindPaymentMethod(c)
	if !ok {
		return
	}
	pm.ID = id
	list, found := models.ReplaceDefaultable(u.PaymentMethods, pm)
	if !found {
		utils.RespondFail(c, http.StatusNotFound, "Payment method not found")
		return
	}
	h.savePaymentMethods(c, u, list, http.StatusOK)
}

func (h *Handler) DeletePaymentMethod(c *gin.Context) {
	u := middleware.MustUser(c)
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid payment method ID")
	if !ok {
		return
	}
	list, found := models.RemoveDefaultable(u.PaymentMethods, id)
	if !found {
		utils.RespondFail(c, http.StatusNotFound, "Payment method not found")
		return
	}
	h.savePaymentMethods(c, u, list, http.StatusOK)
}

func (h *Handler) SetDefaultPaymentMethod(c *gin.Context) {
	u := middleware.MustUser(c)
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid payment method ID")
	if !ok {
		return
	}
	list, found := models.MarkDefault(u.PaymentMethods, id)
	if !found {
		utils.RespondFail(c, http.StatusNotFound, "Payment method not found")
		return
	}
	h.savePaymentMethods(c, u, list, http.StatusOK)
}

func (h *Handler) savePaymentMethods(c *gin.Context, u *models.User, list []models.PaymentMethod, code int) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()
	if err := h.users.SetPaymentMethods(ctx, u.ID, list); err != nil {
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, code, gin.H{"paymentMethods": nonNil(list)})
}

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

func (h *Handler) ListAddresses(c *gin.Context) {
	u := middleware.MustUser(c)
	utils.RespondData(c, http.StatusOK, gin.H{"addresses": nonNil(u.Addresses)})
}

func (h *Handler) AddAddress(c *gin.Context) {
	u := middleware.MustUser(c)
	var a models.Address
	if err := c.ShouldBindJSON(&a); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	a.Normalize()
	if err := a.Validate(); err != nil {
		handlers.ModelError(c, err)
		return
	}
	a.ID = primitive.NewObjectID()

	list := models.AppendDefaultable(u.Addresses, a)
	h.saveAddresses(c, u, list, http.StatusCreated)
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	u := middleware.MustUser(c)
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid address ID")
	if !ok {
		return
	}
	var a models.Address
	if err := c.ShouldBindJSON(&a); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	a.Normalize()
	if err := a.Validate(); err != nil {
		handlers.ModelError(c, err)
		return
	}
	a.ID = id

	list, found := models.ReplaceDefaultable(u.Addresses, a)
	if !found {
		utils.RespondFail(c, http.StatusNotFound, "Address not found")
		return
	}
	h.saveAddresses(c, u, list, http.StatusOK)
}

func (h *Handler) DeleteAddress(c *gin.Context) {
	u := middleware.MustUser(c)
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid address ID")
	if !ok {
		return
	}
	list, found := models.RemoveDefaultable(u.Addresses, id)
	if !found {
		utils.RespondFail(c, http.StatusNotFound, "Address not found")
		return
	}
	h.saveAddresses(c, u, list, http.StatusOK)
}

func (h *Handler) SetDefaultAddress(c *gin.Context) {
	u := middleware.MustUser(c)
	id, ok := handlers.ObjectIDParam(c, "id", "Invalid address ID")
	if !ok {
		return
	}
	list, found := models.MarkDefault(u.Addresses, id)
	if !found {
		utils.RespondFail(c, http.StatusNotFound, "Address not found")
		return
	}
	h.saveAddresses(c, u, list, http.StatusOK)
}

func (h *Handler) saveAddresses(c *gin.Context, u *models.User, list []models.Address, code int) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()
	if err := h.users.SetAddresses(ctx, u.ID, list); err != nil {
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, code, gin.H{"addresses": nonNil(list)})
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

package user

import (
	"errors"
	"net/http"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/cart"
	"stride_back_end/internal/handlers"
	"stride_back_end/internal/middleware"
	"stride_back_end/internal/models"
	"stride_back_end/internal/repository"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GetWishlist returns the saved shoes, skipping any removed from the
// catalog since.
func (h *Handler) GetWishlist(c *gin.Context) {
	u := middleware.MustUser(c)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	shoes, err := h.shoes.FindByIDs(ctx, u.Wishlist)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"wishlist": nonNil(shoes)})
}

func (h *Handler) AddToWishlist(c *gin.Context) {
	u := middleware.MustUser(c)
	var req struct {
		ShoeID string `json:"shoeId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, err := primitive.ObjectIDFromHex(req.ShoeID)
	if err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid shoe ID")
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if _, err := h.shoes.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.RespondFail(c, http.StatusNotFound, "Shoe not found")
			return
		}
		handlers.Internal(c, err)
		return
	}
	if err := h.users.AddToWishlist(ctx, u.ID, id); err != nil {
		handlers.Internal(c, err)
		return
	}

	ids := u.Wishlist
	if !u.InWishlist(id) {
		ids = append(ids, id)
	}
	utils.RespondData(c, http.StatusCreated, gin.H{"wishlist": ids})
}

func (h *Handler) RemoveFromWishlist(c *gin.Context) {
	u := middleware.MustUser(c)
	id, ok := handlers.ObjectIDParam(c, "shoeId", "Invalid shoe ID")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.users.RemoveFromWishlist(ctx, u.ID, id); err != nil {
		handlers.Internal(c, err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(u.Wishlist))
	for _, w := range u.Wishlist {
		if w != id {
			ids = append(ids, w)
		}
	}
	utils.RespondData(c, http.StatusOK, gin.H{"wishlist": ids})
}

// MoveToCart puts one pair of every in-stock wishlist shoe in the cart and
// removes those shoes from the wishlist. Out of stock shoes stay saved.
func (h *Handler) MoveToCart(c *gin.Context) {
	u := middleware.MustUser(c)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	shoes, err := h.shoes.FindByIDs(ctx, u.Wishlist)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	owner := cache.UserOwner(u.ID.Hex())
	current, err := h.carts.Load(ctx, owner)
	if err != nil {
		handlers.Internal(c, err)
		return
	}

	var moved []primitive.ObjectID
	for _, s := range shoes {
		if s.Stock < 1 {
			continue
		}
		if err := current.Add(lineFor(s)); err != nil {
			continue
		}
		moved = append(moved, s.ID)
	}

	if len(moved) > 0 {
		if err := h.carts.Save(ctx, owner, current); err != nil {
			handlers.Internal(c, err)
			return
		}
		if err := h.users.RemoveFromWishlist(ctx, u.ID, moved...); err != nil {
			h.log.Warn("moved shoes left in wishlist", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
	}

	utils.RespondData(c, http.StatusOK, gin.H{
		"moved": len(moved),
		"cart":  current.Summary(),
	})
}

// lineFor builds a one-pair cart line using the shoe's first listed size
// and colour.
func lineFor(s models.Shoe) cart.Item {
	it := cart.Item{
		ShoeID:   s.ID.Hex(),
		Name:     s.Name,
		Brand:    s.Brand,
		Price:    s.EffectivePrice(),
		Image:    s.CoverImage(),
		Quantity: 1,
	}
	if len(s.Sizes) > 0 {
		it.Size = s.Sizes[0]
	}
	if len(s.Colors) > 0 {
		it.Color = s.Colors[0]
	}
	return it
}

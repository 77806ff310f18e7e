// Package cart serves the shopping cart of signed-in users and guests.
package cart

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/cart"
	"stride_back_end/internal/handlers"
	"stride_back_end/internal/middleware"
	"stride_back_end/internal/models"
	"stride_back_end/internal/repository"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	carts    cache.CartStore
	shoes    repository.ShoeRepository
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// New builds the cart handler. Websocket upgrades are accepted from
// allowedOrigins only; an empty list accepts same-origin requests.
func New(carts cache.CartStore, shoes repository.ShoeRepository, allowedOrigins []string, log *zap.Logger) *Handler {
	h := &Handler{carts: carts, shoes: shoes, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// owner resolves whose cart the request addresses. Anonymous callers
// without a session get a fresh one in the response header.
func (h *Handler) owner(c *gin.Context) cache.Owner {
	if u, ok := middleware.CurrentUser(c); ok {
		return cache.UserOwner(u.ID.Hex())
	}
	id := handlers.GuestSession(c, "")
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(handlers.GuestSessionHeader, id)
	return cache.GuestOwner(id)
}

func respondCart(c *gin.Context, code int, ct cart.Cart) {
	utils.RespondData(c, code, gin.H{"cart": ct.Summary()})
}

func (h *Handler) Get(c *gin.Context) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()
	ct, err := h.carts.Load(ctx, h.owner(c))
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	respondCart(c, http.StatusOK, ct)
}

type addItemRequest struct {
	ShoeID   string  `json:"shoeId"`
	Quantity *int    `json:"quantity"`
	Size     float64 `json:"selectedSize"`
	Color    string  `json:"selectedColor"`
}

// AddItem adds a line priced from the catalog. Client prices are never
// trusted.
func (h *Handler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, err := primitive.ObjectIDFromHex(req.ShoeID)
	if err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid shoe ID")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty < 1 {
		utils.RespondFail(c, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	shoe, ok := h.findShoe(c, id)
	if !ok {
		return
	}
	color := strings.TrimSpace(req.Color)
	if !h.checkVariant(c, shoe, req.Size, color) {
		return
	}

	owner := h.owner(c)
	ct, err := h.carts.Load(ctx, owner)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	item := cart.Item{
		ShoeID:   shoe.ID.Hex(),
		Name:     shoe.Name,
		Brand:    shoe.Brand,
		Price:    shoe.EffectivePrice(),
		Image:    shoe.CoverImage(),
		Size:     req.Size,
		Color:    color,
		Quantity: qty,
	}
	if pairsOf(ct, item.ShoeID)+qty > shoe.Stock {
		utils.RespondFail(c, http.StatusConflict, "Insufficient stock for "+shoe.Name)
		return
	}
	if err := ct.Add(item); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid cart item")
		return
	}
	if err := h.carts.Save(ctx, owner, ct); err != nil {
		handlers.Internal(c, err)
		return
	}
	respondCart(c, http.StatusOK, ct)
}

type updateItemRequest struct {
	Quantity int     `json:"quantity"`
	Size     float64 `json:"selectedSize"`
	Color    string  `json:"selectedColor"`
}

func (h *Handler) UpdateItem(c *gin.Context) {
	shoeID := c.Param("shoeId")
	if !cart.ValidID(shoeID) {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid shoe ID")
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		utils.RespondFail(c, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	owner := h.owner(c)
	ct, err := h.carts.Load(ctx, owner)
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	key := cart.LineKey{ShoeID: shoeID, Size: req.Size, Color: strings.TrimSpace(req.Color)}
	line, found := ct.Line(key)
	if !found {
		utils.RespondFail(c, http.StatusNotFound, "Item not in cart")
		return
	}

	id, _ := primitive.ObjectIDFromHex(shoeID)
	shoe, ok := h.findShoe(c, id)
	if !ok {
		return
	}
	if pairsOf(ct, shoeID)-line.Quantity+req.Quantity > shoe.Stock {
		utils.RespondFail(c, http.StatusConflict, "Insufficient stock for "+shoe.Name)
		return
	}

	if err := ct.SetQuantity(key, req.Quantity); err != nil {
		utils.RespondFail(c, http.StatusNotFound, "Item not in cart")
		return
	}
	if err := h.carts.Save(ctx, owner, ct); err != nil {
		handlers.Internal(c, err)
		return
	}
	respondCart(c, http.StatusOK, ct)
}

// RemoveItem drops one line when size or color is given, otherwise every
// line of the shoe.
func (h *Handler) RemoveItem(c *gin.Context) {
	shoeID := c.Param("shoeId")
	if !cart.ValidID(shoeID) {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid shoe ID")
		return
	}
	sizeParam, colorParam := c.Query("size"), strings.TrimSpace(c.Query("color"))
	var size float64
	if sizeParam != "" {
		v, err := strconv.ParseFloat(sizeParam, 64)
		if err != nil {
			utils.RespondFail(c, http.StatusBadRequest, "Invalid size")
			return
		}
		size = v
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	owner := h.owner(c)
	ct, err := h.carts.Load(ctx, owner)
	if err != nil {
		handlers.Internal(c, err)
		return
	}

	removed := false
	if sizeParam != "" || colorParam != "" {
		removed = ct.RemoveLine(cart.LineKey{ShoeID: shoeID, Size: size, Color: colorParam})
	} else {
		removed = ct.RemoveShoe(shoeID) > 0
	}
	if !removed {
		utils.RespondFail(c, http.StatusNotFound, "Item not in cart")
		return
	}
	if err := h.carts.Save(ctx, owner, ct); err != nil {
		handlers.Internal(c, err)
		return
	}
	respondCart(c, http.StatusOK, ct)
}

func (h *Handler) Clear(c *gin.Context) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()
	if err := h.carts.Clear(ctx, h.owner(c)); err != nil {
		handlers.Internal(c, err)
		return
	}
	respondCart(c, http.StatusOK, cart.Cart{})
}

// Merge folds a guest session cart into the signed-in user's cart.
func (h *Handler) Merge(c *gin.Context) {
	u := middleware.MustUser(c)
	var req struct {
		GuestSessionID string `json:"guestSessionId"`
	}
	_ = c.ShouldBindJSON(&req)
	guest := handlers.GuestSession(c, req.GuestSessionID)
	if guest == "" {
		utils.RespondFail(c, http.StatusBadRequest, "Guest session is required")
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()
	merged, skipped, err := h.carts.MergeGuest(ctx, cache.GuestOwner(guest), cache.UserOwner(u.ID.Hex()))
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"cart": merged.Summary(), "skipped": skipped})
}

func (h *Handler) findShoe(c *gin.Context, id primitive.ObjectID) (*models.Shoe, bool) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()
	shoe, err := h.shoes.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondFail(c, http.StatusNotFound, "Shoe not found")
		return nil, false
	}
	if err != nil {
		handlers.Internal(c, err)
		return nil, false
	}
	return shoe, true
}

// checkVariant rejects a size or colour the shoe is not sold in. Shoes
// listing no sizes or colours accept any.
func (h *Handler) checkVariant(c *gin.Context, s *models.Shoe, size float64, color string) bool {
	if len(s.Sizes) > 0 && size != 0 && !s.HasSize(size) {
		utils.RespondFail(c, http.StatusBadRequest, "Size not available")
		return false
	}
	if len(s.Colors) > 0 && color != "" && !s.HasColor(color) {
		utils.RespondFail(c, http.StatusBadRequest, "Color not available")
		return false
	}
	return true
}

// pairsOf counts the pairs of one shoe across all its lines.
func pairsOf(ct cart.Cart, shoeID string) int {
	n := 0
	for _, it := range ct.Items {
		if it.ShoeID == shoeID {
			n += it.Quantity
		}
	}
	return n
}

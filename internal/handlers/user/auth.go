package user

import (
	"errors"
	"net/http"
	"strings"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/handlers"
	"stride_back_end/internal/middleware"
	"stride_back_end/internal/models"
	"stride_back_end/internal/repository"
	"stride_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	GuestSessionID string `json:"guestSessionId"`
}

type loginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	GuestSessionID string `json:"guestSessionId"`
}

type updateRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) signedIn(c *gin.Context, code int, u *models.User) {
	token, err := h.tokens.Issue(u.ID.Hex())
	if err != nil {
		handlers.Internal(c, err)
		return
	}
	c.JSON(code, gin.H{"status": "success", "token": token, "user": u})
}

// Register creates an account and signs it in.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	profile := models.Profile{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
	profile.Normalize()
	if req.Password == "" {
		utils.RespondFail(c, http.StatusBadRequest, "All fields are required")
		return
	}
	if err := profile.Validate(); err != nil {
		handlers.ModelError(c, err)
		return
	}
	if err := models.ValidatePassword(req.Password); err != nil {
		handlers.ModelError(c, err)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		handlers.Internal(c, err)
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	u := &models.User{
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Email:     profile.Email,
		Password:  hash,
	}
	if err := h.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			utils.RespondFail(c, http.StatusBadRequest, "Email already in use")
			return
		}
		handlers.Internal(c, err)
		return
	}
	h.log.Info("user registered", zap.String("user_id", u.ID.Hex()))

	h.mergeGuestCart(ctx, handlers.GuestSession(c, req.GuestSessionID), u.ID.Hex())
	h.signedIn(c, http.StatusCreated, u)
}

// Login checks the credentials. Legacy bcrypt hashes are upgraded in place.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := models.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		utils.RespondFail(c, http.StatusBadRequest, "Email and password required")
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	u, err := h.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondFail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		handlers.Internal(c, err)
		return
	}

	ok, err := utils.VerifyPassword(req.Password, u.Password)
	if err != nil {
		h.log.Warn("stored password hash unreadable", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	if !ok {
		utils.RespondFail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if utils.NeedsRehash(u.Password) {
		if hash, err := utils.HashPassword(req.Password); err == nil {
			if err := h.users.UpdatePassword(ctx, u.ID, hash); err != nil {
				h.log.Warn("password rehash not saved", zap.String("user_id", u.ID.Hex()), zap.Error(err))
			}
		}
	}

	h.mergeGuestCart(ctx, handlers.GuestSession(c, req.GuestSessionID), u.ID.Hex())
	h.signedIn(c, http.StatusOK, u)
}

func (h *Handler) Me(c *gin.Context) {
	utils.RespondData(c, http.StatusOK, gin.H{"user": middleware.MustUser(c)})
}

// Update edits the profile and, when newPassword is sent, the password.
// Empty profile fields keep their current value.
func (h *Handler) Update(c *gin.Context) {
	current := middleware.MustUser(c)
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondFail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile := models.Profile{
		FirstName: firstNonEmpty(req.FirstName, current.FirstName),
		LastName:  firstNonEmpty(req.LastName, current.LastName),
		Email:     firstNonEmpty(req.Email, current.Email),
	}
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		handlers.ModelError(c, err)
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			utils.RespondFail(c, http.StatusBadRequest, "Current password is required")
			return
		}
		ok, _ := utils.VerifyPassword(req.CurrentPassword, current.Password)
		if !ok {
			utils.RespondFail(c, http.StatusUnauthorized, "Current password is incorrect")
			return
		}
		if err := models.ValidatePassword(req.NewPassword); err != nil {
			handlers.ModelError(c, err)
			return
		}
		hash, err := utils.HashPassword(req.NewPassword)
		if err != nil {
			handlers.Internal(c, err)
			return
		}
		if err := h.users.UpdatePassword(ctx, current.ID, hash); err != nil {
			handlers.Internal(c, err)
			return
		}
	}

	updated, err := h.users.UpdateProfile(ctx, current.ID, profile)
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		utils.RespondFail(c, http.StatusBadRequest, "Email already in use")
		return
	case errors.Is(err, repository.ErrNotFound):
		utils.RespondFail(c, http.StatusUnauthorized, "User no longer exists")
		return
	case err != nil:
		handlers.Internal(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, gin.H{"user": updated})
}

// Delete deactivates the account and drops its cart.
func (h *Handler) Delete(c *gin.Context) {
	u := middleware.MustUser(c)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.users.Deactivate(ctx, u.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		handlers.Internal(c, err)
		return
	}
	if err := h.carts.Clear(ctx, cache.UserOwner(u.ID.Hex())); err != nil {
		h.log.Warn("cart not cleared for deactivated user", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	h.log.Info("user deactivated", zap.String("user_id", u.ID.Hex()))
	c.Status(http.StatusNoContent)
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

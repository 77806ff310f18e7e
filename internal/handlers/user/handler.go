// Package user serves the account endpoints: authentication, profile,
// saved addresses, saved cards and the wishlist.
package user

import (
	"context"
	"time"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/repository"
	"stride_back_end/internal/utils"

	"go.uber.org/zap"
)

type Handler struct {
	users  repository.UserRepository
	shoes  repository.ShoeRepository
	carts  cache.CartStore
	tokens *utils.TokenManager
	log    *zap.Logger
	now    func() time.Time
}

func New(users repository.UserRepository, shoes repository.ShoeRepository, carts cache.CartStore, tokens *utils.TokenManager, log *zap.Logger) *Handler {
	return &Handler{users: users, shoes: shoes, carts: carts, tokens: tokens, log: log, now: time.Now}
}

// mergeGuestCart folds a guest cart into the user's cart after sign-in.
// Failures are logged; they never fail the sign-in itself.
func (h *Handler) mergeGuestCart(ctx context.Context, guestID, userID string) {
	if guestID == "" {
		return
	}
	merged, skipped, err := h.carts.MergeGuest(ctx, cache.GuestOwner(guestID), cache.UserOwner(userID))
	if err != nil {
		h.log.Warn("guest cart merge failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	h.log.Info("guest cart merged",
		zap.String("user_id", userID),
		zap.Int("lines", len(merged.Items)),
		zap.Int("skipped", skipped))
}

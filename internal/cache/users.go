package cache

import (
	"context"
	"errors"
	"time"

	"stride_back_end/internal/models"
	"stride_back_end/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const UserCacheTTL = 5 * time.Minute

// CachedUsers serves FindByID from Redis, the lookup every authenticated
// request makes. Every write drops the cached copy.
type CachedUsers struct {
	repository.UserRepository
	rdb *redis.Client
	log *zap.Logger
}

func NewCachedUsers(next repository.UserRepository, rdb *redis.Client, log *zap.Logger) *CachedUsers {
	return &CachedUsers{UserRepository: next, rdb: rdb, log: log}
}

func userKey(id primitive.ObjectID) string { return "user:" + id.Hex() }

func (c *CachedUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if data, err := c.rdb.Get(ctx, userKey(id)).Bytes(); err == nil {
		var u models.User
		if bson.Unmarshal(data, &u) == nil {
			return &u, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("user cache read failed", zap.Error(err))
	}

	u, err := c.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := bson.Marshal(u); err == nil {
		c.rdb.Set(ctx, userKey(id), data, UserCacheTTL)
	}
	return u, nil
}

func (c *CachedUsers) invalidate(ctx context.Context, id primitive.ObjectID) {
	if err := c.rdb.Del(ctx, userKey(id)).Err(); err != nil {
		c.log.Warn("user cache invalidation failed", zap.String("user_id", id.Hex()), zap.Error(err))
	}
}

func (c *CachedUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, p models.Profile) (*models.User, error) {
	defer c.invalidate(ctx, id)
	return c.UserRepository.UpdateProfile(ctx, id, p)
}

func (c *CachedUsers) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	defer c.invalidate(ctx, id)
	return c.UserRepository.UpdatePassword(ctx, id, hash)
}

func (c *CachedUsers) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	defer c.invalidate(ctx, id)
	return c.UserRepository.Deactivate(ctx, id)
}

func (c *CachedUsers) SetAddresses(ctx context.Context, id primitive.ObjectID, list []models.Address) error {
	defer c.invalidate(ctx, id)
	return c.UserRepository.SetAddresses(ctx, id, list)
}

func (c *CachedUsers) SetPaymentMethods(ctx context.Context, id primitive.ObjectID, list []models.PaymentMethod) error {
	defer c.invalidate(ctx, id)
	return c.UserRepository.SetPaymentMethods(ctx, id, list)
}

func (c *CachedUsers) AddToWishlist(ctx context.Context, id, shoeID primitive.ObjectID) error {
	defer c.invalidate(ctx, id)
	return c.UserRepository.AddToWishlist(ctx, id, shoeID)
}

func (c *CachedUsers) RemoveFromWishlist(ctx context.Context, id primitive.ObjectID, shoeIDs ...primitive.ObjectID) error {
	defer c.invalidate(ctx, id)
	return c.UserRepository.RemoveFromWishlist(ctx, id, shoeIDs...)
}

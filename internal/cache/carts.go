package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"stride_back_end/internal/cart"

	"github.com/redis/go-redis/v9"
)

const (
	UserCartTTL  = 30 * 24 * time.Hour
	GuestCartTTL = 7 * 24 * time.Hour

	EventCartUpdated = "updated"
	EventCartCleared = "cleared"
)

// Owner identifies whose cart is addressed: a signed-in user or a guest
// session.
type Owner struct {
	Guest bool
	ID    string
}

func UserOwner(id string) Owner   { return Owner{ID: id} }
func GuestOwner(id string) Owner  { return Owner{Guest: true, ID: id} }
func (o Owner) Key() string       { return "cart:" + o.kind() + ":" + o.ID }
func (o Owner) Channel() string   { return "cart-events:" + o.kind() + ":" + o.ID }
func (o Owner) TTL() time.Duration {
	if o.Guest {
		return GuestCartTTL
	}
	return UserCartTTL
}

func (o Owner) kind() string {
	if o.Guest {
		return "guest"
	}
	return "user"
}

// Subscription delivers cart event names until closed.
type Subscription interface {
	C() <-chan string
	Close() error
}

type CartStore interface {
	Load(ctx context.Context, o Owner) (cart.Cart, error)
	Save(ctx context.Context, o Owner, c cart.Cart) error
	Clear(ctx context.Context, o Owner) error
	// MergeGuest folds the guest cart into the user cart, deletes the guest
	// cart and returns the merged cart with the number of skipped lines.
	MergeGuest(ctx context.Context, guest, user Owner) (cart.Cart, int, error)
	Subscribe(ctx context.Context, o Owner) (Subscription, error)
}

type RedisCarts struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisCarts(rdb *redis.Client) *RedisCarts {
	return &RedisCarts{rdb: rdb, now: time.Now}
}

func (s *RedisCarts) Load(ctx context.Context, o Owner) (cart.Cart, error) {
	data, err := s.rdb.Get(ctx, o.Key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Cart{}, nil
	}
	if err != nil {
		return cart.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return cart.Cart{}, fmt.Errorf("decode cart %s: %w", o.Key(), err)
	}
	return c, nil
}

func (s *RedisCarts) Save(ctx context.Context, o Owner, c cart.Cart) error {
	c.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, o.Key(), data, o.TTL())
		pipe.Publish(ctx, o.Channel(), EventCartUpdated)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisCarts) Clear(ctx context.Context, o Owner) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, o.Key())
		pipe.Publish(ctx, o.Channel(), EventCartCleared)
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *RedisCarts) MergeGuest(ctx context.Context, guest, user Owner) (cart.Cart, int, error) {
	guestCart, err := s.Load(ctx, guest)
	if err != nil {
		return cart.Cart{}, 0, err
	}
	userCart, err := s.Load(ctx, user)
	if err != nil {
		return cart.Cart{}, 0, err
	}
	if len(guestCart.Items) == 0 {
		return userCart, 0, nil
	}

	merged, skipped := cart.Merge(userCart, guestCart)
	merged.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(merged)
	if err != nil {
		return cart.Cart{}, 0, fmt.Errorf("encode cart: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, user.Key(), data, user.TTL())
		pipe.Del(ctx, guest.Key())
		pipe.Publish(ctx, user.Channel(), EventCartUpdated)
		pipe.Publish(ctx, guest.Channel(), EventCartCleared)
		return nil
	})
	if err != nil {
		return cart.Cart{}, 0, fmt.Errorf("merge cart: %w", err)
	}
	return merged, skipped, nil
}

func (s *RedisCarts) Subscribe(ctx context.Context, o Owner) (Subscription, error) {
	ps := s.rdb.Subscribe(ctx, o.Channel())
	// Wait for the subscription confirmation so no event is missed between
	// the first read and the subscription being live.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", o.Channel(), err)
	}
	sub := &redisSubscription{ps: ps, ch: make(chan string, 8), done: make(chan struct{})}
	go sub.forward()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	ch   chan string
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.ch)
	for msg := range s.ps.Channel() {
		select {
		case s.ch <- msg.Payload:
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) C() <-chan string { return s.ch }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/cart"
	"stride_back_end/internal/models"
	"stride_back_end/internal/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Carts struct {
	mu    sync.Mutex
	carts map[string]cart.Cart
	subs  map[string][]*memSub
	Err   error
}

func NewCarts() *Carts {
	return &Carts{carts: map[string]cart.Cart{}, subs: map[string][]*memSub{}}
}

func (s *Carts) Load(_ context.Context, o cache.Owner) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return cart.Cart{}, s.Err
	}
	c := s.carts[o.Key()]
	c.Items = append([]cart.Item(nil), c.Items...)
	return c, nil
}

func (s *Carts) Save(_ context.Context, o cache.Owner, c cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	c.UpdatedAt = time.Now().UTC()
	c.Items = append([]cart.Item(nil), c.Items...)
	s.carts[o.Key()] = c
	s.publish(o, cache.EventCartUpdated)
	return nil
}

func (s *Carts) Clear(_ context.Context, o cache.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.carts, o.Key())
	s.publish(o, cache.EventCartCleared)
	return nil
}

func (s *Carts) MergeGuest(_ context.Context, guest, user cache.Owner) (cart.Cart, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return cart.Cart{}, 0, s.Err
	}
	g, ok := s.carts[guest.Key()]
	if !ok || len(g.Items) == 0 {
		return s.carts[user.Key()], 0, nil
	}
	merged, skipped := cart.Merge(s.carts[user.Key()], g)
	merged.UpdatedAt = time.Now().UTC()
	s.carts[user.Key()] = merged
	delete(s.carts, guest.Key())
	s.publish(user, cache.EventCartUpdated)
	return merged, skipped, nil
}

func (s *Carts) Subscribe(_ context.Context, o cache.Owner) (cache.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sub := &memSub{ch: make(chan string, 16), owner: s, key: o.Channel()}
	s.subs[sub.key] = append(s.subs[sub.key], sub)
	return sub, nil
}

// publish must be called with mu held.
func (s *Carts) publish(o cache.Owner, event string) {
	for _, sub := range s.subs[o.Channel()] {
		select {
		case sub.ch <- event:
		default:
		}
	}
}

type memSub struct {
	ch    chan string
	owner *Carts
	key   string
	once  sync.Once
}

func (m *memSub) C() <-chan string { return m.ch }

func (m *memSub) Close() error {
	m.once.Do(func() {
		m.owner.mu.Lock()
		defer m.owner.mu.Unlock()
		list := m.owner.subs[m.key]
		for i, s := range list {
			if s == m {
				m.owner.subs[m.key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(m.ch)
	})
	return nil
}

type Attempts struct {
	mu     sync.Mutex
	counts map[string]int
	locked map[string]time.Time
	Err    error
}

func NewAttempts() *Attempts {
	return &Attempts{counts: map[string]int{}, locked: map[string]time.Time{}}
}

func (a *Attempts) Cooldown(_ context.Context, key string) (time.Duration, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return 0, a.Err
	}
	if until, ok := a.locked[key]; ok {
		if d := time.Until(until); d > 0 {
			return d, nil
		}
		delete(a.locked, key)
	}
	return 0, nil
}

func (a *Attempts) Hit(_ context.Context, key string, max int, window time.Duration) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return 0, a.Err
	}
	a.counts[key]++
	if a.counts[key] >= max {
		a.locked[key] = time.Now().Add(window)
		delete(a.counts, key)
		return 0, nil
	}
	return max - a.counts[key], nil
}

func (a *Attempts) Reset(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.counts, key)
	delete(a.locked, key)
	return nil
}

// Count is the number of recorded attempts for key.
func (a *Attempts) Count(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[key]
}

type Publisher struct {
	mu     sync.Mutex
	events []services.Envelope
}

func (p *Publisher) Publish(_ context.Context, ev services.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *Publisher) Close() error { return nil }

// Types lists the published event types in order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventType
	}
	return out
}

type Mailer struct {
	mu   sync.Mutex
	Sent []models.Order
}

func (m *Mailer) SendOrderUpdate(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, *o)
	return nil
}

func (m *Mailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

type Storage struct {
	mu      sync.Mutex
	Files   map[string][]byte
	Deleted []string
}

func NewStorage() *Storage { return &Storage{Files: map[string][]byte{}} }

func (s *Storage) Save(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	url := "/uploads/" + name
	s.Files[url] = b
	return url, nil
}

func (s *Storage) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Files, url)
	s.Deleted = append(s.Deleted, url)
	return nil
}

// Index is a substring matching ShoeIndex.
type Index struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]string
	Err  error
}

func NewIndex() *Index { return &Index{docs: map[primitive.ObjectID]string{}} }

func (x *Index) Index(_ context.Context, s *models.Shoe) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs[s.ID] = strings.ToLower(s.Name + " " + s.Brand + " " + s.Description)
	return nil
}

func (x *Index) Remove(_ context.Context, id primitive.ObjectID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, id)
	return nil
}

func (x *Index) Search(_ context.Context, q string, limit int) ([]primitive.ObjectID, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.Err != nil {
		return nil, x.Err
	}
	q = strings.ToLower(q)
	out := []primitive.ObjectID{}
	for id, text := range x.docs {
		if strings.Contains(text, q) && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

// Gateway hands out sequential fake payment intents.
type Gateway struct {
	mu  sync.Mutex
	n   int
	Err error
}

var ErrGatewayDown = errors.New("gateway unavailable")

func (g *Gateway) CreateIntent(_ context.Context, o *models.Order) (services.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return services.PaymentIntent{}, g.Err
	}
	g.n++
	id := fmt.Sprintf("pi_test_%d", g.n)
	return services.PaymentIntent{ID: id, ClientSecret: id + "_secret_" + o.ID.Hex()}, nil
}

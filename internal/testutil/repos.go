// Package testutil provides in-memory stand-ins for the Mongo and Redis
// backed stores so services and handlers can be tested without servers.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stride_back_end/internal/models"
	"stride_back_end/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Users struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.User
	// Err, when set, is returned by every call.
	Err error
}

func NewUsers() *Users {
	return &Users{byID: map[primitive.ObjectID]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Addresses = append([]models.Address{}, u.Addresses...)
	c.PaymentMethods = append([]models.PaymentMethod{}, u.PaymentMethods...)
	c.Wishlist = append([]primitive.ObjectID{}, u.Wishlist...)
	return &c
}

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, x := range r.byID {
		if x.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Active = true
	if u.Avatar == "" {
		u.Avatar = models.DefaultAvatar
	}
	r.byID[u.ID] = cloneUser(u)
	return nil
}

func (r *Users) get(id primitive.ObjectID) (*models.User, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.byID[id]
	if !ok || !u.Active {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return cloneUser(u), nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	email = models.NormalizeEmail(email)
	for _, u := range r.byID {
		if u.Active && u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) UpdateProfile(_ context.Context, id primitive.ObjectID, p models.Profile) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	for _, x := range r.byID {
		if x.ID != id && x.Email == p.Email {
			return nil, repository.ErrDuplicateEmail
		}
	}
	u.FirstName, u.LastName, u.Email = p.FirstName, p.LastName, p.Email
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (r *Users) mutate(id primitive.ObjectID, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.get(id)
	if err != nil {
		return err
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Users) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return r.mutate(id, func(u *models.User) { u.Password = hash })
}

func (r *Users) Deactivate(_ context.Context, id primitive.ObjectID) error {
	return r.mutate(id, func(u *models.User) { u.Active = false })
}

func (r *Users) SetAddresses(_ context.Context, id primitive.ObjectID, list []models.Address) error {
	return r.mutate(id, func(u *models.User) { u.Addresses = append([]models.Address{}, list...) })
}

func (r *Users) SetPaymentMethods(_ context.Context, id primitive.ObjectID, list []models.PaymentMethod) error {
	return r.mutate(id, func(u *models.User) { u.PaymentMethods = append([]models.PaymentMethod{}, list...) })
}

func (r *Users) AddToWishlist(_ context.Context, id, shoeID primitive.ObjectID) error {
	return r.mutate(id, func(u *models.User) {
		if !u.InWishlist(shoeID) {
			u.Wishlist = append(u.Wishlist, shoeID)
		}
	})
}

func (r *Users) RemoveFromWishlist(_ context.Context, id primitive.ObjectID, shoeIDs ...primitive.ObjectID) error {
	return r.mutate(id, func(u *models.User) {
		drop := map[primitive.ObjectID]bool{}
		for _, s := range shoeIDs {
			drop[s] = true
		}
		kept := u.Wishlist[:0]
		for _, s := range u.Wishlist {
			if !drop[s] {
				kept = append(kept, s)
			}
		}
		u.Wishlist = kept
	})
}

type Shoes struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Shoe
	Err  error
	// AfterRead runs in Update between the read and the write.
	AfterRead func(id primitive.ObjectID)
}

func NewShoes(list ...models.Shoe) *Shoes {
	r := &Shoes{byID: map[primitive.ObjectID]*models.Shoe{}}
	for i := range list {
		s := list[i]
		if s.ID.IsZero() {
			s.ID = primitive.NewObjectID()
		}
		s.Normalize()
		r.byID[s.ID] = &s
	}
	return r
}

// Stock returns the current stock of id, -1 when unknown.
func (r *Shoes) Stock(id primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byID[id]; ok {
		return s.Stock
	}
	return -1
}

func (r *Shoes) List(_ context.Context, f repository.ShoeFilter) ([]models.Shoe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var ids map[primitive.ObjectID]bool
	if f.IDs != nil {
		ids = map[primitive.ObjectID]bool{}
		for _, id := range f.IDs {
			ids[id] = true
		}
	}
	brand := strings.ToLower(strings.TrimSpace(f.Brand))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := []models.Shoe{}
	for _, s := range r.byID {
		switch {
		case ids != nil && !ids[s.ID]:
			continue
		case brand != "" && brand != "all" && s.Brand != brand:
			continue
		case f.MinPrice != nil && s.Price < *f.MinPrice:
			continue
		case f.MaxPrice != nil && s.Price > *f.MaxPrice:
			continue
		case f.Featured && !s.Featured:
			continue
		case f.NewArrivals && !s.IsNewArrival:
			continue
		case ids == nil && search != "" &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Description), search):
			continue
		}
		out = append(out, *s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch f.Sort {
		case repository.SortPriceLow:
			return out[i].Price < out[j].Price
		case repository.SortPriceHigh:
			return out[i].Price > out[j].Price
		case repository.SortRating:
			return out[i].Rating > out[j].Rating
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	if f.Skip > 0 {
		if int(f.Skip) >= len(out) {
			return []models.Shoe{}, nil
		}
		out = out[f.Skip:]
	}
	if f.Limit > 0 && int(f.Limit) < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *Shoes) FindByID(_ context.Context, id primitive.ObjectID) (*models.Shoe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	s, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *Shoes) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Shoe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []models.Shoe
	for _, id := range ids {
		if s, ok := r.byID[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *Shoes) Create(_ context.Context, s *models.Shoe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	s.ID = primitive.NewObjectID()
	s.CreatedAt, s.UpdatedAt = now, now
	c := *s
	r.byID[s.ID] = &c
	return nil
}

func (r *Shoes) Update(_ context.Context, id primitive.ObjectID, u models.ShoeUpdate) (*models.Shoe, error) {
	r.mu.Lock()
	s, ok := r.byID[id]
	var next models.Shoe
	if ok {
		next = *s
	}
	r.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.Apply(&next)
	next.Normalize()
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if r.AfterRead != nil {
		r.AfterRead(id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok = r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Only the patched fields are written.
	u.Apply(s)
	s.Normalize()
	s.UpdatedAt = time.Now().UTC()
	c := *s
	return &c, nil
}

func (r *Shoes) AddImages(_ context.Context, id primitive.ObjectID, urls []string) (*models.Shoe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.Images = append(s.Images, urls...)
	c := *s
	return &c, nil
}

func (r *Shoes) Delete(_ context.Context, id primitive.ObjectID) (*models.Shoe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.byID, id)
	return s, nil
}

func (r *Shoes) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || s.Stock < qty {
		return repository.ErrInsufficientStock
	}
	s.Stock -= qty
	return nil
}

func (r *Shoes) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Stock += qty
	return nil
}

type Orders struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Order
	seq  time.Time
}

func NewOrders() *Orders {
	return &Orders{byID: map[primitive.ObjectID]*models.Order{}, seq: time.Now().UTC()}
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem{}, o.Items...)
	return &c
}

func (r *Orders) Create(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Strictly increasing timestamps keep newest-first listings stable.
	r.seq = r.seq.Add(time.Millisecond)
	o.ID = primitive.NewObjectID()
	o.CreatedAt, o.UpdatedAt = r.seq, r.seq
	r.byID[o.ID] = cloneOrder(o)
	return nil
}

func (r *Orders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *Orders) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.list(func(o *models.Order) bool { return o.User == userID }), nil
}

func (r *Orders) ListAll(context.Context) ([]models.Order, error) {
	return r.list(func(*models.Order) bool { return true }), nil
}

func (r *Orders) list(match func(*models.Order) bool) []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Order{}
	for _, o := range r.byID {
		if match(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *Orders) Transition(_ context.Context, id primitive.ObjectID, expect repository.OrderExpect, patch repository.OrderPatch) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok ||
		(!expect.User.IsZero() && o.User != expect.User) ||
		(expect.Status != "" && o.Status != expect.Status) ||
		(expect.PaymentStatus != "" && o.PaymentStatus != expect.PaymentStatus) {
		return nil, repository.ErrStateChanged
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		o.PaymentStatus = *patch.PaymentStatus
	}
	if patch.StockReserved != nil {
		o.StockReserved = *patch.StockReserved
	}
	if patch.PaymentIntentID != nil {
		o.PaymentIntentID = *patch.PaymentIntentID
	}
	o.UpdatedAt = time.Now().UTC()
	return cloneOrder(o), nil
}

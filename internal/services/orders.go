package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"stride_back_end/internal/models"
	"stride_back_end/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrEmptyOrder            = errors.New("empty order")
	ErrInvalidShoeID         = errors.New("invalid shoe id")
	ErrInvalidQuantity       = errors.New("invalid item quantity")
	ErrIncompleteShipping    = errors.New("incomplete shipping information")
	ErrPaymentMethodRequired = errors.New("payment method is required")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrProductsNotFound      = errors.New("some products not found")
	ErrInvalidTotal          = errors.New("invalid order total")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidPaymentStatus  = errors.New("invalid payment status")
	ErrPaymentLocked         = errors.New("payment status cannot be updated from current state")
	ErrInvalidOrderStatus    = errors.New("invalid order status")
	ErrPaymentIncomplete     = errors.New("order payment is not completed")
	ErrNotCancellable        = errors.New("order can no longer be cancelled")
	ErrNotOnlinePayment      = errors.New("order is not awaiting online payment")
	ErrPaymentsDisabled      = errors.New("online payments are not configured")
)

// StockError reports the shoe that ran out while reserving an order.
type StockError struct {
	ShoeID primitive.ObjectID
	Name   string
}

func (e *StockError) Error() string { return "insufficient stock for " + e.Name }
func (e *StockError) Unwrap() error { return repository.ErrInsufficientStock }

// TransitionError is returned for a status change the state machine forbids.
type TransitionError struct {
	From, To models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

type OrderItemInput struct {
	ShoeID   string  `json:"shoeId"`
	Quantity int     `json:"quantity"`
	Size     float64 `json:"size"`
	Color    string  `json:"color"`
}

type PlaceOrderInput struct {
	Items         []OrderItemInput    `json:"items"`
	ShippingInfo  models.ShippingInfo `json:"shippingInfo"`
	PaymentMethod string              `json:"paymentMethod"`
	// Total is what the client displayed. The server total always wins.
	Total float64 `json:"total"`
}

type OrderService struct {
	shoes    repository.ShoeRepository
	orders   repository.OrderRepository
	events   EventPublisher
	mailer   Mailer
	payments PaymentGateway
	codFee   float64
	log      *zap.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

type OrderServiceConfig struct {
	Shoes    repository.ShoeRepository
	Orders   repository.OrderRepository
	Events   EventPublisher
	Mailer   Mailer
	Payments PaymentGateway
	CODFee   float64
	Log      *zap.Logger
}

func NewOrderService(cfg OrderServiceConfig) *OrderService {
	s := &OrderService{
		shoes:    cfg.Shoes,
		orders:   cfg.Orders,
		events:   cfg.Events,
		mailer:   cfg.Mailer,
		payments: cfg.Payments,
		codFee:   cfg.CODFee,
		log:      cfg.Log,
		now:      time.Now,
	}
	if s.events == nil {
		s.events = NoopPublisher{}
	}
	if s.mailer == nil {
		s.mailer = NoopMailer{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func (s *OrderService) CODFee() float64 { return s.codFee }

// Wait blocks until queued notifications are delivered.
func (s *OrderService) Wait() { s.wg.Wait() }

// Place validates the input against the catalog and stores a pending order.
func (s *OrderService) Place(ctx context.Context, user *models.User, in PlaceOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	ids := make([]primitive.ObjectID, len(in.Items))
	var unique []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{}
	for i, it := range in.Items {
		id, err := primitive.ObjectIDFromHex(it.ShoeID)
		if err != nil {
			return nil, ErrInvalidShoeID
		}
		if it.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		ids[i] = id
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	in.ShippingInfo.Normalize()
	if !in.ShippingInfo.Complete() {
		return nil, ErrIncompleteShipping
	}

	method := models.PaymentKind(strings.ToLower(strings.TrimSpace(in.PaymentMethod)))
	if method == "" {
		return nil, ErrPaymentMethodRequired
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	shoes, err := s.shoes.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(shoes) != len(unique) {
		return nil, ErrProductsNotFound
	}
	byID := make(map[primitive.ObjectID]models.Shoe, len(shoes))
	for _, sh := range shoes {
		byID[sh.ID] = sh
	}

	items := make([]models.OrderItem, len(in.Items))
	subtotal := 0.0
	for i, it := range in.Items {
		shoe := byID[ids[i]]
		items[i] = models.OrderItem{
			ShoeID:   shoe.ID,
			Name:     shoe.Name,
			Price:    shoe.EffectivePrice(),
			Quantity: it.Quantity,
			Image:    shoe.CoverImage(),
			Size:     it.Size,
			Color:    strings.TrimSpace(it.Color),
		}
		subtotal += items[i].Price * float64(it.Quantity)
	}
	subtotal = models.RoundMoney(subtotal)
	if subtotal <= 0 {
		return nil, ErrInvalidTotal
	}

	order := &models.Order{
		User: user.ID,
		Customer: models.Customer{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		},
		Items:         items,
		ShippingInfo:  in.ShippingInfo,
		PaymentMethod: method,
		PaymentStatus: models.PaymentPending,
		Subtotal:      subtotal,
		Status:        models.OrderPending,
	}
	if method == models.PayCOD {
		order.CODFee = s.codFee
	}
	order.Total = models.RoundMoney(order.Subtotal + order.CODFee)

	if in.Total > 0 && math.Abs(in.Total-order.Total) > 0.01 {
		s.log.Warn("client order total differs from computed total",
			zap.String("user_id", user.ID.Hex()),
			zap.Float64("client_total", in.Total),
			zap.Float64("total", order.Total))
	}

	for id, qty := range order.Quantities() {
		if byID[id].Stock < qty {
			return nil, &StockError{ShoeID: id, Name: byID[id].Name}
		}
	}

	// Cash orders never get a payment confirmation, so they hold stock now.
	if method == models.PayCOD {
		if err := s.reserve(ctx, order); err != nil {
			return nil, err
		}
		order.StockReserved = true
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if order.StockReserved {
			s.release(ctx, order)
		}
		return nil, err
	}

	s.log.Info("order placed",
		zap.String("order_id", order.ID.Hex()),
		zap.String("user_id", user.ID.Hex()),
		zap.String("payment_method", string(method)),
		zap.Float64("total", order.Total))
	s.notify(EventOrderCreated, order, true)
	return order, nil
}

// Get returns the order only to its owner.
func (s *OrderService) Get(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.User != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.orders.ListForUser(ctx, userID)
}

func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx)
}

// VerifyPayment settles a pending payment. completed reserves stock and
// moves the order to processing; failed cancels it.
func (s *OrderService) VerifyPayment(ctx context.Context, userID, orderID primitive.ObjectID, status models.PaymentStatus) (*models.Order, error) {
	if status != models.PaymentCompleted && status != models.PaymentFailed {
		return nil, ErrInvalidPaymentStatus
	}
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus != models.PaymentPending || o.Status != models.OrderPending {
		return nil, ErrPaymentLocked
	}
	expect := repository.OrderExpect{User: userID, Status: models.OrderPending, PaymentStatus: models.PaymentPending}

	if status == models.PaymentFailed {
		cancelled := models.OrderCancelled
		failed := models.PaymentFailed
		released := false
		updated, err := s.orders.Transition(ctx, orderID, expect, repository.OrderPatch{
			Status:        &cancelled,
			PaymentStatus: &failed,
			StockReserved: &released,
		})
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, ErrPaymentLocked
		}
		if err != nil {
			return nil, err
		}
		if o.StockReserved {
			s.release(ctx, o)
		}
		s.notify(EventOrderPaymentFailed, updated, true)
		return updated, nil
	}

	processing := models.OrderProcessing
	completed := models.PaymentCompleted
	reserved := true
	updated, err := s.orders.Transition(ctx, orderID, expect, repository.OrderPatch{
		Status:        &processing,
		PaymentStatus: &completed,
		StockReserved: &reserved,
	})
	if errors.Is(err, repository.ErrStateChanged) {
		return nil, ErrPaymentLocked
	}
	if err != nil {
		return nil, err
	}

	if !o.StockReserved {
		if err := s.reserve(ctx, o); err != nil {
			s.revertPayment(ctx, o)
			return nil, err
		}
	}

	s.log.Info("payment completed", zap.String("order_id", orderID.Hex()))
	s.notify(EventOrderPaid, updated, true)
	return updated, nil
}

// revertPayment puts an order claimed by VerifyPayment back to pending.
func (s *OrderService) revertPayment(ctx context.Context, o *models.Order) {
	pendingStatus := models.OrderPending
	pendingPayment := models.PaymentPending
	_, err := s.orders.Transition(ctx, o.ID,
		repository.OrderExpect{Status: models.OrderProcessing, PaymentStatus: models.PaymentCompleted},
		repository.OrderPatch{Status: &pendingStatus, PaymentStatus: &pendingPayment, StockReserved: &o.StockReserved})
	if err != nil {
		s.log.Error("could not revert payment claim", zap.String("order_id", o.ID.Hex()), zap.Error(err))
	}
}

// ConfirmIntent settles the order a provider payment intent belongs to.
func (s *OrderService) ConfirmIntent(ctx context.Context, orderID primitive.ObjectID, intentID string, status models.PaymentStatus) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.PaymentIntentID == "" || o.PaymentIntentID != intentID {
		return nil, ErrOrderNotFound
	}
	return s.VerifyPayment(ctx, o.User, o.ID, status)
}

// StartPayment creates a provider payment intent for a pending online order.
func (s *OrderService) StartPayment(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, PaymentIntent, error) {
	if s.payments == nil {
		return nil, PaymentIntent{}, ErrPaymentsDisabled
	}
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, PaymentIntent{}, err
	}
	if o.PaymentMethod == models.PayCOD || o.PaymentStatus != models.PaymentPending || o.Status != models.OrderPending {
		return nil, PaymentIntent{}, ErrNotOnlinePayment
	}
	intent, err := s.payments.CreateIntent(ctx, o)
	if err != nil {
		return nil, PaymentIntent{}, err
	}
	updated, err := s.orders.Transition(ctx, orderID,
		repository.OrderExpect{User: userID, PaymentStatus: models.PaymentPending},
		repository.OrderPatch{PaymentIntentID: &intent.ID})
	if errors.Is(err, repository.ErrStateChanged) {
		return nil, PaymentIntent{}, ErrNotOnlinePayment
	}
	if err != nil {
		return nil, PaymentIntent{}, err
	}
	return updated, intent, nil
}

// AwaitingUPI returns the order when it is a UPI order still waiting for
// its payment.
func (s *OrderService) AwaitingUPI(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentMethod != models.PayUPI || o.PaymentStatus != models.PaymentPending || o.Status != models.OrderPending {
		return nil, ErrNotOnlinePayment
	}
	return o, nil
}

// UpdateStatus moves an order along the state machine on behalf of an admin.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, to models.OrderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(o.Status, to) {
		return nil, &TransitionError{From: o.Status, To: to}
	}
	if to != models.OrderCancelled && o.PaymentMethod != models.PayCOD && o.PaymentStatus != models.PaymentCompleted {
		return nil, ErrPaymentIncomplete
	}
	return s.transition(ctx, o, repository.OrderExpect{Status: o.Status}, to)
}

// Cancel lets the owner cancel an order that has not been paid or shipped.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderPending || o.PaymentStatus == models.PaymentCompleted {
		return nil, ErrNotCancellable
	}
	return s.transition(ctx, o, repository.OrderExpect{User: userID, Status: models.OrderPending}, models.OrderCancelled)
}

func (s *OrderService) transition(ctx context.Context, o *models.Order, expect repository.OrderExpect, to models.OrderStatus) (*models.Order, error) {
	patch := repository.OrderPatch{Status: &to}
	release := to == models.OrderCancelled && o.StockReserved
	if release {
		f := false
		patch.StockReserved = &f
	}
	// Cash is collected on delivery.
	if to == models.OrderDelivered && o.PaymentMethod == models.PayCOD {
		paid := models.PaymentCompleted
		patch.PaymentStatus = &paid
	}

	updated, err := s.orders.Transition(ctx, o.ID, expect, patch)
	if errors.Is(err, repository.ErrStateChanged) {
		return nil, s.lostTransition(ctx, o, to)
	}
	if err != nil {
		return nil, err
	}
	if release {
		s.release(ctx, o)
	}

	event := EventOrderStatusChanged
	if to == models.OrderCancelled {
		event = EventOrderCancelled
	}
	s.log.Info("order status changed",
		zap.String("order_id", o.ID.Hex()),
		zap.String("from", string(o.Status)),
		zap.String("to", string(to)))
	s.notify(event, updated, to != models.OrderProcessing)
	return updated, nil
}

// lostTransition reports a status change that another writer beat, from
// the order's current status when it can still be read.
func (s *OrderService) lostTransition(ctx context.Context, o *models.Order, to models.OrderStatus) error {
	if to == models.OrderCancelled {
		return ErrNotCancellable
	}
	from := o.Status
	if cur, err := s.orders.FindByID(ctx, o.ID); err == nil {
		from = cur.Status
	}
	return &TransitionError{From: from, To: to}
}

// reserve takes stock for every line of o, giving back what it took if any
// shoe runs short.
func (s *OrderService) reserve(ctx context.Context, o *models.Order) error {
	var taken []models.OrderItem
	for _, it := range s.perShoe(o) {
		err := s.shoes.DecrementStock(ctx, it.ShoeID, it.Quantity)
		if err == nil {
			taken = append(taken, it)
			continue
		}
		for _, back := range taken {
			if rerr := s.shoes.IncrementStock(ctx, back.ShoeID, back.Quantity); rerr != nil {
				s.log.Error("stock compensation failed", zap.String("shoe_id", back.ShoeID.Hex()), zap.Error(rerr))
			}
		}
		if errors.Is(err, repository.ErrInsufficientStock) {
			return &StockError{ShoeID: it.ShoeID, Name: it.Name}
		}
		return err
	}
	return nil
}

func (s *OrderService) release(ctx context.Context, o *models.Order) {
	for _, it := range s.perShoe(o) {
		if err := s.shoes.IncrementStock(ctx, it.ShoeID, it.Quantity); err != nil {
			s.log.Error("restock failed",
				zap.String("order_id", o.ID.Hex()),
				zap.String("shoe_id", it.ShoeID.Hex()),
				zap.Error(err))
		}
	}
}

// perShoe collapses size/colour lines into one entry per shoe, in the
// order the shoes first appear.
func (s *OrderService) perShoe(o *models.Order) []models.OrderItem {
	idx := map[primitive.ObjectID]int{}
	var out []models.OrderItem
	for _, it := range o.Items {
		if i, ok := idx[it.ShoeID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.ShoeID] = len(out)
		out = append(out, models.OrderItem{ShoeID: it.ShoeID, Name: it.Name, Quantity: it.Quantity})
	}
	return out
}

// notify publishes the event and optionally mails the customer without
// holding up the request.
func (s *OrderService) notify(eventType string, o *models.Order, mail bool) {
	snapshot := *o
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		ev, err := NewOrderEnvelope(eventType, &snapshot, s.now())
		if err == nil {
			err = s.events.Publish(ctx, ev)
		}
		if err != nil {
			s.log.Warn("order event not published", zap.String("event", eventType), zap.String("order_id", snapshot.ID.Hex()), zap.Error(err))
		}

		if mail && snapshot.Customer.Email != "" {
			if err := s.mailer.SendOrderUpdate(ctx, &snapshot); err != nil {
				s.log.Warn("order email not sent", zap.String("order_id", snapshot.ID.Hex()), zap.Error(err))
			}
		}
	}()
}

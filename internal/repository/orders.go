package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stride_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderExpect is the precondition of a conditional order update. Zero
// fields are not checked.
type OrderExpect struct {
	User          primitive.ObjectID
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
}

// OrderPatch lists the fields a transition sets. Nil fields are kept.
type OrderPatch struct {
	Status          *models.OrderStatus
	PaymentStatus   *models.PaymentStatus
	StockReserved   *bool
	PaymentIntentID *string
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	// Transition applies patch only when the order still matches expect and
	// returns the updated order, or ErrStateChanged.
	Transition(ctx context.Context, id primitive.ObjectID, expect OrderExpect, patch OrderPatch) (*models.Order, error)
}

type MongoOrders struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoOrders(db *mongo.Database) *MongoOrders {
	return &MongoOrders{col: db.Collection(OrdersCollection), now: time.Now}
}

func (r *MongoOrders) Create(ctx context.Context, o *models.Order) error {
	now := r.now().UTC()
	o.ID = primitive.NewObjectID()
	o.CreatedAt, o.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *MongoOrders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

func (r *MongoOrders) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.list(ctx, bson.M{"user": userID})
}

func (r *MongoOrders) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, bson.M{})
}

func (r *MongoOrders) list(ctx context.Context, filter bson.M) ([]models.Order, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (r *MongoOrders) Transition(ctx context.Context, id primitive.ObjectID, expect OrderExpect, patch OrderPatch) (*models.Order, error) {
	filter := bson.M{"_id": id}
	if !expect.User.IsZero() {
		filter["user"] = expect.User
	}
	if expect.Status != "" {
		filter["status"] = expect.Status
	}
	if expect.PaymentStatus != "" {
		filter["paymentStatus"] = expect.PaymentStatus
	}

	set := bson.M{"updatedAt": r.now().UTC()}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.PaymentStatus != nil {
		set["paymentStatus"] = *patch.PaymentStatus
	}
	if patch.StockReserved != nil {
		set["stockReserved"] = *patch.StockReserved
	}
	if patch.PaymentIntentID != nil {
		set["paymentIntentId"] = *patch.PaymentIntentID
	}

	var o models.Order
	err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, returnAfter()).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrStateChanged
		}
		return nil, fmt.Errorf("transition order: %w", err)
	}
	return &o, nil
}

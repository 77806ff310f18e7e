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
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, p models.Profile) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	SetAddresses(ctx context.Context, id primitive.ObjectID, list []models.Address) error
	SetPaymentMethods(ctx context.Context, id primitive.ObjectID, list []models.PaymentMethod) error
	AddToWishlist(ctx context.Context, id, shoeID primitive.ObjectID) error
	RemoveFromWishlist(ctx context.Context, id primitive.ObjectID, shoeIDs ...primitive.ObjectID) error
}

type MongoUsers struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{col: db.Collection(UsersCollection), now: time.Now}
}

// active restricts a filter to accounts that have not been deactivated.
// Documents migrated without the field count as active.
func active(f bson.M) bson.M {
	f["active"] = bson.M{"$ne": false}
	return f
}

func (r *MongoUsers) Create(ctx context.Context, u *models.User) error {
	now := r.now().UTC()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Active = true
	if u.Avatar == "" {
		u.Avatar = models.DefaultAvatar
	}
	if u.Addresses == nil {
		u.Addresses = []models.Address{}
	}
	if u.PaymentMethods == nil {
		u.PaymentMethods = []models.PaymentMethod{}
	}
	if u.Wishlist == nil {
		u.Wishlist = []primitive.ObjectID{}
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, active(filter)).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *MongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *MongoUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, p models.Profile) (*models.User, error) {
	var u models.User
	err := r.col.FindOneAndUpdate(ctx, active(bson.M{"_id": id}), bson.M{"$set": bson.M{
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"email":     p.Email,
		"updatedAt": r.now().UTC(),
	}}, returnAfter()).Decode(&u)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicateEmail
	case err != nil:
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &u, nil
}

func (r *MongoUsers) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.set(ctx, id, bson.M{"password": hash})
}

func (r *MongoUsers) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return r.set(ctx, id, bson.M{"active": false})
}

func (r *MongoUsers) SetAddresses(ctx context.Context, id primitive.ObjectID, list []models.Address) error {
	if list == nil {
		list = []models.Address{}
	}
	return r.set(ctx, id, bson.M{"addresses": list})
}

func (r *MongoUsers) SetPaymentMethods(ctx context.Context, id primitive.ObjectID, list []models.PaymentMethod) error {
	if list == nil {
		list = []models.PaymentMethod{}
	}
	return r.set(ctx, id, bson.M{"paymentMethods": list})
}

func (r *MongoUsers) AddToWishlist(ctx context.Context, id, shoeID primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{
		"$addToSet": bson.M{"wishlist": shoeID},
		"$set":      bson.M{"updatedAt": r.now().UTC()},
	})
}

func (r *MongoUsers) RemoveFromWishlist(ctx context.Context, id primitive.ObjectID, shoeIDs ...primitive.ObjectID) error {
	if len(shoeIDs) == 0 {
		return nil
	}
	return r.update(ctx, id, bson.M{
		"$pull": bson.M{"wishlist": bson.M{"$in": shoeIDs}},
		"$set":  bson.M{"updatedAt": r.now().UTC()},
	})
}

func (r *MongoUsers) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = r.now().UTC()
	return r.update(ctx, id, bson.M{"$set": fields})
}

func (r *MongoUsers) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, active(bson.M{"_id": id}), update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

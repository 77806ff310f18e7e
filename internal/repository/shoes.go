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

type ShoeRepository interface {
	List(ctx context.Context, f ShoeFilter) ([]models.Shoe, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Shoe, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Shoe, error)
	Create(ctx context.Context, s *models.Shoe) error
	Update(ctx context.Context, id primitive.ObjectID, u models.ShoeUpdate) (*models.Shoe, error)
	AddImages(ctx context.Context, id primitive.ObjectID, urls []string) (*models.Shoe, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Shoe, error)
	// DecrementStock removes qty pairs only if at least qty are in stock.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

type MongoShoes struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoShoes(db *mongo.Database) *MongoShoes {
	return &MongoShoes{col: db.Collection(ShoesCollection), now: time.Now}
}

func returnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func (r *MongoShoes) List(ctx context.Context, f ShoeFilter) ([]models.Shoe, error) {
	q, sort := ShoeQuery(f)
	opts := options.Find().SetSort(sort)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Skip > 0 {
		opts.SetSkip(f.Skip)
	}
	return r.find(ctx, q, opts)
}

func (r *MongoShoes) find(ctx context.Context, q bson.M, opts ...*options.FindOptions) ([]models.Shoe, error) {
	cur, err := r.col.Find(ctx, q, opts...)
	if err != nil {
		return nil, fmt.Errorf("find shoes: %w", err)
	}
	shoes := []models.Shoe{}
	if err := cur.All(ctx, &shoes); err != nil {
		return nil, fmt.Errorf("decode shoes: %w", err)
	}
	return shoes, nil
}

func (r *MongoShoes) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Shoe, error) {
	var s models.Shoe
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find shoe: %w", err)
	}
	return &s, nil
}

func (r *MongoShoes) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Shoe, error) {
	if len(ids) == 0 {
		return []models.Shoe{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoShoes) Create(ctx context.Context, s *models.Shoe) error {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	now := r.now().UTC()
	s.ID = primitive.NewObjectID()
	s.CreatedAt, s.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("insert shoe: %w", err)
	}
	return nil
}

// Update validates the merged document, then sets only the patched fields.
// Stock and images moved by concurrent writers since the read are kept.
func (r *MongoShoes) Update(ctx context.Context, id primitive.ObjectID, u models.ShoeUpdate) (*models.Shoe, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Apply(current)
	current.Normalize()
	if err := current.Validate(); err != nil {
		return nil, err
	}

	set := shoeUpdateSet(u, current)
	set["updatedAt"] = r.now().UTC()
	var s models.Shoe
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, returnAfter()).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update shoe: %w", err)
	}
	return &s, nil
}

// shoeUpdateSet maps the fields present in u to their normalized values
// in merged.
func shoeUpdateSet(u models.ShoeUpdate, merged *models.Shoe) bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = merged.Name
	}
	if u.Brand != nil {
		set["brand"] = merged.Brand
	}
	if u.Price != nil {
		set["price"] = merged.Price
	}
	if u.Description != nil {
		set["description"] = merged.Description
	}
	if u.Images != nil {
		set["images"] = merged.Images
	}
	if u.Colors != nil {
		set["colors"] = merged.Colors
	}
	if u.Sizes != nil {
		set["sizes"] = merged.Sizes
	}
	if u.Rating != nil {
		set["rating"] = merged.Rating
	}
	if u.Discount != nil {
		set["discount"] = merged.Discount
	}
	if u.Stock != nil {
		set["stock"] = merged.Stock
	}
	if u.IsNewArrival != nil {
		set["isNewArrival"] = merged.IsNewArrival
	}
	if u.Featured != nil {
		set["featured"] = merged.Featured
	}
	return set
}

func (r *MongoShoes) AddImages(ctx context.Context, id primitive.ObjectID, urls []string) (*models.Shoe, error) {
	var s models.Shoe
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"images": bson.M{"$each": urls}},
		"$set":  bson.M{"updatedAt": r.now().UTC()},
	}, returnAfter()).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("add images: %w", err)
	}
	return &s, nil
}

func (r *MongoShoes) Delete(ctx context.Context, id primitive.ObjectID) (*models.Shoe, error) {
	var s models.Shoe
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete shoe: %w", err)
	}
	return &s, nil
}

func (r *MongoShoes) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updatedAt": r.now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *MongoShoes) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stock": qty}, "$set": bson.M{"updatedAt": r.now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"testing"

	"stride_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func shoeDoc(t *testing.T, s models.Shoe) bson.D {
	t.Helper()
	raw, err := bson.Marshal(s)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func TestShoeUpdateSetOnlyPatchedFields(t *testing.T) {
	name := " Pegasus 41 "
	discount := 10.0
	merged := &models.Shoe{Name: "Pegasus 41", Brand: "nike", Price: 130, Discount: 10, Stock: 5, Images: []string{"a.png"}}

	set := shoeUpdateSet(models.ShoeUpdate{Name: &name, Discount: &discount}, merged)

	assert.Equal(t, bson.M{"name": "Pegasus 41", "discount": 10.0}, set)
	assert.NotContains(t, set, "stock")
	assert.NotContains(t, set, "images")
}

func TestShoeUpdateSetStock(t *testing.T) {
	stock := 0
	set := shoeUpdateSet(models.ShoeUpdate{Stock: &stock}, &models.Shoe{Stock: 0})
	assert.Equal(t, bson.M{"stock": 0}, set)
}

func TestMongoShoesCreateValidates(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("invalid shoe is not inserted", func(mt *mtest.T) {
		repo := NewMongoShoes(mt.DB)
		s := &models.Shoe{Name: "", Brand: "x", Price: -1}

		err := repo.Create(context.Background(), s)

		var verr *models.ValidationError
		require.ErrorAs(mt, err, &verr)
		assert.Equal(mt, "Shoe name is required", verr.Message)
		assert.True(mt, s.ID.IsZero())
	})

	mt.Run("normalized before insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewMongoShoes(mt.DB)
		s := &models.Shoe{Name: " Gel Kayano ", Brand: " ASICS ", Price: 160}

		err := repo.Create(context.Background(), s)

		var verr *models.ValidationError
		require.ErrorAs(mt, err, &verr, "asics is not a carried brand")

		s.Brand = " Other "
		require.NoError(mt, repo.Create(context.Background(), s))
		assert.Equal(mt, "Gel Kayano", s.Name)
		assert.Equal(mt, "other", s.Brand)
		assert.False(mt, s.ID.IsZero())
	})
}

func TestMongoShoesUpdateKeepsConcurrentStock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stock from the write result", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		read := models.Shoe{ID: id, Name: "Pegasus 40", Brand: "nike", Price: 120, Stock: 5}
		// An order reserved two pairs after the read.
		written := read
		written.Name = "Pegasus 41"
		written.Stock = 3

		ns := mt.DB.Name() + "." + ShoesCollection
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, shoeDoc(mt.T, read)),
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: shoeDoc(mt.T, written)}},
		)
		repo := NewMongoShoes(mt.DB)
		name := "Pegasus 41"

		got, err := repo.Update(context.Background(), id, models.ShoeUpdate{Name: &name})

		require.NoError(mt, err)
		assert.Equal(mt, "Pegasus 41", got.Name)
		assert.Equal(mt, 3, got.Stock)
	})

	mt.Run("invalid merge is not written", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		ns := mt.DB.Name() + "." + ShoesCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			shoeDoc(mt.T, models.Shoe{ID: id, Name: "Pegasus 40", Brand: "nike", Price: 120, Stock: 5})))
		repo := NewMongoShoes(mt.DB)
		rating := 9.0

		_, err := repo.Update(context.Background(), id, models.ShoeUpdate{Rating: &rating})

		var verr *models.ValidationError
		require.ErrorAs(mt, err, &verr)
		assert.Equal(mt, "Rating must be between 0 and 5", verr.Message)
	})
}

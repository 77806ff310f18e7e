package testutil

import (
	"context"
	"testing"
	"time"

	"stride_back_end/internal/models"
	"stride_back_end/internal/utils"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	Secret     = "test-secret"
	AdminEmail = "admin@stride.test"
)

func Tokens() *utils.TokenManager {
	return utils.NewTokenManager(Secret, time.Hour)
}

// CreateUser stores a user with the password "password123".
func CreateUser(t *testing.T, users *Users, email string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	u := &models.User{FirstName: "Test", LastName: "User", Email: models.NormalizeEmail(email), Password: hash}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

// Bearer returns an Authorization header value for u.
func Bearer(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := Tokens().Issue(u.ID.Hex())
	require.NoError(t, err)
	return "Bearer " + tok
}

// Shoe returns a valid catalog entry.
func Shoe(name string, price float64, stock int) models.Shoe {
	return models.Shoe{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Brand:     "nike",
		Price:     price,
		Images:    []string{"/uploads/" + name + ".jpg"},
		Colors:    []string{"Black", "White"},
		Sizes:     []float64{8, 9, 10},
		Stock:     stock,
		CreatedAt: time.Now().UTC(),
	}
}

func Shipping() models.ShippingInfo {
	return models.ShippingInfo{
		Name:    "Test User",
		Address: "12 MG Road",
		City:    "Bengaluru",
		State:   "KA",
		Zip:     "560001",
		Country: "India",
		Phone:   "9876543210",
	}
}

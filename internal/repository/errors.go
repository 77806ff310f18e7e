package repository

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmail    = errors.New("email already in use")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStateChanged is returned when a conditional update finds the
	// document no longer in the expected state.
	ErrStateChanged = errors.New("state changed concurrently")
)

const (
	UsersCollection  = "users"
	ShoesCollection  = "shoes"
	OrdersCollection = "orders"
)
